package model

import (
	"errors"
	"time"
)

// CallStatus is the closed set of call record states. A record starts in
// ringing and moves at most once, to accepted, rejected, or ended. All three
// are terminal; a settled record is never overwritten.
type CallStatus string

const (
	CallStatusRinging  CallStatus = "ringing"
	CallStatusAccepted CallStatus = "accepted"
	CallStatusRejected CallStatus = "rejected"
	CallStatusEnded    CallStatus = "ended"
)

// Valid reports whether s is one of the known statuses.
// Statuses are validated here, at the storage boundary, rather than trusted
// as free-form strings.
func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusRinging, CallStatusAccepted, CallStatusRejected, CallStatusEnded:
		return true
	}
	return false
}

// Terminal reports whether a record in this status can still transition.
func (s CallStatus) Terminal() bool {
	return s.Valid() && s != CallStatusRinging
}

// Call is a single call-intent record. Records are never deleted; call
// history is reconstructed by scanning every record the user took part in.
type Call struct {
	ID         string     `db:"id" json:"id"`
	CallerID   string     `db:"caller_id" json:"caller_id"`
	ReceiverID string     `db:"receiver_id" json:"receiver_id"`
	Status     CallStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Other returns the counterpart of userID on this call, or "" if userID is
// not a participant.
func (c *Call) Other(userID string) string {
	switch userID {
	case c.CallerID:
		return c.ReceiverID
	case c.ReceiverID:
		return c.CallerID
	}
	return ""
}

// Call direction relative to the user reading the history.
const (
	CallDirectionIncoming = "incoming"
	CallDirectionOutgoing = "outgoing"
)

// Call outcomes shown in history. A record still in ringing is reinterpreted
// on every read: missed for the receiver, unanswered for the caller. No
// expiry record is ever written.
const (
	CallOutcomeAnswered   = "answered"
	CallOutcomeRejected   = "rejected"
	CallOutcomeMissed     = "missed"
	CallOutcomeUnanswered = "unanswered"
)

// CallHistoryEntry is a call record classified from one user's point of view.
type CallHistoryEntry struct {
	Call      Call   `json:"call"`
	PeerID    string `json:"peer_id"`
	Direction string `json:"direction"`
	Outcome   string `json:"outcome"`
}

// ClassifyCall derives direction and outcome for userID.
func ClassifyCall(c Call, userID string) CallHistoryEntry {
	entry := CallHistoryEntry{
		Call:      c,
		PeerID:    c.Other(userID),
		Direction: CallDirectionOutgoing,
	}
	if c.ReceiverID == userID {
		entry.Direction = CallDirectionIncoming
	}

	switch c.Status {
	case CallStatusAccepted:
		entry.Outcome = CallOutcomeAnswered
	case CallStatusRejected:
		entry.Outcome = CallOutcomeRejected
	case CallStatusEnded:
		entry.Outcome = CallOutcomeUnanswered
	case CallStatusRinging:
		if entry.Direction == CallDirectionIncoming {
			entry.Outcome = CallOutcomeMissed
		} else {
			entry.Outcome = CallOutcomeUnanswered
		}
	}
	return entry
}

// JoinInfo carries what a client needs to join the media channel after a
// call is accepted. The RTC SDK itself is not wrapped here.
type JoinInfo struct {
	Channel string `json:"channel"`
	RTCUID  uint32 `json:"rtc_uid"`
}

// InitiateCallRequest is the body for POST /calls.
type InitiateCallRequest struct {
	ReceiverID string `json:"receiver_id"`
}

// AnswerCallRequest is the body for POST /calls/answer, the push-originated
// accept path: the push payload carries the caller, not the call id.
type AnswerCallRequest struct {
	CallerID string `json:"caller_id"`
}

var (
	// ErrCallNotFound is returned when a call record cannot be found
	ErrCallNotFound = errors.New("call not found")

	// ErrCallSettled is returned when a transition loses the race: the
	// record already left ringing and its status is final.
	ErrCallSettled = errors.New("call already settled")

	// ErrNotParticipant is returned when a user acts on a call they are not part of
	ErrNotParticipant = errors.New("not a participant of this call")
)
