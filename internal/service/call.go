package service

import (
	"context"
	"hash/fnv"
	"log"

	"familycalls/internal/model"
	"familycalls/internal/queue"
	"familycalls/internal/repository"
)

// CallAnnouncer pushes call lifecycle changes to any live subscribers of the
// two participants. Implemented by the realtime broadcaster; can be nil.
type CallAnnouncer interface {
	AnnounceCall(ctx context.Context, call *model.Call)
}

// CallService owns the signaling state machine: ringing -> accepted,
// rejected, or ended, each transition a compare-and-swap so a settled record
// is never overwritten.
type CallService struct {
	calls     repository.CallRepository
	users     repository.UserRepository
	publisher queue.Publisher // can be nil in tests
	announcer CallAnnouncer   // can be nil if realtime not wired
}

func NewCallService(
	calls repository.CallRepository,
	users repository.UserRepository,
	publisher queue.Publisher,
	announcer CallAnnouncer,
) *CallService {
	return &CallService{
		calls:     calls,
		users:     users,
		publisher: publisher,
		announcer: announcer,
	}
}

// Initiate writes a brand-new ringing record. There is no busy check: a
// receiver already on a call still gets a second ringing record, and both
// surface independently on their side.
func (s *CallService) Initiate(ctx context.Context, callerID, receiverID string) (*model.Call, error) {
	if receiverID == callerID {
		return nil, model.ErrNotParticipant
	}
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	call := &model.Call{
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     model.CallStatusRinging,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, err
	}

	// Publish failures never fail the call itself. The record exists; the
	// receiver's own poll/subscription will still find it.
	s.publish(ctx, queue.NewCallCreatedEvent(call))
	s.announce(ctx, call)

	log.Printf("[Call] Initiate OK: call=%s caller=%s receiver=%s", call.ID, callerID, receiverID)
	return call, nil
}

// Accept moves a ringing call to accepted and returns the media join info.
// Only the receiver may accept.
func (s *CallService) Accept(ctx context.Context, callID, userID string) (*model.JoinInfo, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != userID {
		return nil, model.ErrNotParticipant
	}

	return s.settle(ctx, call, model.CallStatusAccepted, userID)
}

// AnswerLatest is the push-originated accept path: the push payload names
// the caller, not the call, so the most recent ringing record for the pair
// is the one being answered.
func (s *CallService) AnswerLatest(ctx context.Context, callerID, receiverID string) (*model.JoinInfo, error) {
	call, err := s.calls.LatestRinging(ctx, callerID, receiverID)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, call, model.CallStatusAccepted, receiverID)
}

// Reject moves a ringing call to rejected. Only the receiver may reject.
func (s *CallService) Reject(ctx context.Context, callID, userID string) error {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	if call.ReceiverID != userID {
		return model.ErrNotParticipant
	}

	_, err = s.settle(ctx, call, model.CallStatusRejected, userID)
	return err
}

// End moves a ringing call to ended. Either party may hang up while it
// rings; once a call is accepted the record stays accepted and hanging up
// is a media-layer concern.
func (s *CallService) End(ctx context.Context, callID, userID string) error {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	if call.Other(userID) == "" {
		return model.ErrNotParticipant
	}

	_, err = s.settle(ctx, call, model.CallStatusEnded, userID)
	return err
}

// settle performs the single allowed transition out of ringing. A CAS miss
// means the other party (or another device) got there first.
func (s *CallService) settle(ctx context.Context, call *model.Call, to model.CallStatus, userID string) (*model.JoinInfo, error) {
	ok, err := s.calls.UpdateStatus(ctx, call.ID, model.CallStatusRinging, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Printf("[Call] settle lost race: call=%s wanted=%s", call.ID, to)
		return nil, model.ErrCallSettled
	}

	call.Status = to
	s.announce(ctx, call)
	log.Printf("[Call] %s OK: call=%s by user=%s", to, call.ID, userID)

	if to != model.CallStatusAccepted {
		return nil, nil
	}
	return &model.JoinInfo{
		Channel: MediaChannelName(call.CallerID, call.ReceiverID),
		RTCUID:  RTCUserID(userID),
	}, nil
}

// Incoming returns calls currently ringing for the user.
func (s *CallService) Incoming(ctx context.Context, userID string) ([]model.Call, error) {
	return s.calls.ListRingingForReceiver(ctx, userID)
}

// History scans every record the user took part in and classifies each from
// their point of view. A record still ringing where the user was receiver
// reads as missed, every time; no expiry is ever written back.
func (s *CallService) History(ctx context.Context, userID string) ([]model.CallHistoryEntry, error) {
	calls, err := s.calls.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]model.CallHistoryEntry, 0, len(calls))
	for _, c := range calls {
		entries = append(entries, model.ClassifyCall(c, userID))
	}
	return entries, nil
}

// JoinInfoFor returns the media join info for an already-accepted call, so
// the caller can join once they observe the accept.
func (s *CallService) JoinInfoFor(ctx context.Context, callID, userID string) (*model.JoinInfo, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.Other(userID) == "" {
		return nil, model.ErrNotParticipant
	}
	if call.Status != model.CallStatusAccepted {
		return nil, model.ErrCallSettled
	}

	return &model.JoinInfo{
		Channel: MediaChannelName(call.CallerID, call.ReceiverID),
		RTCUID:  RTCUserID(userID),
	}, nil
}

func (s *CallService) publish(ctx context.Context, event queue.SignalEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamSignals, event); err != nil {
		log.Printf("[Call] publish event failed: type=%s err=%v", event.Type, err)
	}
}

func (s *CallService) announce(ctx context.Context, call *model.Call) {
	if s.announcer == nil {
		return
	}
	s.announcer.AnnounceCall(ctx, call)
}

// MediaChannelName derives the RTC channel for a pair of users: the two ids
// in lexicographic order joined by an underscore. Both sides compute the
// same name without coordination.
func MediaChannelName(a, b string) string {
	if a < b {
		return a + "_" + b
	}
	return b + "_" + a
}

// RTCUserID derives the numeric participant id the RTC SDK needs from a
// user id, masked to a positive 31-bit value.
func RTCUserID(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return h.Sum32() & 0x7FFFFFFF
}
