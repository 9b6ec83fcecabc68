package worker

import (
	"context"
	"fmt"
	"log"

	"familycalls/internal/cache"
	"familycalls/internal/model"
	"familycalls/internal/queue"
)

// TokenProvider fetches a user's registered push tokens.
// Abstracts the repository layer so workers don't depend on the DB directly.
type TokenProvider interface {
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
}

// UserProvider fetches roster entries for payload fields (names, phones).
type UserProvider interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// MessageProvider fetches the message record behind a message event, since
// the event carries only ids.
type MessageProvider interface {
	GetByID(ctx context.Context, id string) (*model.Message, error)
}

// Pusher sends a data-only push payload to a set of tokens.
// Implemented by the FCM client; mocked in tests.
type Pusher interface {
	SendDataToTokens(ctx context.Context, tokens []string, data map[string]string) error
}

// Handler turns signal events into push notifications. Failure policy
// throughout: a missing token, user, or record is logged and the event is
// dropped — no retry, no dead-letter. The sender gets no feedback that the
// notification never went out.
type Handler struct {
	tokens   TokenProvider
	users    UserProvider
	messages MessageProvider
	seen     cache.SeenLog // can be nil, disabling restart dedup
	pusher   Pusher        // can be nil if push not configured
}

// NewHandler creates a new dispatch handler.
func NewHandler(tokens TokenProvider, users UserProvider, messages MessageProvider, seen cache.SeenLog, pusher Pusher) *Handler {
	return &Handler{
		tokens:   tokens,
		users:    users,
		messages: messages,
		seen:     seen,
		pusher:   pusher,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.SignalEvent) error {
	if h.pusher == nil {
		log.Printf("[Dispatch] push not configured, dropping type=%s", event.Type)
		return nil
	}

	// Persisted dedup: a redelivered stream entry (worker crash between
	// push and ack) must not ring the receiver twice.
	if h.seen != nil {
		first, err := h.seen.MarkSeen(ctx, event.DedupID())
		if err != nil {
			return fmt.Errorf("seen log: %w", err)
		}
		if !first {
			log.Printf("[Dispatch] already handled, skipping: %s", event.DedupID())
			return nil
		}
	}

	switch event.Type {
	case queue.EventCallCreated:
		return h.handleCallCreated(ctx, event)
	case queue.EventMessageCreated:
		return h.handleMessageCreated(ctx, event)
	default:
		log.Printf("[Dispatch] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}
}

// handleCallCreated sends the incoming_call push for a new ringing record.
func (h *Handler) handleCallCreated(ctx context.Context, event queue.SignalEvent) error {
	// Only freshly ringing calls notify; status changes ride the live channel.
	if event.Status != string(model.CallStatusRinging) {
		log.Printf("[Dispatch] call=%s status=%q, skipping notification", event.CallID, event.Status)
		return nil
	}

	tokens := h.lookupTokens(ctx, event.ReceiverID)
	if len(tokens) == 0 {
		return nil
	}

	callerName := "Someone"
	callerPhone := ""
	if caller, err := h.users.GetByID(ctx, event.CallerID); err == nil {
		callerName = caller.Name
		callerPhone = caller.Phone
	} else {
		log.Printf("[Dispatch] caller %s lookup failed: %v", event.CallerID, err)
	}

	data := map[string]string{
		"type":        "incoming_call",
		"callId":      event.CallID,
		"callerId":    event.CallerID,
		"receiverId":  event.ReceiverID,
		"callerName":  callerName,
		"callerPhone": callerPhone,
		"title":       "Incoming Call",
		"body":        callerName + " is calling you",
	}

	if err := h.pusher.SendDataToTokens(ctx, tokens, data); err != nil {
		log.Printf("[Dispatch] incoming_call push failed: call=%s err=%v", event.CallID, err)
		return nil
	}

	log.Printf("[Dispatch] incoming_call OK: call=%s receiver=%s tokens=%d", event.CallID, event.ReceiverID, len(tokens))
	return nil
}

// handleMessageCreated sends the message push for a new chat record. The
// payload carries the full text, not a truncated preview; the preview only
// feeds the fallback body.
func (h *Handler) handleMessageCreated(ctx context.Context, event queue.SignalEvent) error {
	msg, err := h.messages.GetByID(ctx, event.MessageID)
	if err != nil {
		log.Printf("[Dispatch] message %s lookup failed: %v", event.MessageID, err)
		return nil
	}

	tokens := h.lookupTokens(ctx, msg.ReceiverID)
	if len(tokens) == 0 {
		return nil
	}

	senderName := "Someone"
	if sender, err := h.users.GetByID(ctx, msg.SenderID); err == nil {
		senderName = sender.Name
	} else {
		log.Printf("[Dispatch] sender %s lookup failed: %v", msg.SenderID, err)
	}

	fullText := ""
	if msg.Type == model.MessageTypeText && msg.Text != nil {
		fullText = *msg.Text
	} else if msg.Type != model.MessageTypeText {
		fullText = msg.Preview()
	}

	data := map[string]string{
		"type":        "message",
		"messageId":   msg.ID,
		"senderId":    msg.SenderID,
		"receiverId":  msg.ReceiverID,
		"messageText": fullText,
		"senderName":  senderName,
		"title":       senderName,
		"body":        msg.Preview(),
	}

	if err := h.pusher.SendDataToTokens(ctx, tokens, data); err != nil {
		log.Printf("[Dispatch] message push failed: msg=%s err=%v", msg.ID, err)
		return nil
	}

	log.Printf("[Dispatch] message OK: msg=%s receiver=%s tokens=%d", msg.ID, msg.ReceiverID, len(tokens))
	return nil
}

// lookupTokens returns the receiver's token strings, logging and returning
// nothing when the receiver has no registered device.
func (h *Handler) lookupTokens(ctx context.Context, userID string) []string {
	tokens, err := h.tokens.GetByUserID(ctx, userID)
	if err != nil {
		log.Printf("[Dispatch] token lookup failed for user %s: %v", userID, err)
		return nil
	}
	if len(tokens) == 0 {
		log.Printf("[Dispatch] user %s has no push token", userID)
		return nil
	}

	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Token
	}
	return out
}
