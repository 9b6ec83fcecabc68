package service

import (
	"context"
	"fmt"
	"log"

	"familycalls/internal/model"
	"familycalls/internal/queue"
	"familycalls/internal/repository"
)

// MessageAnnouncer pushes a stored message to the pair's live subscribers.
// Implemented by the realtime broadcaster; can be nil.
type MessageAnnouncer interface {
	AnnounceMessage(ctx context.Context, msg *model.Message)
}

// MessageService owns the chat channel: immutable records between exactly
// two users, no receipts.
type MessageService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	publisher queue.Publisher  // can be nil in tests
	announcer MessageAnnouncer // can be nil if realtime not wired
}

func NewMessageService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	publisher queue.Publisher,
	announcer MessageAnnouncer,
) *MessageService {
	return &MessageService{
		messages:  messages,
		users:     users,
		publisher: publisher,
		announcer: announcer,
	}
}

// Send validates and stores a message, then fans it out to the signal
// stream (push dispatch) and live subscribers. Store failures come back
// wrapped as a delivery failure; there is no retry.
func (s *MessageService) Send(ctx context.Context, senderID string, req *model.SendMessageRequest) (*model.Message, error) {
	if !req.Type.Valid() {
		return nil, model.ErrInvalidMessageType
	}
	if err := validatePayload(req); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, req.ReceiverID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Type:       req.Type,
		Text:       req.Text,
		ImageURL:   req.ImageURL,
		VideoURL:   req.VideoURL,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDeliveryFailed, err)
	}

	if s.publisher != nil {
		if _, err := s.publisher.Publish(ctx, queue.StreamSignals, queue.NewMessageCreatedEvent(msg)); err != nil {
			// The record is stored; the push just won't arrive. Logged and
			// dropped, matching the dispatch layer's failure policy.
			log.Printf("[Message] publish event failed: msg=%s err=%v", msg.ID, err)
		}
	}
	if s.announcer != nil {
		s.announcer.AnnounceMessage(ctx, msg)
	}

	log.Printf("[Message] Send OK: msg=%s sender=%s receiver=%s type=%s", msg.ID, senderID, msg.ReceiverID, msg.Type)
	return msg, nil
}

// Conversation returns the full message history between the user and a
// peer, ascending by timestamp.
func (s *MessageService) Conversation(ctx context.Context, userID, peerID string) ([]model.Message, error) {
	return s.messages.ListBetween(ctx, userID, peerID)
}

// validatePayload requires the payload field matching the declared type.
func validatePayload(req *model.SendMessageRequest) error {
	switch req.Type {
	case model.MessageTypeText:
		if req.Text == nil || *req.Text == "" {
			return model.ErrEmptyMessage
		}
	case model.MessageTypeImage:
		if req.ImageURL == nil || *req.ImageURL == "" {
			return model.ErrEmptyMessage
		}
	case model.MessageTypeVideo:
		if req.VideoURL == nil || *req.VideoURL == "" {
			return model.ErrEmptyMessage
		}
	}
	return nil
}
