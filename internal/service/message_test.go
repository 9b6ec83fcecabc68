package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"familycalls/internal/model"
)

type mockMessageRepository struct {
	createFn      func(ctx context.Context, msg *model.Message) error
	getByIDFn     func(ctx context.Context, id string) (*model.Message, error)
	listBetweenFn func(ctx context.Context, userA, userB string) ([]model.Message, error)
}

func (m *mockMessageRepository) Create(ctx context.Context, msg *model.Message) error {
	if m.createFn != nil {
		return m.createFn(ctx, msg)
	}
	msg.ID = "msg-1"
	msg.CreatedAt = time.Now()
	return nil
}

func (m *mockMessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrMessageNotFound
}

func (m *mockMessageRepository) ListBetween(ctx context.Context, userA, userB string) ([]model.Message, error) {
	if m.listBetweenFn != nil {
		return m.listBetweenFn(ctx, userA, userB)
	}
	return nil, nil
}

func str(s string) *string { return &s }

func TestMessageService_Send_Text(t *testing.T) {
	svc := NewMessageService(&mockMessageRepository{}, usersWith("u1", "u2"), nil, nil)

	msg, err := svc.Send(context.Background(), "u1", &model.SendMessageRequest{
		ReceiverID: "u2",
		Type:       model.MessageTypeText,
		Text:       str("dinner at 7"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SenderID != "u1" || msg.ReceiverID != "u2" {
		t.Errorf("participants = (%s, %s), want (u1, u2)", msg.SenderID, msg.ReceiverID)
	}
	if msg.Text == nil || *msg.Text != "dinner at 7" {
		t.Errorf("text = %v, want %q", msg.Text, "dinner at 7")
	}
}

func TestMessageService_Send_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     *model.SendMessageRequest
		wantErr error
	}{
		{
			name:    "unknown type",
			req:     &model.SendMessageRequest{ReceiverID: "u2", Type: "sticker"},
			wantErr: model.ErrInvalidMessageType,
		},
		{
			name:    "text without text",
			req:     &model.SendMessageRequest{ReceiverID: "u2", Type: model.MessageTypeText},
			wantErr: model.ErrEmptyMessage,
		},
		{
			name:    "text with empty string",
			req:     &model.SendMessageRequest{ReceiverID: "u2", Type: model.MessageTypeText, Text: str("")},
			wantErr: model.ErrEmptyMessage,
		},
		{
			name:    "image without url",
			req:     &model.SendMessageRequest{ReceiverID: "u2", Type: model.MessageTypeImage},
			wantErr: model.ErrEmptyMessage,
		},
		{
			name:    "video without url",
			req:     &model.SendMessageRequest{ReceiverID: "u2", Type: model.MessageTypeVideo},
			wantErr: model.ErrEmptyMessage,
		},
		{
			name:    "unknown receiver",
			req:     &model.SendMessageRequest{ReceiverID: "ghost", Type: model.MessageTypeText, Text: str("hi")},
			wantErr: model.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewMessageService(&mockMessageRepository{}, usersWith("u1", "u2"), nil, nil)

			_, err := svc.Send(context.Background(), "u1", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageService_Send_StoreFailureWrapsDeliveryFailed(t *testing.T) {
	mockMsgs := &mockMessageRepository{
		createFn: func(ctx context.Context, msg *model.Message) error {
			return errors.New("insert failed")
		},
	}
	svc := NewMessageService(mockMsgs, usersWith("u1", "u2"), nil, nil)

	_, err := svc.Send(context.Background(), "u1", &model.SendMessageRequest{
		ReceiverID: "u2",
		Type:       model.MessageTypeText,
		Text:       str("hi"),
	})
	if !errors.Is(err, model.ErrDeliveryFailed) {
		t.Errorf("error = %v, want wrapped %v", err, model.ErrDeliveryFailed)
	}
}

func TestMessageService_Conversation(t *testing.T) {
	now := time.Now()
	stored := []model.Message{
		{ID: "m1", SenderID: "u1", ReceiverID: "u2", Type: model.MessageTypeText, Text: str("a"), CreatedAt: now},
		{ID: "m2", SenderID: "u2", ReceiverID: "u1", Type: model.MessageTypeText, Text: str("b"), CreatedAt: now.Add(time.Second)},
	}
	mockMsgs := &mockMessageRepository{
		listBetweenFn: func(ctx context.Context, userA, userB string) ([]model.Message, error) {
			return stored, nil
		},
	}
	svc := NewMessageService(mockMsgs, usersWith("u1", "u2"), nil, nil)

	msgs, err := svc.Conversation(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestMessagePreview(t *testing.T) {
	tests := []struct {
		name string
		msg  model.Message
		want string
	}{
		{"text", model.Message{Type: model.MessageTypeText, Text: str("see you soon")}, "see you soon"},
		{"image", model.Message{Type: model.MessageTypeImage, ImageURL: str("https://cdn/x.jpg")}, "📷 Image"},
		{"video", model.Message{Type: model.MessageTypeVideo, VideoURL: str("https://cdn/x.mp4")}, "🎥 Video"},
		{"text without body", model.Message{Type: model.MessageTypeText}, "New message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Preview(); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}
