package worker

import (
	"context"
	"errors"
	"testing"

	"familycalls/internal/model"
	"familycalls/internal/queue"
)

type mockTokenProvider struct {
	tokens map[string][]model.DeviceToken
	err    error
}

func (m *mockTokenProvider) GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tokens[userID], nil
}

type mockUserProvider struct {
	users map[string]*model.User
}

func (m *mockUserProvider) GetByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

type mockMessageProvider struct {
	messages map[string]*model.Message
}

func (m *mockMessageProvider) GetByID(ctx context.Context, id string) (*model.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, model.ErrMessageNotFound
}

type sentPush struct {
	Tokens []string
	Data   map[string]string
}

type mockPusher struct {
	sent []sentPush
	err  error
}

func (m *mockPusher) SendDataToTokens(ctx context.Context, tokens []string, data map[string]string) error {
	m.sent = append(m.sent, sentPush{Tokens: tokens, Data: data})
	return m.err
}

// mockSeenLog marks every id and remembers which ones it has seen.
type mockSeenLog struct {
	seen map[string]bool
}

func (m *mockSeenLog) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *mockSeenLog) Trim(ctx context.Context) (int64, error) {
	return 0, nil
}

func str(s string) *string { return &s }

func testFixtures() (*mockTokenProvider, *mockUserProvider, *mockMessageProvider) {
	tokens := &mockTokenProvider{
		tokens: map[string][]model.DeviceToken{
			"u2": {{UserID: "u2", Token: "fcm-token-1", Platform: model.PlatformAndroid}},
		},
	}
	users := &mockUserProvider{
		users: map[string]*model.User{
			"u1": {ID: "u1", Name: "Grandma", Phone: "+841111"},
			"u2": {ID: "u2", Name: "Dad", Phone: "+842222"},
		},
	}
	messages := &mockMessageProvider{messages: map[string]*model.Message{}}
	return tokens, users, messages
}

func TestHandler_CallCreated_PayloadShape(t *testing.T) {
	tokens, users, messages := testFixtures()
	pusher := &mockPusher{}
	h := NewHandler(tokens, users, messages, nil, pusher)

	event := queue.NewCallCreatedEvent(&model.Call{
		ID:         "call-1",
		CallerID:   "u1",
		ReceiverID: "u2",
		Status:     model.CallStatusRinging,
	})

	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pusher.sent) != 1 {
		t.Fatalf("sent %d pushes, want 1", len(pusher.sent))
	}

	push := pusher.sent[0]
	if len(push.Tokens) != 1 || push.Tokens[0] != "fcm-token-1" {
		t.Errorf("tokens = %v, want the receiver's token", push.Tokens)
	}

	want := map[string]string{
		"type":        "incoming_call",
		"callId":      "call-1",
		"callerId":    "u1",
		"receiverId":  "u2",
		"callerName":  "Grandma",
		"callerPhone": "+841111",
		"title":       "Incoming Call",
		"body":        "Grandma is calling you",
	}
	for k, v := range want {
		if push.Data[k] != v {
			t.Errorf("data[%q] = %q, want %q", k, push.Data[k], v)
		}
	}
}

func TestHandler_CallCreated_UnknownCallerFallsBack(t *testing.T) {
	tokens, _, messages := testFixtures()
	pusher := &mockPusher{}
	h := NewHandler(tokens, &mockUserProvider{users: map[string]*model.User{}}, messages, nil, pusher)

	event := queue.NewCallCreatedEvent(&model.Call{
		ID:         "call-1",
		CallerID:   "deleted-user",
		ReceiverID: "u2",
		Status:     model.CallStatusRinging,
	})

	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pusher.sent[0].Data["body"]; got != "Someone is calling you" {
		t.Errorf("body = %q, want the Someone fallback", got)
	}
}

func TestHandler_CallCreated_NoToken_DropsSilently(t *testing.T) {
	_, users, messages := testFixtures()
	pusher := &mockPusher{}
	h := NewHandler(&mockTokenProvider{}, users, messages, nil, pusher)

	event := queue.NewCallCreatedEvent(&model.Call{
		ID:         "call-1",
		CallerID:   "u1",
		ReceiverID: "u2",
		Status:     model.CallStatusRinging,
	})

	// No token is not an error: the event is logged and dropped.
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pusher.sent) != 0 {
		t.Errorf("sent %d pushes, want 0", len(pusher.sent))
	}
}

func TestHandler_CallCreated_PushFailure_DropsSilently(t *testing.T) {
	tokens, users, messages := testFixtures()
	pusher := &mockPusher{err: errors.New("fcm unavailable")}
	h := NewHandler(tokens, users, messages, nil, pusher)

	event := queue.NewCallCreatedEvent(&model.Call{
		ID:         "call-1",
		CallerID:   "u1",
		ReceiverID: "u2",
		Status:     model.CallStatusRinging,
	})

	// Push failure is fire-and-forget: no error bubbles up, no retry.
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandler_MessageCreated_TextCarriesFullText(t *testing.T) {
	tokens, users, messages := testFixtures()
	longText := "this is the entire message body, not a truncated preview of it"
	messages.messages["m1"] = &model.Message{
		ID:         "m1",
		SenderID:   "u1",
		ReceiverID: "u2",
		Type:       model.MessageTypeText,
		Text:       str(longText),
	}
	pusher := &mockPusher{}
	h := NewHandler(tokens, users, messages, nil, pusher)

	event := queue.NewMessageCreatedEvent(messages.messages["m1"])
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := pusher.sent[0].Data
	if data["type"] != "message" {
		t.Errorf("type = %q, want message", data["type"])
	}
	if data["messageText"] != longText {
		t.Errorf("messageText = %q, want the full text", data["messageText"])
	}
	if data["title"] != "Grandma" {
		t.Errorf("title = %q, want the sender's name", data["title"])
	}
	if data["body"] != longText {
		t.Errorf("body = %q, want the text preview", data["body"])
	}
}

func TestHandler_MessageCreated_MediaPreviews(t *testing.T) {
	tests := []struct {
		name string
		msg  *model.Message
		want string
	}{
		{
			name: "image",
			msg:  &model.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Type: model.MessageTypeImage, ImageURL: str("https://cdn/a.jpg")},
			want: "📷 Image",
		},
		{
			name: "video",
			msg:  &model.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Type: model.MessageTypeVideo, VideoURL: str("https://cdn/a.mp4")},
			want: "🎥 Video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, users, messages := testFixtures()
			messages.messages[tt.msg.ID] = tt.msg
			pusher := &mockPusher{}
			h := NewHandler(tokens, users, messages, nil, pusher)

			if err := h.HandleEvent(context.Background(), queue.NewMessageCreatedEvent(tt.msg)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			data := pusher.sent[0].Data
			if data["body"] != tt.want {
				t.Errorf("body = %q, want %q", data["body"], tt.want)
			}
			if data["messageText"] != tt.want {
				t.Errorf("messageText = %q, want the media marker", data["messageText"])
			}
		})
	}
}

func TestHandler_Dedup_SkipsRedelivery(t *testing.T) {
	tokens, users, messages := testFixtures()
	pusher := &mockPusher{}
	h := NewHandler(tokens, users, messages, &mockSeenLog{}, pusher)

	event := queue.NewCallCreatedEvent(&model.Call{
		ID:         "call-1",
		CallerID:   "u1",
		ReceiverID: "u2",
		Status:     model.CallStatusRinging,
	})

	// First delivery pushes; the redelivery of the same stream entry is
	// skipped by the handled-event log.
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(pusher.sent) != 1 {
		t.Errorf("sent %d pushes, want exactly 1", len(pusher.sent))
	}
}

func TestHandler_NonRingingCall_NoPush(t *testing.T) {
	tokens, users, messages := testFixtures()
	pusher := &mockPusher{}
	h := NewHandler(tokens, users, messages, nil, pusher)

	event := queue.NewCallCreatedEvent(&model.Call{
		ID:         "call-1",
		CallerID:   "u1",
		ReceiverID: "u2",
		Status:     model.CallStatusEnded,
	})

	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pusher.sent) != 0 {
		t.Error("settled calls must not notify")
	}
}

func TestHandler_NilPusher_Drops(t *testing.T) {
	tokens, users, messages := testFixtures()
	h := NewHandler(tokens, users, messages, nil, nil)

	event := queue.NewCallCreatedEvent(&model.Call{
		ID:         "call-1",
		CallerID:   "u1",
		ReceiverID: "u2",
		Status:     model.CallStatusRinging,
	})

	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandler_UnknownEventType(t *testing.T) {
	tokens, users, messages := testFixtures()
	h := NewHandler(tokens, users, messages, nil, &mockPusher{})

	err := h.HandleEvent(context.Background(), queue.SignalEvent{Type: "mystery"})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
