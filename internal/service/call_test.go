package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"familycalls/internal/model"
)

type mockCallRepository struct {
	createFn                 func(ctx context.Context, call *model.Call) error
	getByIDFn                func(ctx context.Context, id string) (*model.Call, error)
	latestRingingFn          func(ctx context.Context, callerID, receiverID string) (*model.Call, error)
	updateStatusFn           func(ctx context.Context, id string, from, to model.CallStatus) (bool, error)
	listForUserFn            func(ctx context.Context, userID string) ([]model.Call, error)
	listRingingForReceiverFn func(ctx context.Context, receiverID string) ([]model.Call, error)

	updateCalls []updateStatusCall
}

type updateStatusCall struct {
	ID   string
	From model.CallStatus
	To   model.CallStatus
}

func (m *mockCallRepository) Create(ctx context.Context, call *model.Call) error {
	if m.createFn != nil {
		return m.createFn(ctx, call)
	}
	call.ID = "call-1"
	call.CreatedAt = time.Now()
	return nil
}

func (m *mockCallRepository) GetByID(ctx context.Context, id string) (*model.Call, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrCallNotFound
}

func (m *mockCallRepository) LatestRinging(ctx context.Context, callerID, receiverID string) (*model.Call, error) {
	if m.latestRingingFn != nil {
		return m.latestRingingFn(ctx, callerID, receiverID)
	}
	return nil, model.ErrCallNotFound
}

func (m *mockCallRepository) UpdateStatus(ctx context.Context, id string, from, to model.CallStatus) (bool, error) {
	m.updateCalls = append(m.updateCalls, updateStatusCall{ID: id, From: from, To: to})
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, from, to)
	}
	return true, nil
}

func (m *mockCallRepository) ListForUser(ctx context.Context, userID string) ([]model.Call, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockCallRepository) ListRingingForReceiver(ctx context.Context, receiverID string) ([]model.Call, error) {
	if m.listRingingForReceiverFn != nil {
		return m.listRingingForReceiverFn(ctx, receiverID)
	}
	return nil, nil
}

// usersWith returns a user repo mock that knows the given ids.
func usersWith(ids ...string) *mockUserRepository {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return &mockUserRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if known[id] {
				return &model.User{ID: id, Name: "Member " + id}, nil
			}
			return nil, model.ErrUserNotFound
		},
	}
}

func TestCallService_Initiate_Success(t *testing.T) {
	mockCalls := &mockCallRepository{}
	svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

	call, err := svc.Initiate(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.Status != model.CallStatusRinging {
		t.Errorf("status = %q, want %q", call.Status, model.CallStatusRinging)
	}
	if call.CallerID != "u1" || call.ReceiverID != "u2" {
		t.Errorf("participants = (%s, %s), want (u1, u2)", call.CallerID, call.ReceiverID)
	}
}

func TestCallService_Initiate_SelfCall(t *testing.T) {
	svc := NewCallService(&mockCallRepository{}, usersWith("u1"), nil, nil)

	_, err := svc.Initiate(context.Background(), "u1", "u1")
	if !errors.Is(err, model.ErrNotParticipant) {
		t.Errorf("error = %v, want %v", err, model.ErrNotParticipant)
	}
}

func TestCallService_Initiate_UnknownReceiver(t *testing.T) {
	svc := NewCallService(&mockCallRepository{}, usersWith("u1"), nil, nil)

	_, err := svc.Initiate(context.Background(), "u1", "ghost")
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("error = %v, want %v", err, model.ErrUserNotFound)
	}
}

func TestCallService_Initiate_NoBusyCheck(t *testing.T) {
	// A receiver already ringing still gets a second, independent record.
	created := 0
	mockCalls := &mockCallRepository{
		createFn: func(ctx context.Context, call *model.Call) error {
			created++
			call.ID = "call-" + string(rune('0'+created))
			return nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2", "u3"), nil, nil)

	if _, err := svc.Initiate(context.Background(), "u1", "u2"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.Initiate(context.Background(), "u3", "u2"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if created != 2 {
		t.Errorf("created %d records, want 2", created)
	}
}

func TestCallService_Accept_Success(t *testing.T) {
	ringing := &model.Call{ID: "call-1", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusRinging}
	mockCalls := &mockCallRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Call, error) {
			return ringing, nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

	join, err := svc.Accept(context.Background(), "call-1", "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if join == nil {
		t.Fatal("expected join info")
	}
	if join.Channel != "u1_u2" {
		t.Errorf("channel = %q, want %q", join.Channel, "u1_u2")
	}
	if join.RTCUID != RTCUserID("u2") {
		t.Errorf("rtc uid = %d, want %d", join.RTCUID, RTCUserID("u2"))
	}

	if len(mockCalls.updateCalls) != 1 {
		t.Fatalf("UpdateStatus called %d times, want 1", len(mockCalls.updateCalls))
	}
	upd := mockCalls.updateCalls[0]
	if upd.From != model.CallStatusRinging || upd.To != model.CallStatusAccepted {
		t.Errorf("transition = %s->%s, want ringing->accepted", upd.From, upd.To)
	}
}

func TestCallService_Accept_OnlyReceiver(t *testing.T) {
	ringing := &model.Call{ID: "call-1", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusRinging}
	mockCalls := &mockCallRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Call, error) {
			return ringing, nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

	// The caller cannot accept their own call.
	if _, err := svc.Accept(context.Background(), "call-1", "u1"); !errors.Is(err, model.ErrNotParticipant) {
		t.Errorf("caller accept: error = %v, want %v", err, model.ErrNotParticipant)
	}
	// Neither can a third party.
	if _, err := svc.Accept(context.Background(), "call-1", "u3"); !errors.Is(err, model.ErrNotParticipant) {
		t.Errorf("third-party accept: error = %v, want %v", err, model.ErrNotParticipant)
	}
}

func TestCallService_Accept_LostRace(t *testing.T) {
	// The CAS returns false: somebody settled the record first. The caller
	// gets ErrCallSettled, never a silent overwrite.
	ringing := &model.Call{ID: "call-1", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusRinging}
	mockCalls := &mockCallRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Call, error) {
			return ringing, nil
		},
		updateStatusFn: func(ctx context.Context, id string, from, to model.CallStatus) (bool, error) {
			return false, nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

	_, err := svc.Accept(context.Background(), "call-1", "u2")
	if !errors.Is(err, model.ErrCallSettled) {
		t.Errorf("error = %v, want %v", err, model.ErrCallSettled)
	}
}

func TestCallService_AnswerLatest(t *testing.T) {
	// Push-originated accept: the payload names the caller, and the most
	// recent ringing record for the pair is the one answered.
	latest := &model.Call{ID: "call-9", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusRinging}
	mockCalls := &mockCallRepository{
		latestRingingFn: func(ctx context.Context, callerID, receiverID string) (*model.Call, error) {
			if callerID == "u1" && receiverID == "u2" {
				return latest, nil
			}
			return nil, model.ErrCallNotFound
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

	join, err := svc.AnswerLatest(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if join.Channel != "u1_u2" {
		t.Errorf("channel = %q, want %q", join.Channel, "u1_u2")
	}
	if len(mockCalls.updateCalls) != 1 || mockCalls.updateCalls[0].ID != "call-9" {
		t.Errorf("expected the latest ringing record to be settled, got %+v", mockCalls.updateCalls)
	}
}

func TestCallService_Reject(t *testing.T) {
	ringing := &model.Call{ID: "call-1", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusRinging}
	mockCalls := &mockCallRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Call, error) {
			return ringing, nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

	if err := svc.Reject(context.Background(), "call-1", "u2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	upd := mockCalls.updateCalls[0]
	if upd.To != model.CallStatusRejected {
		t.Errorf("transition to %s, want rejected", upd.To)
	}
}

func TestCallService_End_EitherParty(t *testing.T) {
	for _, userID := range []string{"u1", "u2"} {
		ringing := &model.Call{ID: "call-1", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusRinging}
		mockCalls := &mockCallRepository{
			getByIDFn: func(ctx context.Context, id string) (*model.Call, error) {
				return ringing, nil
			},
		}
		svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

		if err := svc.End(context.Background(), "call-1", userID); err != nil {
			t.Errorf("End by %s: unexpected error: %v", userID, err)
		}
	}
}

func TestCallService_End_NotParticipant(t *testing.T) {
	ringing := &model.Call{ID: "call-1", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusRinging}
	mockCalls := &mockCallRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Call, error) {
			return ringing, nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2", "u3"), nil, nil)

	if err := svc.End(context.Background(), "call-1", "u3"); !errors.Is(err, model.ErrNotParticipant) {
		t.Errorf("error = %v, want %v", err, model.ErrNotParticipant)
	}
}

func TestCallService_History_Classification(t *testing.T) {
	now := time.Now()
	records := []model.Call{
		{ID: "c1", CallerID: "me", ReceiverID: "u2", Status: model.CallStatusAccepted, CreatedAt: now},
		{ID: "c2", CallerID: "u2", ReceiverID: "me", Status: model.CallStatusRejected, CreatedAt: now},
		{ID: "c3", CallerID: "u2", ReceiverID: "me", Status: model.CallStatusRinging, CreatedAt: now},
		{ID: "c4", CallerID: "me", ReceiverID: "u2", Status: model.CallStatusRinging, CreatedAt: now},
		{ID: "c5", CallerID: "me", ReceiverID: "u2", Status: model.CallStatusEnded, CreatedAt: now},
	}
	mockCalls := &mockCallRepository{
		listForUserFn: func(ctx context.Context, userID string) ([]model.Call, error) {
			return records, nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("me", "u2"), nil, nil)

	entries, err := svc.History(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != len(records) {
		t.Fatalf("got %d entries, want %d", len(entries), len(records))
	}

	want := []struct {
		direction string
		outcome   string
	}{
		{model.CallDirectionOutgoing, model.CallOutcomeAnswered},
		{model.CallDirectionIncoming, model.CallOutcomeRejected},
		{model.CallDirectionIncoming, model.CallOutcomeMissed},     // still ringing, I was receiver
		{model.CallDirectionOutgoing, model.CallOutcomeUnanswered}, // still ringing, I was caller
		{model.CallDirectionOutgoing, model.CallOutcomeUnanswered},
	}
	for i, w := range want {
		if entries[i].Direction != w.direction {
			t.Errorf("entry %d direction = %q, want %q", i, entries[i].Direction, w.direction)
		}
		if entries[i].Outcome != w.outcome {
			t.Errorf("entry %d outcome = %q, want %q", i, entries[i].Outcome, w.outcome)
		}
		if entries[i].PeerID != "u2" {
			t.Errorf("entry %d peer = %q, want u2", i, entries[i].PeerID)
		}
	}
}

func TestCallService_JoinInfoFor(t *testing.T) {
	accepted := &model.Call{ID: "call-1", CallerID: "u1", ReceiverID: "u2", Status: model.CallStatusAccepted}
	mockCalls := &mockCallRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Call, error) {
			return accepted, nil
		},
	}
	svc := NewCallService(mockCalls, usersWith("u1", "u2"), nil, nil)

	join, err := svc.JoinInfoFor(context.Background(), "call-1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if join.RTCUID != RTCUserID("u1") {
		t.Errorf("rtc uid = %d, want %d", join.RTCUID, RTCUserID("u1"))
	}

	// A record that never got accepted has no join info.
	accepted.Status = model.CallStatusRejected
	if _, err := svc.JoinInfoFor(context.Background(), "call-1", "u1"); !errors.Is(err, model.ErrCallSettled) {
		t.Errorf("error = %v, want %v", err, model.ErrCallSettled)
	}
}

func TestMediaChannelName(t *testing.T) {
	// Both orderings of the pair produce the same channel.
	if got := MediaChannelName("alice", "bob"); got != "alice_bob" {
		t.Errorf("MediaChannelName(alice, bob) = %q, want alice_bob", got)
	}
	if got := MediaChannelName("bob", "alice"); got != "alice_bob" {
		t.Errorf("MediaChannelName(bob, alice) = %q, want alice_bob", got)
	}
}

func TestRTCUserID(t *testing.T) {
	a := RTCUserID("user-a")
	b := RTCUserID("user-a")
	if a != b {
		t.Error("RTCUserID must be deterministic")
	}
	if a&0x80000000 != 0 {
		t.Error("RTCUserID must fit in a positive 31-bit value")
	}
	if RTCUserID("user-b") == a {
		t.Error("different users should (practically) get different ids")
	}
}
