package repository

import (
	"context"

	"familycalls/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*model.User, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]model.User, error)
	SetAvatar(ctx context.Context, userID, avatarURL string) error
}

type CallRepository interface {
	// Create inserts a new call record. The record starts in ringing.
	Create(ctx context.Context, call *model.Call) error
	GetByID(ctx context.Context, id string) (*model.Call, error)
	// LatestRinging finds the most recent ringing record for a caller/receiver
	// pair. Used by the push-originated accept path, which knows the caller
	// but not the call id.
	LatestRinging(ctx context.Context, callerID, receiverID string) (*model.Call, error)
	// UpdateStatus performs a compare-and-swap transition. Returns false if
	// the record was not in `from` anymore (somebody else settled it first).
	UpdateStatus(ctx context.Context, id string, from, to model.CallStatus) (bool, error)
	// ListForUser scans every record where the user is caller or receiver,
	// newest first. Records are never deleted, so this is the full history.
	ListForUser(ctx context.Context, userID string) ([]model.Call, error)
	// ListRingingForReceiver returns calls currently ringing for the user.
	ListRingingForReceiver(ctx context.Context, receiverID string) ([]model.Call, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	// ListBetween returns every message where (sender, receiver) is (a, b)
	// or (b, a), ascending by timestamp.
	ListBetween(ctx context.Context, userA, userB string) ([]model.Message, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or updates a push token for a user
	Upsert(ctx context.Context, userID, token, platform string) error
	// GetByUserID returns all push tokens for a user
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	// Delete removes a push token
	Delete(ctx context.Context, token string) error
}
