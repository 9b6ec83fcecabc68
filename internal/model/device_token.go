package model

import (
	"time"
)

// DeviceToken is a user's registered push token. A user can hold several,
// one per install. If the same token shows up under a different user the
// upsert reassigns it (device changed hands).
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"` // FCM token, hidden from JSON
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterTokenRequest is the request body for registering a push token.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // "ios" or "android"
}

// RemoveTokenRequest is the request body for removing a push token.
type RemoveTokenRequest struct {
	Token string `json:"token"`
}

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)
