package model

import (
	"errors"
	"time"
)

// MaxFamilyMembers caps the roster size. The check happens at registration
// time in two steps (count, then insert), so the cap is best-effort under
// concurrent registrations.
const MaxFamilyMembers = 5

// User represents a registered family member. The device ID doubles as the
// credential: whoever presents it is the user.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	DeviceID     string    `db:"device_id" json:"-"` // credential, never exposed
	AvatarURL    *string   `db:"avatar_url" json:"avatar_url"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// RegisterRequest is the body for POST /register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	DeviceID string `json:"device_id"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrCapacityExceeded is returned when the roster already holds MaxFamilyMembers
	ErrCapacityExceeded = errors.New("maximum family members limit reached")
)
