package model

import (
	"errors"
	"time"
)

// MessageType is the closed set of message payload kinds.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo:
		return true
	}
	return false
}

// Message is a chat record between two users. Records are immutable once
// created; there are no delivery or read receipts.
type Message struct {
	ID         string      `db:"id" json:"id"`
	SenderID   string      `db:"sender_id" json:"sender_id"`
	ReceiverID string      `db:"receiver_id" json:"receiver_id"`
	Type       MessageType `db:"type" json:"type"`
	Text       *string     `db:"text" json:"text,omitempty"`
	ImageURL   *string     `db:"image_url" json:"image_url,omitempty"`
	VideoURL   *string     `db:"video_url" json:"video_url,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Preview returns the notification preview string for the message: the
// literal text for text messages, a type marker for media.
func (m *Message) Preview() string {
	switch m.Type {
	case MessageTypeImage:
		return "📷 Image"
	case MessageTypeVideo:
		return "🎥 Video"
	case MessageTypeText:
		if m.Text != nil && *m.Text != "" {
			return *m.Text
		}
	}
	return "New message"
}

// SendMessageRequest is the body for POST /messages.
type SendMessageRequest struct {
	ReceiverID string      `json:"receiver_id"`
	Type       MessageType `json:"type"`
	Text       *string     `json:"text,omitempty"`
	ImageURL   *string     `json:"image_url,omitempty"`
	VideoURL   *string     `json:"video_url,omitempty"`
}

var (
	// ErrMessageNotFound is returned when a message record cannot be found
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidMessageType is returned for a type outside text/image/video
	ErrInvalidMessageType = errors.New("invalid message type")

	// ErrEmptyMessage is returned when the payload field for the declared type is missing
	ErrEmptyMessage = errors.New("message payload is empty")

	// ErrDeliveryFailed wraps any store or push failure on the send path
	ErrDeliveryFailed = errors.New("delivery failed")
)
