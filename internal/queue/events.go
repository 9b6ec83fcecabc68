package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"familycalls/internal/model"
)

// Event types for the signal stream
const (
	EventCallCreated    = "call_created"
	EventMessageCreated = "message_created"
)

// Stream names
const (
	StreamSignals = "stream:signals"
)

// Consumer group name for dispatch workers
const (
	ConsumerGroupDispatch = "dispatch_workers"
)

// SignalEvent is published whenever a call or message record is created.
// It replaces the document-store trigger: the dispatch workers drain these
// and forward push payloads to the recipient's registered tokens.
type SignalEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// Call event
	CallID     string `json:"call_id,omitempty"`
	CallerID   string `json:"caller_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
	Status     string `json:"status,omitempty"`

	// Message event
	MessageID string `json:"message_id,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
}

// DedupID identifies the event in the handled-event log. Derived from the
// record id, not the stream message id, so a record republished under a new
// stream entry still deduplicates.
func (e SignalEvent) DedupID() string {
	switch e.Type {
	case EventCallCreated:
		return "call:" + e.CallID
	case EventMessageCreated:
		return "message:" + e.MessageID
	}
	return e.Type + ":" + fmt.Sprintf("%d", e.Timestamp)
}

// NewCallCreatedEvent creates the event for a freshly written call record.
func NewCallCreatedEvent(call *model.Call) SignalEvent {
	return SignalEvent{
		Type:       EventCallCreated,
		Timestamp:  time.Now().Unix(),
		CallID:     call.ID,
		CallerID:   call.CallerID,
		ReceiverID: call.ReceiverID,
		Status:     string(call.Status),
	}
}

// NewMessageCreatedEvent creates the event for a freshly written message record.
func NewMessageCreatedEvent(msg *model.Message) SignalEvent {
	return SignalEvent{
		Type:       EventMessageCreated,
		Timestamp:  time.Now().Unix(),
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so the event is serialized to JSON
// in a "data" field with the type alongside for quick inspection.
func (e SignalEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseSignalEvent parses a SignalEvent from Redis stream message values.
func ParseSignalEvent(values map[string]interface{}) (SignalEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return SignalEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event SignalEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return SignalEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
