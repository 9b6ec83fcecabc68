package realtime

import (
	"sort"
	"sync"

	"familycalls/internal/model"
)

// ConversationMerger combines the two directed live streams of a
// conversation (A→B and B→A) into one ordered view. Arrivals are
// deduplicated by id and re-sorted on every add; ordering is only
// "sorted at merge time" — a record arriving late lands in place on the
// next emission, not retroactively.
//
// Ids loaded from the initial snapshot are marked seen-but-silent, so the
// subscription's catch-up replay never re-emits history.
type ConversationMerger struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	messages []model.Message
}

func NewConversationMerger() *ConversationMerger {
	return &ConversationMerger{seen: make(map[string]struct{})}
}

// AddSilent absorbs the initial snapshot: ids are recorded as seen and the
// messages stored, but nothing counts as a new arrival.
func (m *ConversationMerger) AddSilent(msgs []model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range msgs {
		if _, ok := m.seen[msg.ID]; ok {
			continue
		}
		m.seen[msg.ID] = struct{}{}
		m.messages = append(m.messages, msg)
	}
	m.sortLocked()
}

// Add merges one live arrival. Returns the full re-sorted conversation and
// true if the message was new; nil and false if the id was already seen.
func (m *ConversationMerger) Add(msg model.Message) ([]model.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[msg.ID]; ok {
		return nil, false
	}
	m.seen[msg.ID] = struct{}{}
	m.messages = append(m.messages, msg)
	m.sortLocked()

	return m.snapshotLocked(), true
}

// Snapshot returns a copy of the current merged conversation.
func (m *ConversationMerger) Snapshot() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *ConversationMerger) sortLocked() {
	sort.SliceStable(m.messages, func(i, j int) bool {
		if m.messages[i].CreatedAt.Equal(m.messages[j].CreatedAt) {
			return m.messages[i].ID < m.messages[j].ID
		}
		return m.messages[i].CreatedAt.Before(m.messages[j].CreatedAt)
	})
}

func (m *ConversationMerger) snapshotLocked() []model.Message {
	out := make([]model.Message, len(m.messages))
	copy(out, m.messages)
	return out
}
