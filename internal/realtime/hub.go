package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"familycalls/internal/model"
)

// ConversationProvider loads the stored conversation for the initial
// snapshot. Implemented by the message repository.
type ConversationProvider interface {
	ListBetween(ctx context.Context, userA, userB string) ([]model.Message, error)
}

// Frame is what goes over the websocket. "snapshot" carries the initial
// history (already-seen, no notification due), "messages" the re-merged
// conversation after a live arrival, "call" a call lifecycle change.
type Frame struct {
	Type     string          `json:"type"` // "snapshot" | "messages" | "call"
	Messages []model.Message `json:"messages,omitempty"`
	Call     *model.Call     `json:"call,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Device-id auth happens before the upgrade; origin carries no
		// extra trust for a native mobile client.
		return true
	},
}

// Hub serves per-conversation live subscriptions. Each connection
// subscribes to the two directed chat channels of its pair plus the user's
// call signal channel, and merges arrivals through a ConversationMerger.
type Hub struct {
	rdb     *redis.Client
	history ConversationProvider
}

func NewHub(rdb *redis.Client, history ConversationProvider) *Hub {
	return &Hub{rdb: rdb, history: history}
}

// ServeConversation upgrades the request and streams the conversation
// between userID and peerID until the client disconnects.
func (h *Hub) ServeConversation(w http.ResponseWriter, r *http.Request, userID, peerID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hub] upgrade failed: user=%s err=%v", userID, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The split subscription: both directions of the pair, merged below.
	sub := h.rdb.Subscribe(ctx,
		chatChannel(userID, peerID),
		chatChannel(peerID, userID),
		signalChannel(userID),
	)
	defer sub.Close()

	merger := NewConversationMerger()

	// Initial snapshot: history is delivered once, and its ids are marked
	// seen so the live channels replaying recent records stays silent.
	history, err := h.history.ListBetween(ctx, userID, peerID)
	if err != nil {
		log.Printf("[Hub] history load failed: user=%s peer=%s err=%v", userID, peerID, err)
	} else {
		merger.AddSilent(history)
	}
	if err := conn.WriteJSON(Frame{Type: "snapshot", Messages: merger.Snapshot()}); err != nil {
		log.Printf("[Hub] snapshot write failed: user=%s err=%v", userID, err)
		return
	}

	// Reader goroutine only notices the client going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	log.Printf("[Hub] subscribed: user=%s peer=%s", userID, peerID)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Hub] closed: user=%s peer=%s", userID, peerID)
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			if err := h.forward(conn, merger, m); err != nil {
				log.Printf("[Hub] write failed: user=%s err=%v", userID, err)
				return
			}
		}
	}
}

// forward turns one pub/sub delivery into at most one websocket frame.
func (h *Hub) forward(conn *websocket.Conn, merger *ConversationMerger, m *redis.Message) error {
	if strings.HasPrefix(m.Channel, "signal:") {
		var call model.Call
		if err := json.Unmarshal([]byte(m.Payload), &call); err != nil {
			log.Printf("[Hub] bad call payload on %s: %v", m.Channel, err)
			return nil
		}
		return conn.WriteJSON(Frame{Type: "call", Call: &call})
	}

	var msg model.Message
	if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
		log.Printf("[Hub] bad message payload on %s: %v", m.Channel, err)
		return nil
	}

	merged, changed := merger.Add(msg)
	if !changed {
		// Already seen: either the snapshot covered it or the other
		// directed channel delivered it first.
		return nil
	}
	return conn.WriteJSON(Frame{Type: "messages", Messages: merged})
}
