package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"familycalls/internal/model"
)

// Channel naming. Chat channels are directed — one per (sender, receiver)
// ordering — which is what forces the subscriber-side merge. Signal
// channels are per-user and carry call lifecycle changes.
func chatChannel(senderID, receiverID string) string {
	return "chat:" + senderID + ":" + receiverID
}

func signalChannel(userID string) string {
	return "signal:" + userID
}

// Broadcaster publishes stored records to live subscribers over Redis
// Pub/Sub. Publishing is fire-and-forget: a failure is logged and the
// record still reaches clients through their next snapshot load.
type Broadcaster struct {
	client *redis.Client
}

func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

// AnnounceMessage publishes a message to its directed chat channel.
func (b *Broadcaster) AnnounceMessage(ctx context.Context, msg *model.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Broadcast] marshal message failed: msg=%s err=%v", msg.ID, err)
		return
	}

	channel := chatChannel(msg.SenderID, msg.ReceiverID)
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[Broadcast] publish FAILED: channel=%s msg=%s err=%v", channel, msg.ID, err)
	}
}

// AnnounceCall publishes a call lifecycle change to both participants'
// signal channels: the receiver learns it is ringing, the caller learns it
// was accepted, rejected, or ended.
func (b *Broadcaster) AnnounceCall(ctx context.Context, call *model.Call) {
	payload, err := json.Marshal(call)
	if err != nil {
		log.Printf("[Broadcast] marshal call failed: call=%s err=%v", call.ID, err)
		return
	}

	for _, userID := range []string{call.CallerID, call.ReceiverID} {
		channel := signalChannel(userID)
		if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
			log.Printf("[Broadcast] publish FAILED: channel=%s call=%s err=%v", channel, call.ID, err)
		}
	}
}
