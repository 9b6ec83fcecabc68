package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SeenLogKey is the sorted set holding handled-event ids, scored by
	// handling time so old entries can be trimmed.
	SeenLogKey = "dispatch:handled"

	// SeenLogRetention bounds how long handled ids are remembered. Long
	// enough to cover any stream redelivery window, short enough that the
	// log cannot grow without bound.
	SeenLogRetention = 7 * 24 * time.Hour
)

// SeenLog is a persisted record of event ids the dispatcher already handled.
// It replaces a process-local set: a worker restart replays pending stream
// entries, and without this log every replayed entry would re-notify.
type SeenLog interface {
	// MarkSeen records the id and reports whether it was newly recorded.
	// false means the event was already handled and must not be re-dispatched.
	MarkSeen(ctx context.Context, eventID string) (bool, error)

	// Trim drops entries older than the retention window.
	Trim(ctx context.Context) (int64, error)
}

// RedisSeenLog implements SeenLog on a Redis sorted set.
type RedisSeenLog struct {
	client *redis.Client
}

// NewSeenLog creates a SeenLog backed by Redis.
func NewSeenLog(client *redis.Client) SeenLog {
	return &RedisSeenLog{client: client}
}

// MarkSeen adds the id with the current time as score. ZADD NX leaves an
// existing member (and its original score) untouched, so the return value
// doubles as the "first time seen" answer.
func (l *RedisSeenLog) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	added, err := l.client.ZAddNX(ctx, SeenLogKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: eventID,
	}).Result()
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	return added == 1, nil
}

// Trim removes entries that fell out of the retention window.
func (l *RedisSeenLog) Trim(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-SeenLogRetention).Unix()
	removed, err := l.client.ZRemRangeByScore(ctx, SeenLogKey, "-inf", fmt.Sprintf("%d", cutoff)).Result()
	if err != nil {
		return 0, fmt.Errorf("trim seen log: %w", err)
	}
	if removed > 0 {
		log.Printf("[SeenLog] Trimmed %d expired entries", removed)
	}
	return removed, nil
}
