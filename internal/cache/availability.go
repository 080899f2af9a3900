// Package cache provides an optional Redis-backed cache for the advisory
// available-seats read path. It only ever serves display reads; reservation
// decisions always go to the ledger.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Availability caches per-event available-seat counts with a short TTL.
// Cache errors degrade to a miss: callers fall through to the ledger.
type Availability struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewAvailability constructs an Availability cache.
func NewAvailability(client *redis.Client, ttl time.Duration, log *zap.Logger) *Availability {
	return &Availability{client: client, ttl: ttl, log: log}
}

func key(eventID string) string {
	return "availability:" + eventID
}

// Get returns the cached available-seat count for an event, with ok=false
// on a miss or any cache error.
func (a *Availability) Get(ctx context.Context, eventID string) (int, bool) {
	val, err := a.client.Get(ctx, key(eventID)).Result()
	if err != nil {
		if err != redis.Nil {
			a.log.Warn("availability cache read failed", zap.String("event_id", eventID), zap.Error(err))
		}
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores the available-seat count for an event. Failures are logged
// and ignored; the cache is advisory.
func (a *Availability) Set(ctx context.Context, eventID string, available int) {
	if err := a.client.Set(ctx, key(eventID), strconv.Itoa(available), a.ttl).Err(); err != nil {
		a.log.Warn("availability cache write failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

// Invalidate drops the cached count after a ledger mutation so stale
// values do not outlive the TTL.
func (a *Availability) Invalidate(ctx context.Context, eventID string) {
	if err := a.client.Del(ctx, key(eventID)).Err(); err != nil {
		a.log.Warn("availability cache invalidate failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
