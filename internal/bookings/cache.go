package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cleaningpros/review-funnel/pkg/logging"
)

const cacheKeyPrefix = "reviewfunnel:prefill:"

// CachedLookup keeps successful contact lookups in Redis. Misses and
// failures are never cached, so a booking created later is picked up.
type CachedLookup struct {
	next   ContactLookup
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedLookup wraps next with a Redis cache. A nil client disables caching.
func NewCachedLookup(next ContactLookup, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedLookup {
	if next == nil {
		panic("bookings: lookup required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedLookup{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedLookup) key(number string) string {
	return cacheKeyPrefix + number
}

func (c *CachedLookup) ContactForBooking(ctx context.Context, number string) (*Contact, error) {
	if c.redis == nil || number == "" {
		return c.next.ContactForBooking(ctx, number)
	}

	data, err := c.redis.Get(ctx, c.key(number)).Bytes()
	switch {
	case err == nil:
		var contact Contact
		if jsonErr := json.Unmarshal(data, &contact); jsonErr == nil {
			return &contact, nil
		}
		c.logger.Warn("prefill cache entry unreadable", "booking_number", number)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("prefill cache read failed", "booking_number", number, "error", err)
	}

	contact, err := c.next.ContactForBooking(ctx, number)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(contact); err == nil {
		if err := c.redis.Set(ctx, c.key(number), payload, c.ttl).Err(); err != nil {
			c.logger.Warn("prefill cache write failed", "booking_number", number, "error", err)
		}
	}
	return contact, nil
}

// Cached reports whether a lookup for number is currently cached.
func (c *CachedLookup) Cached(ctx context.Context, number string) bool {
	if c.redis == nil {
		return false
	}
	n, err := c.redis.Exists(ctx, c.key(number)).Result()
	return err == nil && n > 0
}
