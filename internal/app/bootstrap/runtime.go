package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cleaningpros/review-funnel/internal/bookings"
	appconfig "github.com/cleaningpros/review-funnel/internal/config"
	"github.com/cleaningpros/review-funnel/internal/feedback"
	"github.com/cleaningpros/review-funnel/internal/reviews"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, prefill cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL. It returns nil when the URL is
// empty or the database is unreachable; callers fall back to memory stores.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("postgres config invalid", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// Stores groups the record-store adapters.
type Stores struct {
	Bookings bookings.Repository
	Feedback feedback.Repository
	Reviews  reviews.Repository
	Durable  bool
}

// BuildStores returns Postgres-backed stores when pool is set and in-memory
// stores otherwise.
func BuildStores(pool *pgxpool.Pool, logger *logging.Logger) Stores {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("no database configured, records are kept in memory only")
		return Stores{
			Bookings: bookings.NewInMemoryRepository(),
			Feedback: feedback.NewInMemoryRepository(),
			Reviews:  reviews.NewInMemoryRepository(),
		}
	}
	return Stores{
		Bookings: bookings.NewPostgresRepository(pool),
		Feedback: feedback.NewPostgresRepository(pool),
		Reviews:  reviews.NewPostgresRepository(pool),
		Durable:  true,
	}
}

// BuildContactLookup wraps the booking service with the Redis prefill cache.
func BuildContactLookup(repo bookings.Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) bookings.ContactLookup {
	svc := bookings.NewService(repo, logger)
	if client == nil {
		return svc
	}
	return bookings.NewCachedLookup(svc, client, ttl, logger)
}
