package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// leaderDialTimeout and leaderReadTimeout bound every Redis round trip the
// coordinator's leader lease makes (internal/coordinator.Elector): a lease
// renewal that blocks past the lease TTL is worse than one that fails fast
// and lets a peer take over.
const (
	leaderDialTimeout = 2 * time.Second
	leaderReadTimeout = 2 * time.Second
)

// NewRedisClient creates a Redis client from the given URL, with timeouts
// tuned for lease renewal rather than bulk data access.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = leaderDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = leaderReadTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}
