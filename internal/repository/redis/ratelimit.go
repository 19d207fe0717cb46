package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "redbot:ratelimit:"

// RateLimiter counts requests per key in one-minute windows shared by all
// server instances. Each window gets its own counter, so a counter never
// outlives the minute it belongs to.
type RateLimiter struct {
	client *Client
	limit  int64
	now    func() time.Time
}

// NewRateLimiter allows requestsPerMinute+burst requests per key and window
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  int64(requestsPerMinute + burst),
		now:    time.Now,
	}
}

// WithClock replaces the limiter's clock
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Allow records one request for key. It reports whether the request fits
// the current window, how many remain and when the window closes.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	window := r.now().Truncate(time.Minute)
	reset := window.Add(time.Minute)
	counter := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, window.Unix())

	var incr *redis.IntCmd
	_, err := r.client.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, counter)
		p.ExpireAt(ctx, counter, reset.Add(time.Second))
		return nil
	})
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to count request: %w", err)
	}

	count := incr.Val()
	return count <= r.limit, int(max(r.limit-count, 0)), reset, nil
}

// Key builds the limiter key for a bot and client address
func Key(publicKey, clientIP string) string {
	return publicKey + ":" + clientIP
}
