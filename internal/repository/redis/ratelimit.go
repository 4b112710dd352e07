package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:user:"

// countScript increments the window counter and sets its expiry on first use
var countScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter caps messages per end user in fixed one-minute windows
type RateLimiter struct {
	client *Client
	limit  int64
	now    func() time.Time
}

// NewRateLimiter allows perMinute+burst messages per user per window
func NewRateLimiter(client *Client, perMinute, burst int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 0 {
		burst = 0
	}
	return &RateLimiter{client: client, limit: int64(perMinute + burst), now: time.Now}
}

// Allow counts one message for userID and reports whether it fits the window,
// how many remain and when the window resets
func (r *RateLimiter) Allow(ctx context.Context, userID string) (bool, int, time.Time, error) {
	window := r.now().Truncate(time.Minute)
	reset := window.Add(time.Minute)
	key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, userID, window.Unix())

	count, err := countScript.Run(ctx, r.client.rdb, []string{key}, time.Minute.Milliseconds()).Int64()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to count messages for user: %w", err)
	}

	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= r.limit, int(remaining), reset, nil
}
