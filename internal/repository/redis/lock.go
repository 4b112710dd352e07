package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLockPrefix   = "lock:user:"
	lockPollInterval = 50 * time.Millisecond
)

// ErrLockTimeout is returned when the lock stays held past the wait budget
var ErrLockTimeout = errors.New("timed out waiting for user lock")

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UserLock serializes work per user across processes
type UserLock struct {
	client *Client
	ttl    time.Duration
	wait   time.Duration
}

// NewUserLock creates a lock whose keys expire after ttl. Lock gives up after wait.
func NewUserLock(client *Client, ttl, wait time.Duration) *UserLock {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &UserLock{client: client, ttl: ttl, wait: wait}
}

// Lock blocks until the user's lock is held, then returns its release func
func (l *UserLock) Lock(ctx context.Context, userID string) (func(), error) {
	key := userLockPrefix + userID
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire user lock: %w", err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func (l *UserLock) release(key, token string) {
	// the request context may already be cancelled; release on a fresh one
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.client.rdb, []string{key}, token).Err()
}
