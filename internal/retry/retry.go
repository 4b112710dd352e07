// Package retry runs a collaborator call a bounded number of times with a
// fixed pause between attempts.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy is shared by every model call that retries
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// NewPolicy builds a policy, clamping MaxAttempts to at least one
func NewPolicy(maxAttempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: delay}.normalized()
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// OnRetry is invoked after a failed attempt. Attempt is zero-based.
type OnRetry func(attempt uint, err error)

// Do calls fn until it succeeds, the attempts are exhausted, or ctx is done.
// Every error is retryable. On exhaustion the last error is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), onRetry OnRetry) (T, error) {
	p = p.normalized()

	opts := []retrygo.Option{
		retrygo.Context(ctx),
		retrygo.Attempts(uint(p.MaxAttempts)),
		retrygo.Delay(p.Delay),
		retrygo.DelayType(retrygo.FixedDelay),
		retrygo.LastErrorOnly(true),
	}
	if onRetry != nil {
		opts = append(opts, retrygo.OnRetry(retrygo.OnRetryFunc(onRetry)))
	}

	return retrygo.DoWithData(func() (T, error) {
		return fn(ctx)
	}, opts...)
}
