package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestDo_AlwaysFails(t *testing.T) {
	calls := 0
	var retried []uint

	_, err := Do(context.Background(), NewPolicy(3, 0), func(ctx context.Context) (string, error) {
		calls++
		return "", errBoom
	}, func(attempt uint, err error) {
		retried = append(retried, attempt)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, calls)
	require.NotEmpty(t, retried)
	assert.Equal(t, uint(0), retried[0])
}

func TestDo_SucceedsOnSecondAttempt(t *testing.T) {
	calls := 0

	got, err := Do(context.Background(), NewPolicy(2, 0), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errBoom
		}
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestDo_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0

	_, err := Do(context.Background(), Policy{MaxAttempts: 0}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errBoom
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_WaitsBetweenAttempts(t *testing.T) {
	start := time.Now()

	_, _ = Do(context.Background(), NewPolicy(2, 30*time.Millisecond), func(ctx context.Context) (int, error) {
		return 0, errBoom
	}, nil)

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, NewPolicy(5, 50*time.Millisecond), func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errBoom
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewPolicy_Clamps(t *testing.T) {
	p := NewPolicy(-2, -time.Second)
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, time.Duration(0), p.Delay)
}
