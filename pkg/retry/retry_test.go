package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterRecoverableFailures(t *testing.T) {
	calls := 0
	var seen []int
	err := Do(context.Background(), Policy{
		Attempts:  5,
		Delay:     time.Millisecond,
		OnFailure: func(attempt int, _ error) { seen = append(seen, attempt) },
	}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 4}, func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestDo_FatalStopsImmediately(t *testing.T) {
	bad := errors.New("bad config")
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 10}, func(context.Context) error {
		calls++
		return Fatal(bad)
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, bad, err)
	assert.False(t, IsExhausted(err))
}

func TestDo_ZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return errors.New("nope")
	})
	assert.Equal(t, 1, calls)
	assert.True(t, IsExhausted(err))
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 100, Delay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsExhausted(err))
}

func TestFatal_Nil(t *testing.T) {
	assert.NoError(t, Fatal(nil))
	assert.False(t, IsFatal(nil))
}
