package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		Name:     "test",
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: time.Microsecond},
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastPolicy(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls, exhausted := 0, 0
	p := fastPolicy(3)
	p.OnExhaust = func(error) { exhausted++ }

	err := Do(context.Background(), func() error { calls++; return boom }, p)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, exhausted)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls, exhausted := 0, 0
	p := fastPolicy(5)
	p.Name = "nonretryable"
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }
	p.OnExhaust = func(error) { exhausted++ }

	err := Do(context.Background(), func() error { calls++; return fatal }, p)

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
	assert.Zero(t, exhausted, "a first-call hard failure is not an exhausted loop")
	assert.Zero(t, testutil.ToFloat64(exhaustedTotal.WithLabelValues("nonretryable")))
}

func TestDo_NoBackoffConfigured(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, Policy{Name: "nobackoff", Attempts: 3})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelWinsOverBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := fastPolicy(5)
	p.Backoff = ExpoJitter{Base: time.Minute}

	err := Do(ctx, func() error { return errors.New("transient") }, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpoJitter_CappedAtMax(t *testing.T) {
	b := ExpoJitter{Base: time.Second, Max: 4 * time.Second}
	assert.Equal(t, time.Second, b.Next(0))
	assert.Equal(t, 2*time.Second, b.Next(1))
	assert.Equal(t, 4*time.Second, b.Next(10))
}
