package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the policy sleeps, so budget tests run
// instantly and deterministically.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	cancel func(attempt int) bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	if c.cancel != nil && c.cancel(len(c.slept)) {
		return context.Canceled
	}
	return nil
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) policy(p Policy) Policy {
	p.Sleep = c.Sleep
	p.Now = c.Now
	return p
}

func TestFixedBackoff(t *testing.T) {
	b := Fixed(3 * time.Second)
	assert.Equal(t, 3*time.Second, b(1))
	assert.Equal(t, 3*time.Second, b(7))
}

// TestExponentialBackoff documents the doubling schedule and the cap.
func TestExponentialBackoff(t *testing.T) {
	b := Exponential(2*time.Second, 10*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{10, 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBaseAboveCap(t *testing.T) {
	b := Exponential(30*time.Second, 10*time.Second)
	assert.Equal(t, 10*time.Second, b(1))
}

func TestDoFirstTrySuccess(t *testing.T) {
	clock := newFakeClock()
	p := clock.policy(Policy{MaxAttempts: 5, Backoff: Fixed(time.Second)})

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.slept)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	clock := newFakeClock()
	p := clock.policy(Policy{MaxAttempts: 10, Backoff: Exponential(2*time.Second, 10*time.Second)})

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 4 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, clock.slept)
}

func TestDoExhaustsAttempts(t *testing.T) {
	clock := newFakeClock()
	p := clock.policy(Policy{MaxAttempts: 10, Backoff: Fixed(time.Second)})

	sentinel := errors.New("still down")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})

	// The last error surfaces unchanged so typed errors survive the loop.
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 10, calls)
	assert.Len(t, clock.slept, 9)
}

// TestDoMaxElapsed pins the budget semantics: elapsed time is checked
// after each failed attempt, so a 10s budget with 3s waits runs attempts
// at t=0,3,6,9,12 — five attempts, overshooting by one interval.
func TestDoMaxElapsed(t *testing.T) {
	clock := newFakeClock()
	p := clock.policy(Policy{MaxElapsed: 10 * time.Second, Backoff: Fixed(3 * time.Second)})

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("not yet")
	})

	require.Error(t, err)
	assert.Equal(t, 5, calls)
}

func TestDoCanceledDuringWait(t *testing.T) {
	clock := newFakeClock()
	clock.cancel = func(attempt int) bool { return attempt >= 2 }
	p := clock.policy(Policy{MaxAttempts: 10, Backoff: Fixed(time.Second)})

	sentinel := errors.New("boom")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})

	// Cancellation during the wait surfaces the op's last error.
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, calls)
}

func TestUntilImmediateTrue(t *testing.T) {
	clock := newFakeClock()
	p := clock.policy(Policy{MaxAttempts: 10, Backoff: Fixed(time.Second)})

	assert.True(t, p.Until(context.Background(), func(context.Context) bool { return true }))
	assert.Empty(t, clock.slept)
}

// TestUntilTrueAfterAttempts mirrors the leader-change pattern: condition
// false three times, true on the fourth call.
func TestUntilTrueAfterAttempts(t *testing.T) {
	clock := newFakeClock()
	p := clock.policy(Policy{MaxAttempts: 10, Backoff: Exponential(2*time.Second, 30*time.Second)})

	calls := 0
	ok := p.Until(context.Background(), func(context.Context) bool {
		calls++
		return calls >= 4
	})

	assert.True(t, ok)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, clock.slept)
}

func TestUntilExhaustedReturnsFalse(t *testing.T) {
	clock := newFakeClock()
	p := clock.policy(Policy{MaxAttempts: 10, Backoff: Fixed(time.Second)})

	calls := 0
	ok := p.Until(context.Background(), func(context.Context) bool {
		calls++
		return false
	})

	// Exhaustion is a boolean outcome, never an error.
	assert.False(t, ok)
	assert.Equal(t, 10, calls)
}

func TestUntilCanceledDuringWait(t *testing.T) {
	clock := newFakeClock()
	clock.cancel = func(attempt int) bool { return attempt >= 1 }
	p := clock.policy(Policy{MaxAttempts: 10, Backoff: Fixed(time.Second)})

	ok := p.Until(context.Background(), func(context.Context) bool { return false })
	assert.False(t, ok)
}

func TestDefaultsApplied(t *testing.T) {
	// A zero-backoff policy still terminates via MaxAttempts with the
	// default 1s schedule.
	clock := newFakeClock()
	p := clock.policy(Policy{MaxAttempts: 2})

	err := p.Do(context.Background(), func(context.Context) error {
		return errors.New("always")
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second}, clock.slept)
}
