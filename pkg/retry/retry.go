package retry

import (
	"context"
	"time"
)

// Backoff computes the delay taken after a failed attempt. attempt is
// 1-based: Backoff(1) is the delay between the first and second attempts.
type Backoff func(attempt int) time.Duration

// Fixed returns a constant delay between attempts.
func Fixed(interval time.Duration) Backoff {
	return func(int) time.Duration {
		return interval
	}
}

// Exponential returns base doubling per attempt, clamped to cap:
// base, 2*base, 4*base, ... never exceeding cap.
func Exponential(base, cap time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= cap {
				return cap
			}
		}
		if d > cap {
			return cap
		}
		return d
	}
}

// Policy bounds a retry loop by attempt count, elapsed time, or both.
// Policies are plain values; the per-operation budgets live next to the
// operations that own them.
//
// Sleep and Now are seams for tests; nil selects real time. They are
// exported so client packages can run their retry paths instantly.
type Policy struct {
	// MaxAttempts bounds the number of calls. 0 means no attempt bound.
	MaxAttempts int

	// MaxElapsed bounds wall-clock time, checked after each failed
	// attempt. 0 means no elapsed bound. The attempt in flight when the
	// budget expires still completes, so a loop may overshoot by one
	// backoff interval.
	MaxElapsed time.Duration

	// Backoff yields the delay between attempts. Nil means 1s fixed.
	Backoff Backoff

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Do runs op until it returns nil, the policy is exhausted, or the context
// is canceled during a wait. The op's last error is returned unchanged so
// typed errors survive the loop.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	p = p.withDefaults()
	start := p.Now()

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if p.exhausted(attempt, p.Now().Sub(start)) {
			return err
		}
		if p.Sleep(ctx, p.Backoff(attempt)) != nil {
			return err
		}
	}
}

// Until runs cond until it returns true, reporting whether it ever did.
// This is the dual of Do: the retry condition is the result, not an error.
// Exhaustion and cancellation both yield false, never an error.
func (p Policy) Until(ctx context.Context, cond func(context.Context) bool) bool {
	p = p.withDefaults()
	start := p.Now()

	for attempt := 1; ; attempt++ {
		if cond(ctx) {
			return true
		}

		if p.exhausted(attempt, p.Now().Sub(start)) {
			return false
		}
		if p.Sleep(ctx, p.Backoff(attempt)) != nil {
			return false
		}
	}
}

func (p Policy) exhausted(attempt int, elapsed time.Duration) bool {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return true
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return true
	}
	return false
}

func (p Policy) withDefaults() Policy {
	if p.Backoff == nil {
		p.Backoff = Fixed(time.Second)
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
