/*
Package retry provides bounded retry loops with pluggable backoff for
Paddock's HA manager interactions.

Cluster lifecycle operations talk to a manager that is frequently,
legitimately, mid-restart: topology queries race elections, switchovers get
rejected while one is in flight, reloads hit connection resets. Every such
operation carries an explicit budget — attempts, wall-clock, backoff shape —
and those budgets are data, not code scattered across call sites.

# Architecture

	┌───────────────────────────────────────────────┐
	│                 Policy (value)                │
	│  MaxAttempts / MaxElapsed / Backoff           │
	│  Sleep + Now seams (tests run instantly)      │
	└──────────┬──────────────────────┬─────────────┘
	           │                      │
	           ▼                      ▼
	     Do(ctx, op)            Until(ctx, cond)
	   retry-on-error        retry-until-predicate
	   returns last error    returns bool, never error

The two primitives are deliberately distinct. Do treats an error as "try
again" and surfaces the final error unchanged, preserving typed errors.
Until treats a false result as "ask again" and converts exhaustion to
false — polling for a condition that never materializes is an answer, not
a failure.

# Core Components

## Policy

	retry.Policy{
		MaxAttempts: 10,                                  // 0 = unbounded
		MaxElapsed:  10 * time.Second,                    // 0 = unbounded
		Backoff:     retry.Exponential(2*time.Second, 10*time.Second),
	}

MaxElapsed is checked after each failed attempt, so the attempt in flight
when the budget expires still completes; a loop may overshoot by one
backoff interval. Both bounds may be set together.

## Backoff

  - Fixed(d): constant delay
  - Exponential(base, cap): base, 2*base, 4*base, ... clamped to cap

# Usage Examples

Retry on error:

	policy := retry.Policy{
		MaxAttempts: 10,
		Backoff:     retry.Exponential(2*time.Second, 10*time.Second),
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		return client.fetchTopology(ctx)
	})

Retry until a condition holds:

	changed := retry.Policy{
		MaxAttempts: 10,
		Backoff:     retry.Exponential(2*time.Second, 30*time.Second),
	}.Until(ctx, func(ctx context.Context) bool {
		leader, _ := client.GetLeader(ctx, false)
		return leader != previous
	})

Instant tests via the exported seams:

	clock := time.Unix(0, 0)
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		clock = clock.Add(d)
		return nil
	}
	p.Now = func() time.Time { return clock }

# Design Patterns

## Budgets As Values

A Policy is comparable, copyable configuration. The packages that own
operations declare their budgets as package-level vars next to the methods
that spend them, which makes every budget reviewable in one place.

## Cancellation

Context cancellation is only observed while waiting: a wait aborts and the
loop returns immediately (Do: the op's last error; Until: false). An op
that should abort mid-attempt must watch the context itself, which every
HTTP and exec call in this repo already does.

# See Also

  - pkg/patroni - declares the per-operation budgets
  - pkg/raftadmin - single-shot by design; no budgets
*/
package retry
