/*
Package patroni is the typed HTTP client for the HA manager's control API.

Every unit runs an HA manager process that owns the database engine and
exposes a REST control surface on the local network. This package wraps
that surface method-per-endpoint, attaches the retry budget each operation
is documented to spend, and converts outcomes into the repo's error
taxonomy. It holds no state beyond configuration; the manager itself is
the source of truth and is re-queried on every call.

# Architecture

	┌──────────────────────────────────────────────────────┐
	│                     patroni.Client                   │
	│        base http://<self>:8008, injectable clock     │
	└───┬──────────────┬───────────────┬──────────────┬────┘
	    │ GET /cluster │ GET /health   │ POST         │ POST
	    ▼              ▼               ▼ /switchover  ▼ /reload
	 topology      local state      leadership     config
	 + readiness   + started        transfer       re-read

# Retry Budgets

Each operation owns an explicit budget, declared next to the client:

	GetClusterMembers   exponential 2s..10s, 10 attempts  → UnavailableError
	AllMembersReady     fixed 3s, 10s window              → false, never error
	MemberStarted       fixed 3s, 60s window              → false, never error
	Switchover          fixed 3s, 60s window              → SwitchoverError
	LeaderChangedFrom   exponential 2s..30s, 10 attempts  → false, never error
	ReloadConfiguration exponential 2s..10s, 3 attempts   → ReloadError

Read paths degrade to booleans because an unreadable manager during
startup or failover is an expected condition. Mutating paths surface
typed errors carrying what the caller needs to decide on remediation: the
final HTTP status for a rejected switchover, the transport cause when no
response ever arrived.

# Core Components

## Client

One Client per unit, pointed at the local manager:

	client := patroni.NewClient("10.0.0.5")

	members, err := client.GetClusterMembers(ctx)
	if err != nil {
		var unavailable *patroni.UnavailableError
		if errors.As(err, &unavailable) {
			// topology unreadable after the full budget; re-poll later
		}
	}

## Readiness

AllMembersReady evaluates one fetched snapshot, never two: membership can
change between fetches, and comparing across them races failovers. The
predicate itself is exported for callers that already hold a snapshot:

	patroni.MembersReady(members) // all running AND at least one leader

## Leadership

GetLeader scans a single snapshot for the leader role. The optional unit
pattern conversion rewrites "app-2" to "app/2" for display next to
orchestrator unit names; lookups always use the raw member name.

Switchover and LeaderChangedFrom are deliberately separate operations:
initiation is acknowledged within one call's budget, while completion can
outlast any single HTTP timeout. Callers confirm afterwards:

	if err := client.Switchover(ctx); err != nil {
		return err
	}
	if !client.LeaderChangedFrom(ctx, oldLeader) {
		// still the same leader after the full poll budget
	}

LeaderChangedFrom retries while the answer is "unchanged", not while
calls fail — a fetch error reads as unchanged and consumes an attempt,
and a leaderless snapshot compares as changed (only exact name equality
keeps the loop going).

# Design Patterns

## Single-Snapshot Evaluation

Predicates over topology (readiness, leadership) bind to exactly one GET
/cluster response. The retry loops around them exist to obtain a
snapshot, not to wait for the predicate to become true — except
LeaderChangedFrom, whose whole contract is waiting for the fact to
change.

## Injectable Clock

WithClock replaces the sleep and time source on every budget, so the unit
tests drive 60-second budgets in microseconds and assert exact attempt
counts and backoff schedules.

# Troubleshooting

UnavailableError from GetClusterMembers after ~70s of backoff usually
means the manager service is not running at all; check the supervisor
before suspecting the network. SwitchoverError with status 503 means an
election was already in flight for the whole budget, which points at a
flapping member rather than a rejected request.

# See Also

  - pkg/retry - the budget primitives (Do and Until)
  - pkg/lifecycle - the coordinator that spends these budgets
  - pkg/types - ClusterMember and the role/state enums
*/
package patroni
