/*
Package lifecycle is the controller that drives a replicated database
cluster through its life on one unit: bootstrap, reconfiguration,
failover, and scale-down.

The controller owns no state and runs no loops. Each operation is a
synchronous call that sequences the collaborators — the config renderer,
the service supervisor, the HA manager's HTTP API, and the raft admin
channel — and reports what happened. Orchestration above this layer
decides when to call; this layer decides how.

# Architecture

	                      ┌────────────────────┐
	 CLI / orchestration ─►    Controller      │
	                      │                    │
	                      │ BootstrapCluster   │     ┌──────────────┐
	                      │ ConfigureOnUnit ───┼────►│ render       │
	                      │ UpdateClusterMembers     │ systemd      │
	                      │ Switchover ────────┼────►│ patroni :8008│
	                      │ RemoveRaftMember ──┼────►│ raftadmin    │
	                      │ ObserveState       │     └──────────────┘
	                      └─────────┬──────────┘
	                                │ per-operation records
	                                ▼
	                      journal + metrics + log

# Operations

ConfigureOnUnit writes everything a unit needs, in dependency order:
storage ownership, HA manager config, supervisor unit, daemon-reload,
engine config. It is idempotent; re-running heals drifted files.

BootstrapCluster is ConfigureOnUnit plus a service start, returning
whether the supervisor reports the service active. Cluster convergence
is asynchronous and checked separately with AllMembersReady.

UpdateClusterMembers re-renders the HA config for a changed peer set and
reloads the manager only when it is already running. It never starts a
stopped service.

Switchover, LeaderChangedFrom, RemoveRaftMember and the read operations
delegate to the HA and raft clients, adding instrumentation.

ObserveState derives the unit's coarse lifecycle state (unconfigured,
configuring, starting, ready-replica, ready-leader, removed) from
single-shot collaborator probes. It never blocks on retry budgets.

# Failure Semantics

Read-path exhaustion degrades to a boolean: AllMembersReady,
MemberStarted and LeaderChangedFrom answer false rather than erroring,
because "not yet" is an expected state while a cluster settles.
ErrNotReady carries that answer to callers that need an error value.
Mutating operations surface the typed errors of their collaborators
(render.Error, patroni.SwitchoverError, patroni.ReloadError,
raftadmin.RemoveMemberError) unwrapped for errors.As.

Every public operation logs its outcome, records a duration histogram
sample and an outcome counter, and appends an operation record when a
journal is attached. Journal write failures are logged and swallowed: a
history row is never worth failing a cluster operation for.

# See Also

  - pkg/patroni: the HA manager client and its retry budgets
  - pkg/render: configuration rendering
  - pkg/raftadmin: raft membership removal
  - pkg/journal: the operation record store
*/
package lifecycle
