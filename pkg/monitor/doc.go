/*
Package monitor watches the cluster topology and turns it into gauges
and events.

Every cycle it fetches the member list from the HA manager, refreshes
the topology gauges, and compares the snapshot against the previous one.
Differences become events on the broker: the leader moved or vanished,
readiness flipped, a member reached running state or left the cluster.

# Architecture

	ticker ──► Observe ──► GetClusterMembers (HA manager)
	                │
	                ├─► gauges: cluster_members, cluster_ready,
	                │           member_is_leader
	                │
	                └─► diff vs previous snapshot ──► events.Broker

# Design Notes

The first successful observation only primes the baseline; a monitor
joining a long-running cluster must not announce transitions that
happened before it looked. An unreadable topology keeps the previous
baseline and gauges untouched: unknown is not degraded, and the next
cycle retries. Leader transitions count into leader_changes_total only
when a new leader lands; a loss alone is half a transition.

Cycles are bounded to the tick interval so a slow manager cannot make
them pile up.

# See Also

  - pkg/events: the broker transitions are published to
  - pkg/metrics: the gauges refreshed each cycle
  - pkg/patroni: the topology source
*/
package monitor
