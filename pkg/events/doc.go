/*
Package events provides the in-memory broker that fans out observed
cluster state transitions.

The monitor publishes an event whenever its view of the cluster changes:
the leader moved or disappeared, readiness flipped, a member started or
was removed. Subscribers (the CLI's monitor output, tests, future hooks)
receive them on buffered channels without coupling to the monitor.

# Architecture

	Publisher ──► event channel (buffer 100)
	                   │
	              broadcast loop
	              ┌────┴─────┐
	              ▼          ▼
	        subscriber  subscriber   (buffer 50 each,
	                                  full buffer drops)

# Event Types

	leader.changed     the leader role moved between members
	leader.lost        a known leader disappeared without a successor
	cluster.ready      every member running and a leader present
	cluster.degraded   readiness lost
	member.started     a member reached the running state
	member.removed     a member left the reported topology

# Design Notes

Publishing never blocks on a slow consumer. Delivery is best effort per
subscriber: when a subscriber's buffer is full the event is dropped for
that subscriber only. State transitions are re-derived on every monitor
cycle, so a dropped event is stale news, not lost state.

# See Also

  - pkg/monitor: the only publisher
  - pkg/lifecycle: the operations whose effects these events describe
*/
package events
