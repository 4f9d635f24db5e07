/*
Package api serves the controller's HTTP surface: liveness, readiness,
and metrics.

The endpoints exist for orchestration probes and Prometheus scrapes, not
for driving the cluster; lifecycle operations go through the CLI.

# Endpoints

	GET /health    liveness. 200 whenever the process can answer.
	GET /ready     readiness. 200 when the local member runs AND the
	               cluster has every member running with a leader,
	               judged from one topology snapshot; 503 otherwise,
	               with per-check detail in the body.
	GET /metrics   Prometheus exposition.

# Design Notes

/ready answers from live probes against the HA manager bounded by a
short timeout, never from cached state: a probe that cannot be answered
in time reads as not ready. The two checks are reported separately so an
operator can tell a sick local member from an unconverged cluster.

# See Also

  - pkg/patroni: the probes behind /ready
  - pkg/metrics: the collectors behind /metrics
*/
package api
