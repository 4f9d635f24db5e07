/*
Package metrics defines the Prometheus instrumentation for the cluster
lifecycle controller.

All metrics are package-level collectors registered with the default
registry at init and exposed through Handler on the controller's HTTP
endpoint. Two groups exist: operation metrics recorded by the lifecycle
controller around every operation, and topology gauges the monitor
refreshes on each observation cycle.

# Metrics

	paddock_operations_total{operation,outcome}    counter
	paddock_operation_duration_seconds{operation}  histogram
	paddock_cluster_members{role,state}            gauge
	paddock_cluster_ready                          gauge
	paddock_member_is_leader                       gauge
	paddock_leader_changes_total                   counter

Operation outcomes are "success", "failure", and "not-ready"; the last
separates the expected "cluster still settling" answer from real
failures so alert rules do not page during startup.

# Core Components

Timer is a stopwatch for operation durations. It pairs with the
histogram collectors:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "bootstrap")

Handler returns the scrape endpoint handler; pkg/api mounts it at
/metrics.

# See Also

  - pkg/lifecycle: records operation counters and durations
  - pkg/monitor: refreshes the topology gauges
  - pkg/api: serves the scrape endpoint
*/
package metrics
