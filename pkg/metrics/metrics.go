package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle operation metrics
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paddock_operations_total",
			Help: "Total number of lifecycle operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "paddock_operation_duration_seconds",
			Help: "Lifecycle operation duration in seconds",
			// Operations block on member startup and switchover budgets,
			// so the buckets reach past a minute.
			Buckets: []float64{.05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// Cluster topology metrics, set by the monitor on every observation
	ClusterMembers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paddock_cluster_members",
			Help: "Cluster members reported by the HA manager, by role and state",
		},
		[]string{"role", "state"},
	)

	ClusterReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paddock_cluster_ready",
			Help: "Whether every member is running and a leader exists (1 = ready, 0 = degraded)",
		},
	)

	MemberIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paddock_member_is_leader",
			Help: "Whether the local member holds the leader role (1 = leader, 0 = replica)",
		},
	)

	LeaderChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paddock_leader_changes_total",
			Help: "Total number of observed leader changes",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(ClusterMembers)
	prometheus.MustRegister(ClusterReady)
	prometheus.MustRegister(MemberIsLeader)
	prometheus.MustRegister(LeaderChangesTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
