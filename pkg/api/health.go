package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/paddock/pkg/metrics"
	"github.com/cuemby/paddock/pkg/patroni"
	"github.com/cuemby/paddock/pkg/types"
)

// readinessTimeout bounds the collaborator probes behind /ready so a
// hung HA manager cannot hold handler goroutines open.
const readinessTimeout = 5 * time.Second

// ClusterClient is the slice of the HA manager client the health
// endpoints probe. *patroni.Client implements it.
type ClusterClient interface {
	MemberState(ctx context.Context) (types.MemberState, error)
	GetClusterMembers(ctx context.Context) ([]types.ClusterMember, error)
}

// HealthServer provides HTTP health check endpoints
type HealthServer struct {
	cluster ClusterClient
	version string
	mux     *http.ServeMux
}

// NewHealthServer creates a new health check HTTP server
func NewHealthServer(cluster ClusterClient) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		cluster: cluster,
		mux:     mux,
	}

	// Register endpoints
	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// WithVersion sets the version reported by /health.
func (hs *HealthServer) WithVersion(version string) *HealthServer {
	hs.version = version
	return hs
}

// Start starts the health check HTTP server
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements the /health endpoint
// This is a simple liveness check - returns 200 if the process is alive
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   hs.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler implements the /ready endpoint
// Ready means the local member runs and the cluster has a leader with
// every member running, judged from one topology snapshot
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string)
	ready := true
	var message string

	// Check 1: local member state
	if hs.cluster != nil {
		state, err := hs.cluster.MemberState(ctx)
		switch {
		case err != nil:
			checks["member"] = fmt.Sprintf("error: %v", err)
			ready = false
			message = "HA manager not reachable"
		case state == types.StateRunning:
			checks["member"] = string(state)
		default:
			checks["member"] = string(state)
			ready = false
			message = "Local member is not running"
		}
	} else {
		checks["member"] = "not initialized"
		ready = false
		message = "Cluster client not initialized"
	}

	// Check 2: cluster convergence from a single snapshot
	if hs.cluster != nil {
		members, err := hs.cluster.GetClusterMembers(ctx)
		switch {
		case err != nil:
			checks["cluster"] = fmt.Sprintf("error: %v", err)
			ready = false
			if message == "" {
				message = "Cluster topology not readable"
			}
		case patroni.MembersReady(members):
			checks["cluster"] = fmt.Sprintf("%d members running with a leader", len(members))
		default:
			checks["cluster"] = "members not running or no leader"
			ready = false
			if message == "" {
				message = "Cluster has not converged"
			}
		}
	} else {
		checks["cluster"] = "not initialized"
		ready = false
	}

	// Prepare response
	status := "ready"
	statusCode := http.StatusOK

	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}
