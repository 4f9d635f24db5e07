package framework

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/cuemby/paddock/pkg/patroni"
	"github.com/cuemby/paddock/pkg/types"
)

// HAManager is an in-process stand-in for the HA manager's REST API. It
// serves the same wire format the real manager does — GET /cluster,
// GET /health, POST /switchover, POST /reload — off a mutable topology,
// so tests drive whole lifecycle flows without a database anywhere.
//
// All mutators are safe to call while a monitor polls the server.
type HAManager struct {
	mu             sync.Mutex
	members        []types.ClusterMember
	memberState    types.MemberState
	topologyDown   bool
	healthDown     bool
	switchoverCode int
	switchovers    int
	reloads        int

	server *httptest.Server
}

// NewHAManager starts the fake on a random local port. The local member
// reports running until SetMemberState says otherwise.
func NewHAManager() *HAManager {
	m := &HAManager{
		memberState: types.StateRunning,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/cluster", m.handleCluster)
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/switchover", m.handleSwitchover)
	mux.HandleFunc("/reload", m.handleReload)
	m.server = httptest.NewServer(mux)

	return m
}

// Close shuts the fake down.
func (m *HAManager) Close() {
	m.server.Close()
}

// URL returns the fake's base URL.
func (m *HAManager) URL() string {
	return m.server.URL
}

// Client returns a manager client pointed at the fake.
func (m *HAManager) Client() *patroni.Client {
	return patroni.NewClient("127.0.0.1").WithBaseURL(m.server.URL)
}

// SetMembers replaces the reported topology.
func (m *HAManager) SetMembers(members ...types.ClusterMember) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append([]types.ClusterMember(nil), members...)
}

// SetMemberState changes what GET /health reports for the local member.
func (m *HAManager) SetMemberState(state types.MemberState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberState = state
}

// SetTopologyDown makes GET /cluster return 503 while set.
func (m *HAManager) SetTopologyDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topologyDown = down
}

// SetHealthDown makes GET /health return an undecodable body while set.
func (m *HAManager) SetHealthDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthDown = down
}

// RejectSwitchover makes POST /switchover fail with the given status
// instead of rotating the leader. Zero restores acceptance.
func (m *HAManager) RejectSwitchover(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switchoverCode = code
}

// Leader returns the member currently holding the leader role, or "".
func (m *HAManager) Leader() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.Role == types.RoleLeader {
			return member.Name
		}
	}
	return ""
}

// Switchovers returns how many switchover requests were accepted.
func (m *HAManager) Switchovers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switchovers
}

// Reloads returns how many reload requests were received.
func (m *HAManager) Reloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloads
}

func (m *HAManager) handleCluster(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.topologyDown {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"members": m.members})
}

func (m *HAManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.healthDown {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"state": m.memberState})
}

func (m *HAManager) handleSwitchover(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var req struct {
		Leader string `json:"leader"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if m.switchoverCode != 0 {
		w.WriteHeader(m.switchoverCode)
		return
	}

	m.rotateLeaderLocked()
	m.switchovers++
	w.WriteHeader(http.StatusOK)
}

func (m *HAManager) handleReload(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reloads++
	w.WriteHeader(http.StatusAccepted)
}

// rotateLeaderLocked hands leadership to the first running replica, the
// way an accepted switchover resolves on the real manager.
func (m *HAManager) rotateLeaderLocked() {
	leaderIdx := -1
	candidateIdx := -1
	for i, member := range m.members {
		switch {
		case member.Role == types.RoleLeader:
			leaderIdx = i
		case candidateIdx < 0 && member.State == types.StateRunning:
			candidateIdx = i
		}
	}
	if leaderIdx < 0 || candidateIdx < 0 {
		return
	}
	m.members[leaderIdx].Role = types.RoleReplica
	m.members[candidateIdx].Role = types.RoleLeader
}

// ClusterOf builds a running topology with the named leader and
// replicas, assigning consecutive addresses in 10.89.0.0/24.
func ClusterOf(leader string, replicas ...string) []types.ClusterMember {
	members := []types.ClusterMember{{
		Name:  leader,
		Host:  "10.89.0.1",
		Port:  5432,
		Role:  types.RoleLeader,
		State: types.StateRunning,
	}}
	for i, name := range replicas {
		members = append(members, types.ClusterMember{
			Name:  name,
			Host:  fmt.Sprintf("10.89.0.%d", 2+i),
			Port:  5432,
			Role:  types.RoleReplica,
			State: types.StateRunning,
		})
	}
	return members
}
