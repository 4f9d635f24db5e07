package types

import (
	"net"
	"strconv"
	"time"
)

// ClusterSpec is the input to every configuration operation. The
// orchestration layer constructs one per event and passes it down; nothing
// in this repo caches or mutates it.
type ClusterSpec struct {
	// ClusterName is the HA manager scope identifier shared by all members.
	ClusterName string `json:"clusterName" yaml:"clusterName" validate:"required"`

	// MemberName is this unit's member name, e.g. "postgresql-2".
	MemberName string `json:"memberName" yaml:"memberName" validate:"required"`

	// SelfAddress is the IP the HA manager and raft channel bind on.
	SelfAddress string `json:"selfAddress" yaml:"selfAddress" validate:"required,ip|hostname"`

	// PeerAddresses are the other members' addresses. Empty for the first
	// unit of a fresh cluster.
	PeerAddresses []string `json:"peerAddresses" yaml:"peerAddresses" validate:"omitempty,dive,ip|hostname"`

	// PlannedUnitCount is the target member count. Synchronous replication
	// is enabled when it is greater than one.
	PlannedUnitCount int `json:"plannedUnits" yaml:"plannedUnits" validate:"min=1"`

	// SuperuserPassword and ReplicationPassword are written into the
	// rendered HA manager config and nowhere else.
	SuperuserPassword   Secret `json:"superuserPassword" yaml:"superuserPassword" validate:"required"`
	ReplicationPassword Secret `json:"replicationPassword" yaml:"replicationPassword" validate:"required"`

	// StoragePath is the base directory for rendered configuration and
	// raft state, e.g. /var/lib/postgresql/data.
	StoragePath string `json:"storagePath" yaml:"storagePath" validate:"required"`
}

// ClusterMember is one row of the topology reported by the HA manager.
type ClusterMember struct {
	Name     string      `json:"name" yaml:"name"`
	Host     string      `json:"host" yaml:"host"`
	Port     int         `json:"port,omitempty" yaml:"port,omitempty"`
	Role     MemberRole  `json:"role" yaml:"role"`
	State    MemberState `json:"state" yaml:"state"`
	APIURL   string      `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	Timeline int         `json:"timeline,omitempty" yaml:"timeline,omitempty"`
}

// IsLeader reports whether the member holds the leader role.
func (m *ClusterMember) IsLeader() bool {
	return m.Role == RoleLeader
}

// MemberRole is the replication role the HA manager reports for a member.
type MemberRole string

const (
	RoleLeader      MemberRole = "leader"
	RoleReplica     MemberRole = "replica"
	RoleSyncStandby MemberRole = "sync_standby"
)

// MemberState is the process state the HA manager reports for a member.
type MemberState string

const (
	StateRunning    MemberState = "running"
	StateStarting   MemberState = "starting"
	StateRestarting MemberState = "restarting"
	StateStopped    MemberState = "stopped"
	StateCrashed    MemberState = "crashed"
)

// NodeState is the lifecycle state of the local unit as observed through
// the rendered filesystem, the service supervisor, and the HA manager.
// It is derived on demand, never stored.
type NodeState string

const (
	NodeUnconfigured NodeState = "unconfigured"
	NodeConfiguring  NodeState = "configuring"
	NodeStarting     NodeState = "starting"
	NodeReadyReplica NodeState = "ready-replica"
	NodeReadyLeader  NodeState = "ready-leader"
	NodeRemoved      NodeState = "removed"
)

// Ready reports whether the state is one of the ready states.
func (s NodeState) Ready() bool {
	return s == NodeReadyReplica || s == NodeReadyLeader
}

// OperationOutcome classifies how a lifecycle operation ended.
type OperationOutcome string

const (
	OutcomeSuccess  OperationOutcome = "success"
	OutcomeFailure  OperationOutcome = "failure"
	OutcomeNotReady OperationOutcome = "not-ready"
)

// OperationRecord is one journal entry describing a lifecycle operation.
type OperationRecord struct {
	ID        string           `json:"id"`
	Operation string           `json:"operation"`
	Member    string           `json:"member,omitempty"`
	Outcome   OperationOutcome `json:"outcome"`
	Error     string           `json:"error,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}

// SyncReplication reports whether the spec calls for synchronous commit.
// A single planned unit has nothing to replicate to synchronously.
func (s *ClusterSpec) SyncReplication() bool {
	return s.PlannedUnitCount > 1
}

// RaftPartners returns the peer raft endpoints (host:port) for the given
// raft port.
func (s *ClusterSpec) RaftPartners(port int) []string {
	partners := make([]string, 0, len(s.PeerAddresses))
	for _, peer := range s.PeerAddresses {
		partners = append(partners, net.JoinHostPort(peer, strconv.Itoa(port)))
	}
	return partners
}
