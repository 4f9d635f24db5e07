package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *ClusterSpec {
	return &ClusterSpec{
		ClusterName:         "postgresql",
		MemberName:          "postgresql-0",
		SelfAddress:         "10.0.0.5",
		PeerAddresses:       []string{"10.0.0.6", "10.0.0.7"},
		PlannedUnitCount:    3,
		SuperuserPassword:   Secret("super"),
		ReplicationPassword: Secret("repl"),
		StoragePath:         "/var/lib/postgresql/data",
	}
}

// TestClusterSpecValidate covers the tag rules and the cross-field rules.
func TestClusterSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClusterSpec)
		wantErr bool
	}{
		{
			name:    "valid spec",
			mutate:  func(s *ClusterSpec) {},
			wantErr: false,
		},
		{
			name:    "single unit with no peers",
			mutate:  func(s *ClusterSpec) { s.PeerAddresses = nil; s.PlannedUnitCount = 1 },
			wantErr: false,
		},
		{
			name:    "missing cluster name",
			mutate:  func(s *ClusterSpec) { s.ClusterName = "" },
			wantErr: true,
		},
		{
			name:    "missing member name",
			mutate:  func(s *ClusterSpec) { s.MemberName = "" },
			wantErr: true,
		},
		{
			name:    "missing self address",
			mutate:  func(s *ClusterSpec) { s.SelfAddress = "" },
			wantErr: true,
		},
		{
			name:    "hostname self address accepted",
			mutate:  func(s *ClusterSpec) { s.SelfAddress = "db-0.internal" },
			wantErr: false,
		},
		{
			name:    "zero planned units",
			mutate:  func(s *ClusterSpec) { s.PlannedUnitCount = 0 },
			wantErr: true,
		},
		{
			name:    "planned units below known members",
			mutate:  func(s *ClusterSpec) { s.PlannedUnitCount = 2 },
			wantErr: true,
		},
		{
			name:    "missing superuser password",
			mutate:  func(s *ClusterSpec) { s.SuperuserPassword = "" },
			wantErr: true,
		},
		{
			name:    "missing replication password",
			mutate:  func(s *ClusterSpec) { s.ReplicationPassword = "" },
			wantErr: true,
		},
		{
			name:    "missing storage path",
			mutate:  func(s *ClusterSpec) { s.StoragePath = "" },
			wantErr: true,
		},
		{
			name:    "self address listed as peer",
			mutate:  func(s *ClusterSpec) { s.PeerAddresses = []string{"10.0.0.5", "10.0.0.6"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)

			err := spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNilSpec(t *testing.T) {
	var spec *ClusterSpec
	require.Error(t, spec.Validate())
}

// TestSyncReplication checks the planned-unit threshold driving
// synchronous commit.
func TestSyncReplication(t *testing.T) {
	tests := []struct {
		planned int
		want    bool
	}{
		{1, false},
		{2, true},
		{5, true},
	}

	for _, tt := range tests {
		spec := &ClusterSpec{PlannedUnitCount: tt.planned}
		assert.Equal(t, tt.want, spec.SyncReplication(), "plannedUnits=%d", tt.planned)
	}
}

func TestRaftPartners(t *testing.T) {
	spec := validSpec()
	assert.Equal(t, []string{"10.0.0.6:2222", "10.0.0.7:2222"}, spec.RaftPartners(2222))

	spec.PeerAddresses = nil
	assert.Empty(t, spec.RaftPartners(2222))
}

func TestNodeStateReady(t *testing.T) {
	assert.True(t, NodeReadyLeader.Ready())
	assert.True(t, NodeReadyReplica.Ready())
	assert.False(t, NodeStarting.Ready())
	assert.False(t, NodeUnconfigured.Ready())
}

func TestMemberIsLeader(t *testing.T) {
	leader := &ClusterMember{Name: "postgresql-0", Role: RoleLeader}
	replica := &ClusterMember{Name: "postgresql-1", Role: RoleReplica}

	assert.True(t, leader.IsLeader())
	assert.False(t, replica.IsLeader())
}
