package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/paddock/pkg/journal"
	"github.com/cuemby/paddock/pkg/lifecycle"
	"github.com/cuemby/paddock/pkg/raftadmin"
	"github.com/cuemby/paddock/pkg/render"
	"github.com/cuemby/paddock/pkg/systemd"
	"github.com/cuemby/paddock/pkg/types"
	"github.com/cuemby/paddock/test/framework"
)

// harness wires a controller against the in-process fakes: the HA
// manager speaks real HTTP off a mutable topology, commands run through
// the scripted runner, and rendering lands in a temp dir.
type harness struct {
	manager  *framework.HAManager
	runner   *framework.ScriptedRunner
	journal  *journal.Journal
	ctrl     *lifecycle.Controller
	storage  string
	unitPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	manager := framework.NewHAManager()
	t.Cleanup(manager.Close)

	runner := framework.NewScriptedRunner().
		Handle("dpkg-query", "14+238ubuntu0.1").
		Handle("is-active", "active").
		Handle("-status", "partner:10.89.0.2:2222 status:up\npartner:10.89.0.3:2222 status:up\n").
		Handle("-remove", "command success: SUCCESS")

	storage := t.TempDir()
	unitPath := filepath.Join(t.TempDir(), "patroni.service")

	jnl, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = jnl.Close() })

	ctrl, err := lifecycle.NewController(lifecycle.Config{
		HA:   manager.Client(),
		Raft: raftadmin.NewClient().WithRunner(runner.Run),
		Renderer: render.NewRenderer().
			WithChown(func(string) error { return nil }).
			WithRunner(runner.Run).
			WithUnitPath(unitPath),
		Service: systemd.NewService("patroni").WithRunner(runner.Run),
		Journal: jnl,
	})
	require.NoError(t, err)

	return &harness{
		manager:  manager,
		runner:   runner,
		journal:  jnl,
		ctrl:     ctrl,
		storage:  storage,
		unitPath: unitPath,
	}
}

func clusterSpec(storage string, peers ...string) *types.ClusterSpec {
	return &types.ClusterSpec{
		ClusterName:         "postgresql",
		MemberName:          "postgresql-0",
		SelfAddress:         "10.89.0.1",
		PeerAddresses:       peers,
		PlannedUnitCount:    len(peers) + 1,
		SuperuserPassword:   types.Secret("operator-pw"),
		ReplicationPassword: types.Secret("replication-pw"),
		StoragePath:         storage,
	}
}

func TestBootstrapFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)
	h.manager.SetMembers(framework.ClusterOf("postgresql-0")...)
	spec := clusterSpec(h.storage)

	active, err := h.ctrl.BootstrapCluster(context.Background(), spec, false)
	require.NoError(t, err)
	assert.True(t, active)

	// Every piece of configuration landed on disk.
	haConf, err := os.ReadFile(filepath.Join(h.storage, "patroni.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(haConf), "scope: postgresql")
	assert.Contains(t, string(haConf), "name: postgresql-0")
	assert.Contains(t, string(haConf), "bootstrap:")

	unit, err := os.ReadFile(h.unitPath)
	require.NoError(t, err)
	assert.Contains(t, string(unit), "ExecStart=/usr/bin/patroni "+filepath.Join(h.storage, "patroni.yml"))

	engineConf, err := os.ReadFile(filepath.Join(h.storage, "conf.d", "postgresql-operator.conf"))
	require.NoError(t, err)
	assert.Contains(t, string(engineConf), "synchronous_commit = off")

	// The supervisor saw reload, start, and the active probe.
	assert.Len(t, h.runner.CallsMatching("systemctl daemon-reload"), 1)
	assert.Len(t, h.runner.CallsMatching("systemctl start patroni"), 1)
	assert.Len(t, h.runner.CallsMatching("systemctl is-active patroni"), 1)

	// The journal recorded the operation.
	records, err := h.journal.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bootstrap", records[0].Operation)
	assert.Equal(t, types.OutcomeSuccess, records[0].Outcome)
	assert.Equal(t, "postgresql-0", records[0].Member)

	// The configured, active, leading unit observes as ready leader.
	state := h.ctrl.ObserveState(context.Background(), spec)
	assert.Equal(t, types.NodeReadyLeader, state)
}

func TestBootstrapAsReplicaOmitsBootstrapSection(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)
	h.manager.SetMembers(framework.ClusterOf("postgresql-0", "postgresql-1")...)
	spec := clusterSpec(h.storage, "10.89.0.1")
	spec.MemberName = "postgresql-1"
	spec.SelfAddress = "10.89.0.2"

	active, err := h.ctrl.BootstrapCluster(context.Background(), spec, true)
	require.NoError(t, err)
	assert.True(t, active)

	haConf, err := os.ReadFile(filepath.Join(h.storage, "patroni.yml"))
	require.NoError(t, err)
	assert.NotContains(t, string(haConf), "bootstrap:")
	assert.Contains(t, string(haConf), "partner_addrs:")
	assert.Contains(t, string(haConf), "10.89.0.1:2222")
}

func TestUpdateMembersReloadsRunningManager(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)
	h.manager.SetMembers(framework.ClusterOf("postgresql-0", "postgresql-1")...)

	spec := clusterSpec(h.storage, "10.89.0.2")
	require.NoError(t, h.ctrl.ConfigureOnUnit(context.Background(), spec, false))

	// A third unit joins.
	grown := clusterSpec(h.storage, "10.89.0.2", "10.89.0.3")
	require.NoError(t, h.ctrl.UpdateClusterMembers(context.Background(), grown))

	assert.Equal(t, 1, h.manager.Reloads())

	haConf, err := os.ReadFile(filepath.Join(h.storage, "patroni.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(haConf), "10.89.0.3:2222")
	assert.Contains(t, string(haConf), "synchronous_mode: true")
}

func TestUpdateMembersLeavesStoppedManagerAlone(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	manager := framework.NewHAManager()
	t.Cleanup(manager.Close)
	manager.SetMembers(framework.ClusterOf("postgresql-0", "postgresql-1")...)

	runner := framework.NewScriptedRunner().
		Handle("dpkg-query", "14+238ubuntu0.1").
		Handle("is-active", "inactive")

	storage := t.TempDir()
	ctrl, err := lifecycle.NewController(lifecycle.Config{
		HA:   manager.Client(),
		Raft: raftadmin.NewClient().WithRunner(runner.Run),
		Renderer: render.NewRenderer().
			WithChown(func(string) error { return nil }).
			WithRunner(runner.Run).
			WithUnitPath(filepath.Join(t.TempDir(), "patroni.service")),
		Service: systemd.NewService("patroni").WithRunner(runner.Run),
	})
	require.NoError(t, err)

	spec := clusterSpec(storage, "10.89.0.2", "10.89.0.3")
	require.NoError(t, ctrl.UpdateClusterMembers(context.Background(), spec))

	// The config still rendered, but nothing was told to reload.
	assert.Equal(t, 0, manager.Reloads())
	_, err = os.Stat(filepath.Join(storage, "patroni.yml"))
	assert.NoError(t, err)
}

func TestSwitchoverMovesLeader(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)
	h.manager.SetMembers(framework.ClusterOf("postgresql-0", "postgresql-1", "postgresql-2")...)

	before, err := h.ctrl.GetPrimary(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "postgresql-0", before)

	require.NoError(t, h.ctrl.Switchover(context.Background()))

	assert.Equal(t, 1, h.manager.Switchovers())
	assert.Equal(t, "postgresql-1", h.manager.Leader())

	after, err := h.ctrl.GetPrimary(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "postgresql-1", after)
}

func TestRemoveDepartedRaftMember(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)

	require.NoError(t, h.ctrl.RemoveRaftMember(context.Background(), "10.89.0.3"))

	removes := h.runner.CallsMatching("-remove")
	require.Len(t, removes, 1)
	assert.Equal(t, "syncobj_admin -conn 127.0.0.1:2222 -remove 10.89.0.3:2222", removes[0])

	records, err := h.journal.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "remove-raft-member", records[0].Operation)
	assert.Equal(t, types.OutcomeSuccess, records[0].Outcome)
}

func TestRemoveAbsentRaftMemberIsNoOp(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)

	// 10.89.0.9 is not in the scripted raft status.
	require.NoError(t, h.ctrl.RemoveRaftMember(context.Background(), "10.89.0.9"))

	assert.Empty(t, h.runner.CallsMatching("-remove"))
}

func TestObserveStateProgression(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	manager := framework.NewHAManager()
	t.Cleanup(manager.Close)
	manager.SetMembers(framework.ClusterOf("postgresql-0")...)

	runner := framework.NewScriptedRunner().
		Handle("dpkg-query", "14+238ubuntu0.1").
		Handle("is-active", "inactive")

	storage := t.TempDir()
	ctrl, err := lifecycle.NewController(lifecycle.Config{
		HA:   manager.Client(),
		Raft: raftadmin.NewClient().WithRunner(runner.Run),
		Renderer: render.NewRenderer().
			WithChown(func(string) error { return nil }).
			WithRunner(runner.Run).
			WithUnitPath(filepath.Join(t.TempDir(), "patroni.service")),
		Service: systemd.NewService("patroni").WithRunner(runner.Run),
	})
	require.NoError(t, err)

	spec := clusterSpec(storage)
	ctx := context.Background()

	// Nothing rendered yet.
	assert.Equal(t, types.NodeUnconfigured, ctrl.ObserveState(ctx, spec))

	// Rendered but the supervisor has not started the service.
	require.NoError(t, ctrl.ConfigureOnUnit(ctx, spec, false))
	assert.Equal(t, types.NodeConfiguring, ctrl.ObserveState(ctx, spec))
}
