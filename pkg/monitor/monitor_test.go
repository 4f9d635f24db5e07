package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/paddock/pkg/events"
	"github.com/cuemby/paddock/pkg/metrics"
	"github.com/cuemby/paddock/pkg/types"
)

type topologyStep struct {
	members []types.ClusterMember
	err     error
}

// fakeTopology replays scripted topology snapshots, repeating the last
// one when the script runs out.
type fakeTopology struct {
	mu    sync.Mutex
	steps []topologyStep
}

func (f *fakeTopology) GetClusterMembers(context.Context) ([]types.ClusterMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	step := f.steps[0]
	if len(f.steps) > 1 {
		f.steps = f.steps[1:]
	}
	return step.members, step.err
}

func member(name string, role types.MemberRole, state types.MemberState) types.ClusterMember {
	return types.ClusterMember{Name: name, Host: "10.0.0.1", Role: role, State: state}
}

func newTestMonitor(t *testing.T, client TopologyClient) (*Monitor, events.Subscriber, *events.Broker) {
	t.Helper()

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	sub := broker.Subscribe()

	m, err := New(Config{
		Client:  client,
		Broker:  broker,
		Cluster: "postgresql",
		Member:  "postgresql-0",
	})
	require.NoError(t, err)
	return m, sub, broker
}

func collectEvents(t *testing.T, sub events.Subscriber, n int) []*events.Event {
	t.Helper()

	out := make([]*events.Event, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case event := <-sub:
			out = append(out, event)
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(out))
		}
	}
	return out
}

func expectNoEvent(t *testing.T, sub events.Subscriber) {
	t.Helper()

	select {
	case event := <-sub:
		t.Fatalf("unexpected event %s", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func eventTypes(evs []*events.Event) []events.EventType {
	out := make([]events.EventType, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

func TestNewValidatesConfig(t *testing.T) {
	broker := events.NewBroker()

	_, err := New(Config{Broker: broker})
	require.Error(t, err)

	_, err = New(Config{Client: &fakeTopology{}})
	require.Error(t, err)

	m, err := New(Config{Client: &fakeTopology{}, Broker: broker})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, m.interval)
}

func TestFirstObservationPrimesWithoutEvents(t *testing.T) {
	client := &fakeTopology{steps: []topologyStep{
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateRunning),
		}},
	}}
	m, sub, _ := newTestMonitor(t, client)

	m.Observe(context.Background())

	expectNoEvent(t, sub)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ClusterReady))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MemberIsLeader))
}

func TestLeaderChangeEmitsEventAndCounts(t *testing.T) {
	client := &fakeTopology{steps: []topologyStep{
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateRunning),
		}},
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleReplica, types.StateRunning),
			member("postgresql-1", types.RoleLeader, types.StateRunning),
		}},
	}}
	m, sub, _ := newTestMonitor(t, client)

	before := testutil.ToFloat64(metrics.LeaderChangesTotal)
	m.Observe(context.Background())
	m.Observe(context.Background())

	evs := collectEvents(t, sub, 1)
	assert.Equal(t, events.EventLeaderChanged, evs[0].Type)
	assert.Equal(t, "postgresql-1", evs[0].Member)
	assert.Equal(t, "postgresql-0", evs[0].Metadata["previous"])
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LeaderChangesTotal))

	// Local member lost the leader role.
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.MemberIsLeader))
}

func TestLeaderLostDegradesCluster(t *testing.T) {
	client := &fakeTopology{steps: []topologyStep{
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateRunning),
		}},
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleReplica, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateRunning),
		}},
	}}
	m, sub, _ := newTestMonitor(t, client)

	m.Observe(context.Background())
	m.Observe(context.Background())

	evs := collectEvents(t, sub, 2)
	typesSeen := eventTypes(evs)
	assert.Contains(t, typesSeen, events.EventLeaderLost)
	assert.Contains(t, typesSeen, events.EventClusterDegraded)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ClusterReady))
}

func TestMemberStartupFlipsReady(t *testing.T) {
	client := &fakeTopology{steps: []topologyStep{
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateStarting),
		}},
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateRunning),
		}},
	}}
	m, sub, _ := newTestMonitor(t, client)

	m.Observe(context.Background())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ClusterReady))

	m.Observe(context.Background())

	evs := collectEvents(t, sub, 2)
	typesSeen := eventTypes(evs)
	assert.Contains(t, typesSeen, events.EventClusterReady)
	assert.Contains(t, typesSeen, events.EventMemberStarted)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ClusterReady))
}

func TestMemberRemovalEmitsEvent(t *testing.T) {
	client := &fakeTopology{steps: []topologyStep{
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateRunning),
			member("postgresql-2", types.RoleReplica, types.StateRunning),
		}},
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
			member("postgresql-1", types.RoleReplica, types.StateRunning),
		}},
	}}
	m, sub, _ := newTestMonitor(t, client)

	m.Observe(context.Background())
	m.Observe(context.Background())

	evs := collectEvents(t, sub, 1)
	assert.Equal(t, events.EventMemberRemoved, evs[0].Type)
	assert.Equal(t, "postgresql-2", evs[0].Member)
}

func TestFetchErrorKeepsBaseline(t *testing.T) {
	client := &fakeTopology{steps: []topologyStep{
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
		}},
		{err: errors.New("connection refused")},
		{members: []types.ClusterMember{
			member("postgresql-1", types.RoleLeader, types.StateRunning),
		}},
	}}
	m, sub, _ := newTestMonitor(t, client)

	m.Observe(context.Background())
	m.Observe(context.Background()) // unreadable; no transition published
	m.Observe(context.Background())

	evs := collectEvents(t, sub, 2)
	typesSeen := eventTypes(evs)
	assert.Contains(t, typesSeen, events.EventLeaderChanged)
	// postgresql-1 newly appeared in running state.
	assert.Contains(t, typesSeen, events.EventMemberStarted)

	// postgresql-0 disappearing also publishes a removal.
	evs = append(evs, collectEvents(t, sub, 1)...)
	assert.Contains(t, eventTypes(evs), events.EventMemberRemoved)
}

func TestStartStop(t *testing.T) {
	client := &fakeTopology{steps: []topologyStep{
		{members: []types.ClusterMember{
			member("postgresql-0", types.RoleLeader, types.StateRunning),
		}},
	}}
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	m, err := New(Config{
		Client:   client,
		Broker:   broker,
		Cluster:  "postgresql",
		Member:   "postgresql-0",
		Interval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	// The loop observed at least once before stopping.
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.True(t, m.primed)
}
