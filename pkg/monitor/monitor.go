package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/paddock/pkg/events"
	"github.com/cuemby/paddock/pkg/log"
	"github.com/cuemby/paddock/pkg/metrics"
	"github.com/cuemby/paddock/pkg/patroni"
	"github.com/cuemby/paddock/pkg/types"
)

// DefaultInterval is the observation cadence when none is configured.
const DefaultInterval = 10 * time.Second

// TopologyClient is the slice of the HA manager client the monitor
// needs. *patroni.Client implements it.
type TopologyClient interface {
	GetClusterMembers(ctx context.Context) ([]types.ClusterMember, error)
}

// Config carries the monitor's collaborators and identity.
type Config struct {
	Client TopologyClient
	Broker *events.Broker

	// Cluster and Member name the observed cluster and the local member
	// in published events and the leader gauge.
	Cluster string
	Member  string

	// Interval between observation cycles; DefaultInterval when zero.
	Interval time.Duration
}

// Monitor periodically observes the cluster topology, keeps the
// topology gauges current, and publishes an event for every transition
// between cycles: leader moved or lost, readiness flipped, members
// started or removed.
type Monitor struct {
	client   TopologyClient
	broker   *events.Broker
	cluster  string
	member   string
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	primed      bool
	lastLeader  string
	lastReady   bool
	lastRunning map[string]bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a monitor, rejecting incomplete configs.
func New(cfg Config) (*Monitor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("monitor: topology client is required")
	}
	if cfg.Broker == nil {
		return nil, fmt.Errorf("monitor: event broker is required")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Monitor{
		client:      cfg.Client,
		broker:      cfg.Broker,
		cluster:     cfg.Cluster,
		member:      cfg.Member,
		interval:    interval,
		logger:      log.WithComponent("monitor"),
		lastRunning: make(map[string]bool),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins the observation loop.
func (m *Monitor) Start() {
	go m.run()
}

// Stop stops the loop and waits for the in-flight cycle to finish.
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Observe immediately so gauges are live before the first tick.
	m.observeOnce()

	for {
		select {
		case <-ticker.C:
			m.observeOnce()
		case <-m.stopCh:
			return
		}
	}
}

// observeOnce bounds a cycle to the tick interval so a slow manager
// cannot make cycles pile up.
func (m *Monitor) observeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	m.Observe(ctx)
}

// Observe runs one observation cycle. The first successful cycle only
// primes the baseline; transitions are published from the second on. An
// unreadable topology keeps the previous baseline and gauges: unknown is
// not the same as degraded, and the next cycle retries anyway.
func (m *Monitor) Observe(ctx context.Context) {
	members, err := m.client.GetClusterMembers(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("cluster topology unreadable")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	leader := leaderOf(members)
	ready := patroni.MembersReady(members)
	running := runningSet(members)

	m.setGauges(members, leader, ready)

	if m.primed {
		m.publishTransitions(leader, ready, running)
	} else {
		m.primed = true
	}

	m.lastLeader = leader
	m.lastReady = ready
	m.lastRunning = running
}

func (m *Monitor) setGauges(members []types.ClusterMember, leader string, ready bool) {
	metrics.ClusterMembers.Reset()
	for _, member := range members {
		metrics.ClusterMembers.WithLabelValues(string(member.Role), string(member.State)).Inc()
	}

	if ready {
		metrics.ClusterReady.Set(1)
	} else {
		metrics.ClusterReady.Set(0)
	}

	if m.member != "" && leader == m.member {
		metrics.MemberIsLeader.Set(1)
	} else {
		metrics.MemberIsLeader.Set(0)
	}
}

func (m *Monitor) publishTransitions(leader string, ready bool, running map[string]bool) {
	if leader != m.lastLeader {
		if leader == "" {
			m.broker.Publish(&events.Event{
				Type:    events.EventLeaderLost,
				Cluster: m.cluster,
				Member:  m.lastLeader,
				Message: fmt.Sprintf("leader %s lost without a successor", m.lastLeader),
			})
		} else {
			metrics.LeaderChangesTotal.Inc()
			m.broker.Publish(&events.Event{
				Type:     events.EventLeaderChanged,
				Cluster:  m.cluster,
				Member:   leader,
				Message:  fmt.Sprintf("leader moved from %q to %q", m.lastLeader, leader),
				Metadata: map[string]string{"previous": m.lastLeader},
			})
		}
	}

	if ready != m.lastReady {
		if ready {
			m.broker.Publish(&events.Event{
				Type:    events.EventClusterReady,
				Cluster: m.cluster,
				Message: "all members running with a leader present",
			})
		} else {
			m.broker.Publish(&events.Event{
				Type:    events.EventClusterDegraded,
				Cluster: m.cluster,
				Message: "a member is not running or no leader is present",
			})
		}
	}

	for name, isRunning := range running {
		if isRunning && !m.lastRunning[name] {
			m.broker.Publish(&events.Event{
				Type:    events.EventMemberStarted,
				Cluster: m.cluster,
				Member:  name,
				Message: fmt.Sprintf("member %s reached running state", name),
			})
		}
	}

	for name := range m.lastRunning {
		if _, present := running[name]; !present {
			m.broker.Publish(&events.Event{
				Type:    events.EventMemberRemoved,
				Cluster: m.cluster,
				Member:  name,
				Message: fmt.Sprintf("member %s left the cluster", name),
			})
		}
	}
}

func leaderOf(members []types.ClusterMember) string {
	for _, member := range members {
		if member.IsLeader() {
			return member.Name
		}
	}
	return ""
}

func runningSet(members []types.ClusterMember) map[string]bool {
	set := make(map[string]bool, len(members))
	for _, member := range members {
		set[member.Name] = member.State == types.StateRunning
	}
	return set
}
