package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/paddock/pkg/log"
	"github.com/cuemby/paddock/pkg/metrics"
	"github.com/cuemby/paddock/pkg/types"
)

// HAClient is the slice of the HA manager client the controller drives.
// *patroni.Client implements it.
type HAClient interface {
	GetClusterMembers(ctx context.Context) ([]types.ClusterMember, error)
	GetMemberAddress(ctx context.Context, name string) (string, error)
	GetLeader(ctx context.Context, convertToUnitPattern bool) (string, error)
	AllMembersReady(ctx context.Context) bool
	MemberStarted(ctx context.Context) bool
	MemberState(ctx context.Context) (types.MemberState, error)
	Switchover(ctx context.Context) error
	LeaderChangedFrom(ctx context.Context, oldLeader string) bool
	ReloadConfiguration(ctx context.Context) error
}

// RaftClient is the raft membership surface. *raftadmin.Client
// implements it.
type RaftClient interface {
	Status(ctx context.Context) (string, error)
	RemoveMember(ctx context.Context, host string) error
}

// ConfigRenderer writes the unit's configuration. *render.Renderer
// implements it.
type ConfigRenderer interface {
	EnsureOwnership(path string) error
	RenderHAConfig(ctx context.Context, spec *types.ClusterSpec, asReplica bool) error
	RenderEngineConfig(spec *types.ClusterSpec) error
	RenderSupervisorUnit(spec *types.ClusterSpec) error
	Configured(storagePath string) bool
}

// Supervisor controls the HA manager's service unit. *systemd.Service
// implements it.
type Supervisor interface {
	DaemonReload(ctx context.Context) error
	Start(ctx context.Context) error
	Restart(ctx context.Context) error
	IsActive(ctx context.Context) (bool, error)
}

// Recorder persists operation records. *journal.Journal implements it.
type Recorder interface {
	Append(record types.OperationRecord) error
}

// Config carries the controller's collaborators. HA, Raft, Renderer and
// Service are required; Journal is optional.
type Config struct {
	HA       HAClient
	Raft     RaftClient
	Renderer ConfigRenderer
	Service  Supervisor
	Journal  Recorder
}

// Controller coordinates the cluster lifecycle on one unit: rendering
// configuration, supervising the HA manager service, and driving
// topology changes through the manager's API and the raft admin channel.
// Every operation is synchronous; callers own retries above this layer.
type Controller struct {
	ha       HAClient
	raft     RaftClient
	renderer ConfigRenderer
	service  Supervisor
	journal  Recorder
	logger   zerolog.Logger
}

// NewController creates a controller, rejecting incomplete configs.
func NewController(cfg Config) (*Controller, error) {
	if cfg.HA == nil {
		return nil, fmt.Errorf("lifecycle: HA client is required")
	}
	if cfg.Raft == nil {
		return nil, fmt.Errorf("lifecycle: raft client is required")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("lifecycle: renderer is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("lifecycle: service supervisor is required")
	}

	return &Controller{
		ha:       cfg.HA,
		raft:     cfg.Raft,
		renderer: cfg.Renderer,
		service:  cfg.Service,
		journal:  cfg.Journal,
		logger:   log.WithComponent("lifecycle"),
	}, nil
}

// instrument starts the clock for one operation. The returned func logs
// the outcome, feeds the metrics, and appends a journal record; journal
// failures are logged, never propagated, because losing a history row
// must not fail a cluster operation.
func (c *Controller) instrument(operation, member string) func(types.OperationOutcome, error) {
	timer := metrics.NewTimer()
	startedAt := time.Now().UTC()

	return func(outcome types.OperationOutcome, opErr error) {
		duration := timer.Duration()
		timer.ObserveDurationVec(metrics.OperationDuration, operation)
		metrics.OperationsTotal.WithLabelValues(operation, string(outcome)).Inc()

		event := c.logger.Info()
		if opErr != nil {
			event = c.logger.Error().Err(opErr)
		}
		event.
			Str("operation", operation).
			Str("member", member).
			Str("outcome", string(outcome)).
			Dur("duration", duration).
			Msg("lifecycle operation finished")

		if c.journal == nil {
			return
		}
		record := types.OperationRecord{
			Operation: operation,
			Member:    member,
			Outcome:   outcome,
			StartedAt: startedAt,
			Duration:  duration,
		}
		if opErr != nil {
			record.Error = opErr.Error()
		}
		if err := c.journal.Append(record); err != nil {
			c.logger.Warn().Err(err).Str("operation", operation).Msg("failed to journal operation")
		}
	}
}

// BootstrapCluster configures the unit and starts the HA manager
// service. It returns whether the service reports active afterwards;
// the cluster itself converges asynchronously and is checked with
// AllMembersReady.
func (c *Controller) BootstrapCluster(ctx context.Context, spec *types.ClusterSpec, asReplica bool) (bool, error) {
	done := c.instrument("bootstrap", specMember(spec))

	if err := c.configure(ctx, spec, asReplica); err != nil {
		done(types.OutcomeFailure, err)
		return false, err
	}
	if err := c.service.Start(ctx); err != nil {
		done(types.OutcomeFailure, err)
		return false, err
	}
	active, err := c.service.IsActive(ctx)
	if err != nil {
		done(types.OutcomeFailure, err)
		return false, err
	}

	if active {
		done(types.OutcomeSuccess, nil)
	} else {
		done(types.OutcomeNotReady, nil)
	}
	return active, nil
}

// ConfigureOnUnit writes every piece of configuration the unit needs.
// It is idempotent: re-running with the same spec rewrites the same
// bytes and re-asserts permissions.
func (c *Controller) ConfigureOnUnit(ctx context.Context, spec *types.ClusterSpec, asReplica bool) error {
	done := c.instrument("configure", specMember(spec))

	if err := c.configure(ctx, spec, asReplica); err != nil {
		done(types.OutcomeFailure, err)
		return err
	}
	done(types.OutcomeSuccess, nil)
	return nil
}

// configure runs the configuration sequence. The supervisor unit must be
// reloaded before the engine config renders so a follow-up start always
// sees the current unit definition.
func (c *Controller) configure(ctx context.Context, spec *types.ClusterSpec, asReplica bool) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if err := c.renderer.EnsureOwnership(spec.StoragePath); err != nil {
		return err
	}
	if err := c.renderer.RenderHAConfig(ctx, spec, asReplica); err != nil {
		return err
	}
	if err := c.renderer.RenderSupervisorUnit(spec); err != nil {
		return err
	}
	if err := c.service.DaemonReload(ctx); err != nil {
		return err
	}
	return c.renderer.RenderEngineConfig(spec)
}

// UpdateClusterMembers re-renders the HA config with the spec's current
// peer set and, only when the service is already running, asks the
// manager to reload. It never starts a stopped service: that is a
// bootstrap decision, not a membership one.
func (c *Controller) UpdateClusterMembers(ctx context.Context, spec *types.ClusterSpec) error {
	done := c.instrument("update-members", specMember(spec))

	err := c.updateMembers(ctx, spec)
	if err != nil {
		done(types.OutcomeFailure, err)
		return err
	}
	done(types.OutcomeSuccess, nil)
	return nil
}

func (c *Controller) updateMembers(ctx context.Context, spec *types.ClusterSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if err := c.renderer.RenderHAConfig(ctx, spec, false); err != nil {
		return err
	}

	active, err := c.service.IsActive(ctx)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}
	return c.ha.ReloadConfiguration(ctx)
}

// AllMembersReady reports whether every member runs and a leader exists.
func (c *Controller) AllMembersReady(ctx context.Context) bool {
	done := c.instrument("all-members-ready", "")

	ready := c.ha.AllMembersReady(ctx)
	if ready {
		done(types.OutcomeSuccess, nil)
	} else {
		done(types.OutcomeNotReady, nil)
	}
	return ready
}

// MemberStarted reports whether the local member reached running state.
func (c *Controller) MemberStarted(ctx context.Context) bool {
	done := c.instrument("member-started", "")

	started := c.ha.MemberStarted(ctx)
	if started {
		done(types.OutcomeSuccess, nil)
	} else {
		done(types.OutcomeNotReady, nil)
	}
	return started
}

// EnsureReady is the gating form of AllMembersReady for callers that
// want an error to propagate, e.g. CLI exit codes.
func (c *Controller) EnsureReady(ctx context.Context) error {
	if !c.ha.AllMembersReady(ctx) {
		return ErrNotReady
	}
	return nil
}

// GetPrimary returns the current leader's member name, optionally
// rewritten to the unit pattern ("app-2" becomes "app/2"). Empty when
// the cluster is momentarily leaderless.
func (c *Controller) GetPrimary(ctx context.Context, convertToUnitPattern bool) (string, error) {
	done := c.instrument("get-primary", "")

	leader, err := c.ha.GetLeader(ctx, convertToUnitPattern)
	if err != nil {
		done(types.OutcomeFailure, err)
		return "", err
	}
	done(types.OutcomeSuccess, nil)
	return leader, nil
}

// MemberAddress resolves a member name to the address the HA manager
// reports for it.
func (c *Controller) MemberAddress(ctx context.Context, name string) (string, error) {
	done := c.instrument("member-address", name)

	addr, err := c.ha.GetMemberAddress(ctx, name)
	if err != nil {
		done(types.OutcomeFailure, err)
		return "", err
	}
	done(types.OutcomeSuccess, nil)
	return addr, nil
}

// Switchover asks the HA manager to move the leader role off the
// current leader. Completion is asserted separately with
// LeaderChangedFrom.
func (c *Controller) Switchover(ctx context.Context) error {
	done := c.instrument("switchover", "")

	if err := c.ha.Switchover(ctx); err != nil {
		done(types.OutcomeFailure, err)
		return err
	}
	done(types.OutcomeSuccess, nil)
	return nil
}

// LeaderChangedFrom reports whether the leader differs from oldLeader,
// waiting through the client's backoff budget for the change to land.
func (c *Controller) LeaderChangedFrom(ctx context.Context, oldLeader string) bool {
	done := c.instrument("leader-change-wait", oldLeader)

	changed := c.ha.LeaderChangedFrom(ctx, oldLeader)
	if changed {
		done(types.OutcomeSuccess, nil)
	} else {
		done(types.OutcomeNotReady, nil)
	}
	return changed
}

// RemoveRaftMember removes a departed unit's address from the raft
// cluster backing leader election. Members already absent are success.
func (c *Controller) RemoveRaftMember(ctx context.Context, host string) error {
	done := c.instrument("remove-raft-member", host)

	if err := c.raft.RemoveMember(ctx, host); err != nil {
		done(types.OutcomeFailure, err)
		return err
	}
	done(types.OutcomeSuccess, nil)
	return nil
}

// ObserveState derives the unit's lifecycle state from its
// collaborators. It never blocks on retry budgets and never errors:
// an unreadable answer maps to the most conservative state.
func (c *Controller) ObserveState(ctx context.Context, spec *types.ClusterSpec) types.NodeState {
	state := c.observeState(ctx, spec)
	c.logger.Debug().
		Str("member", specMember(spec)).
		Str("state", string(state)).
		Msg("observed node state")
	return state
}

func (c *Controller) observeState(ctx context.Context, spec *types.ClusterSpec) types.NodeState {
	if !c.renderer.Configured(spec.StoragePath) {
		return types.NodeUnconfigured
	}

	active, err := c.service.IsActive(ctx)
	if err != nil || !active {
		return types.NodeConfiguring
	}

	memberState, err := c.ha.MemberState(ctx)
	if err != nil || memberState != types.StateRunning {
		// A configured, supervised unit that left the raft membership is
		// being removed, not starting.
		if status, serr := c.raft.Status(ctx); serr == nil && spec.SelfAddress != "" && !strings.Contains(status, spec.SelfAddress) {
			return types.NodeRemoved
		}
		return types.NodeStarting
	}

	leader, err := c.ha.GetLeader(ctx, false)
	if err != nil {
		return types.NodeStarting
	}
	if leader == spec.MemberName {
		return types.NodeReadyLeader
	}
	return types.NodeReadyReplica
}

func specMember(spec *types.ClusterSpec) string {
	if spec == nil {
		return ""
	}
	return spec.MemberName
}
