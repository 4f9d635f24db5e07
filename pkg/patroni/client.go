package patroni

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/paddock/pkg/log"
	"github.com/cuemby/paddock/pkg/retry"
	"github.com/cuemby/paddock/pkg/types"
)

const (
	// APIPort is the HA manager's REST API port on every unit.
	APIPort = 8008
)

// Per-operation retry budgets. Topology reads ride out manager startup,
// switchovers ride out in-flight elections, reloads ride out connection
// resets during restarts. Tests swap the clock via WithClock.
var (
	topologyBudget = retry.Policy{
		MaxAttempts: 10,
		Backoff:     retry.Exponential(2*time.Second, 10*time.Second),
	}
	readinessBudget = retry.Policy{
		MaxElapsed: 10 * time.Second,
		Backoff:    retry.Fixed(3 * time.Second),
	}
	startupBudget = retry.Policy{
		MaxElapsed: 60 * time.Second,
		Backoff:    retry.Fixed(3 * time.Second),
	}
	switchoverBudget = retry.Policy{
		MaxElapsed: 60 * time.Second,
		Backoff:    retry.Fixed(3 * time.Second),
	}
	leaderChangeBudget = retry.Policy{
		MaxAttempts: 10,
		Backoff:     retry.Exponential(2*time.Second, 30*time.Second),
	}
	reloadBudget = retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.Exponential(2*time.Second, 10*time.Second),
	}
)

// Client is a typed HTTP client against the local HA manager's control API.
// All methods are safe for concurrent use; the client holds no mutable state
// beyond its configuration.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger

	topology     retry.Policy
	readiness    retry.Policy
	startup      retry.Policy
	switchover   retry.Policy
	leaderChange retry.Policy
	reload       retry.Policy
}

// NewClient creates a client for the manager listening on the given host.
func NewClient(host string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(APIPort))),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       log.WithComponent("patroni"),
		topology:     topologyBudget,
		readiness:    readinessBudget,
		startup:      startupBudget,
		switchover:   switchoverBudget,
		leaderChange: leaderChangeBudget,
		reload:       reloadBudget,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// WithBaseURL replaces the endpoint computed from the host, for managers
// not listening on the standard port.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// WithClock overrides the sleep and clock functions on every retry budget.
// Tests use it to run the documented budgets instantly.
func (c *Client) WithClock(sleep func(context.Context, time.Duration) error, now func() time.Time) *Client {
	for _, p := range []*retry.Policy{
		&c.topology, &c.readiness, &c.startup,
		&c.switchover, &c.leaderChange, &c.reload,
	} {
		p.Sleep = sleep
		p.Now = now
	}
	return c
}

// clusterStatus is the GET /cluster payload.
type clusterStatus struct {
	Members []types.ClusterMember `json:"members"`
}

// healthStatus is the GET /health payload, reduced to the field we read.
type healthStatus struct {
	State types.MemberState `json:"state"`
}

// fetchCluster performs one unretried GET /cluster.
func (c *Client) fetchCluster(ctx context.Context) ([]types.ClusterMember, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cluster", nil)
	if err != nil {
		return nil, fmt.Errorf("build cluster request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cluster topology: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cluster endpoint returned status %d", resp.StatusCode)
	}

	var status clusterStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode cluster topology: %w", err)
	}
	return status.Members, nil
}

// fetchHealth performs one unretried GET /health.
func (c *Client) fetchHealth(ctx context.Context) (types.MemberState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch member health: %w", err)
	}
	defer resp.Body.Close()

	var status healthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("decode member health: %w", err)
	}
	return status.State, nil
}

// GetClusterMembers returns the cluster topology. The manager may be
// mid-startup, so fetches are retried with exponential backoff; a spent
// budget surfaces as UnavailableError.
func (c *Client) GetClusterMembers(ctx context.Context) ([]types.ClusterMember, error) {
	var members []types.ClusterMember
	err := c.topology.Do(ctx, func(ctx context.Context) error {
		var err error
		members, err = c.fetchCluster(ctx)
		return err
	})
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return members, nil
}

// GetMemberAddress returns the reported address of the named member.
// A topology that does not contain the name yields ErrMemberNotFound.
func (c *Client) GetMemberAddress(ctx context.Context, name string) (string, error) {
	members, err := c.GetClusterMembers(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range members {
		if m.Name == name {
			return m.Host, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMemberNotFound, name)
}

// GetLeader returns the current leader's member name from a single topology
// fetch, or "" when no member holds the leader role. With
// convertToUnitPattern the trailing ordinal separator is rewritten from
// "-N" to "/N" ("app-2" becomes "app/2"); the rewrite is presentation only
// and never feeds back into lookups.
func (c *Client) GetLeader(ctx context.Context, convertToUnitPattern bool) (string, error) {
	members, err := c.fetchCluster(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range members {
		if m.IsLeader() {
			if convertToUnitPattern {
				return toUnitName(m.Name), nil
			}
			return m.Name, nil
		}
	}
	return "", nil
}

// toUnitName rewrites the last "-" to "/" to turn a member name into the
// orchestrator's unit-name pattern.
func toUnitName(member string) string {
	idx := strings.LastIndex(member, "-")
	if idx < 0 {
		return member
	}
	return member[:idx] + "/" + member[idx+1:]
}

// MembersReady evaluates the readiness predicate on a single topology
// snapshot: every member reports state running and at least one member
// holds the leader role. An empty snapshot is never ready; a cluster can
// transiently have only replicas after a failed switchover.
func MembersReady(members []types.ClusterMember) bool {
	if len(members) == 0 {
		return false
	}
	hasLeader := false
	for _, m := range members {
		if m.State != types.StateRunning {
			return false
		}
		if m.IsLeader() {
			hasLeader = true
		}
	}
	return hasLeader
}

// AllMembersReady polls the topology for up to 10 seconds until one fetch
// succeeds and evaluates that single snapshot, never comparing across
// fetches. A budget spent without a successful fetch means false, not an
// error: an unreadable manager during startup is an expected state.
func (c *Client) AllMembersReady(ctx context.Context) bool {
	var members []types.ClusterMember
	err := c.readiness.Do(ctx, func(ctx context.Context) error {
		var err error
		members, err = c.fetchCluster(ctx)
		return err
	})
	if err != nil {
		c.logger.Debug().Err(err).Msg("cluster topology unreadable within readiness budget")
		return false
	}
	return MembersReady(members)
}

// MemberStarted polls the local health endpoint for up to 60 seconds until
// one response decodes and reports whether the local member is running.
// The window is longer than AllMembersReady's because first boot has to
// initialize the data directory and complete the initial sync.
func (c *Client) MemberStarted(ctx context.Context) bool {
	var state types.MemberState
	err := c.startup.Do(ctx, func(ctx context.Context) error {
		var err error
		state, err = c.fetchHealth(ctx)
		return err
	})
	if err != nil {
		c.logger.Debug().Err(err).Msg("member health unreadable within startup budget")
		return false
	}
	return state == types.StateRunning
}

// MemberState returns the local member's state from a single health fetch.
func (c *Client) MemberState(ctx context.Context) (types.MemberState, error) {
	return c.fetchHealth(ctx)
}

// Switchover requests a planned leadership transfer away from the current
// leader. Each attempt re-fetches the believed leader and posts a
// switchover naming it; the manager rejects switchovers while an election
// is in flight, so attempts continue for up to 60 seconds. A spent budget
// surfaces as SwitchoverError carrying the last HTTP status (0 when no
// response was ever received).
func (c *Client) Switchover(ctx context.Context) error {
	var lastStatus int
	err := c.switchover.Do(ctx, func(ctx context.Context) error {
		leader, err := c.GetLeader(ctx, false)
		if err != nil {
			return err
		}

		status, err := c.postSwitchover(ctx, leader)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			lastStatus = status
			return fmt.Errorf("switchover returned status %d", status)
		}

		c.logger.Info().Str("leader", leader).Msg("switchover accepted")
		lastStatus = status
		return nil
	})
	if err != nil {
		return &SwitchoverError{StatusCode: lastStatus, Err: err}
	}
	return nil
}

// postSwitchover posts one switchover request naming the believed leader.
func (c *Client) postSwitchover(ctx context.Context, leader string) (int, error) {
	body, err := json.Marshal(map[string]string{"leader": leader})
	if err != nil {
		return 0, fmt.Errorf("encode switchover request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/switchover", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build switchover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post switchover: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// LeaderChangedFrom reports whether the observed leader differs from the
// given name, polling while it is still equal. This is retry-until-change,
// not retry-on-error: only exact name inequality counts as changed, so a
// transiently leaderless cluster ("") reads as changed, and a failed fetch
// reads as unchanged and consumes an attempt. Exhaustion returns false,
// never an error.
func (c *Client) LeaderChangedFrom(ctx context.Context, oldLeader string) bool {
	return c.leaderChange.Until(ctx, func(ctx context.Context) bool {
		leader, err := c.GetLeader(ctx, false)
		if err != nil {
			c.logger.Debug().Err(err).Msg("leader unreadable while waiting for change")
			return false
		}
		return leader != oldLeader
	})
}

// ReloadConfiguration signals the manager to re-read its configuration.
// Connection resets are expected while the supervised service restarts, so
// the post is retried up to 3 times; a spent budget surfaces as
// ReloadError.
func (c *Client) ReloadConfiguration(ctx context.Context) error {
	err := c.reload.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reload", nil)
		if err != nil {
			return fmt.Errorf("build reload request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("post reload: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("reload returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return &ReloadError{Err: err}
	}

	c.logger.Info().Msg("configuration reload accepted")
	return nil
}
