package raftadmin

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/paddock/pkg/log"
)

const (
	// DefaultConn is the raft admin channel every unit listens on.
	DefaultConn = "127.0.0.1:2222"

	// raftPort is the port members bind their raft endpoint to.
	raftPort = "2222"

	// successMarker is the string the admin tool prints on a successful
	// command. The tool can exit 0 while reporting failure in its output,
	// so the marker is authoritative, not the exit code.
	successMarker = "SUCCESS"

	adminBinary = "syncobj_admin"
)

// Runner executes a command and returns its combined output. The default
// runner shells out; tests script it.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// RemoveMemberError reports a raft removal whose output did not carry the
// success marker, or whose command failed outright.
type RemoveMemberError struct {
	Address string
	Output  string
	Err     error
}

func (e *RemoveMemberError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remove raft member %s: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("remove raft member %s: command did not report success: %s", e.Address, strings.TrimSpace(e.Output))
}

func (e *RemoveMemberError) Unwrap() error {
	return e.Err
}

// Client drives the raft membership control surface through its admin
// tool. The raft cluster is separate from the HA manager's own state: it
// gates which members may promote a leader, so failures here are never
// silently degraded.
type Client struct {
	conn    string
	timeout time.Duration
	runner  Runner
	logger  zerolog.Logger
}

// NewClient creates a client against the default local admin channel.
func NewClient() *Client {
	return &Client{
		conn:    DefaultConn,
		timeout: 10 * time.Second,
		runner:  runCommand,
		logger:  log.WithComponent("raftadmin"),
	}
}

// WithConn points the client at a different admin channel.
func (c *Client) WithConn(conn string) *Client {
	c.conn = conn
	return c
}

// WithTimeout sets the per-command execution timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithRunner replaces the command runner.
func (c *Client) WithRunner(r Runner) *Client {
	c.runner = r
	return c
}

// Status returns the raw raft membership listing. A failure here is fatal
// to the calling operation: membership control gates leader promotion, and
// acting on a guessed membership risks data loss.
func (c *Client) Status(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "-status")
	if err != nil {
		return "", fmt.Errorf("raft status: %w", err)
	}
	return string(out), nil
}

// RemoveMember removes the member at the given host from the raft cluster.
// A host absent from the current status is a no-op success, which makes
// removal idempotent under at-least-once delivery. Success of the remove
// command itself is determined by the marker in its output, not the exit
// code; anything else surfaces as RemoveMemberError.
func (c *Client) RemoveMember(ctx context.Context, host string) error {
	status, err := c.Status(ctx)
	if err != nil {
		return err
	}

	if host == "" || !strings.Contains(status, host) {
		c.logger.Debug().Str("host", host).Msg("member already absent from raft cluster")
		return nil
	}

	addr := net.JoinHostPort(host, raftPort)
	out, err := c.run(ctx, "-remove", addr)
	if err != nil {
		return &RemoveMemberError{Address: addr, Output: string(out), Err: err}
	}
	if !strings.Contains(string(out), successMarker) {
		return &RemoveMemberError{Address: addr, Output: string(out)}
	}

	c.logger.Info().Str("address", addr).Msg("removed member from raft cluster")
	return nil
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.runner(ctx, adminBinary, append([]string{"-conn", c.conn}, args...)...)
}

// runCommand executes the admin tool with captured stdout and stderr.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}
