package systemd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/paddock/pkg/log"
)

const systemctl = "systemctl"

// Runner executes a command and returns its combined output. The default
// runner shells out; tests script it.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Service controls one systemd unit. All commands run under a per-command
// timeout so a hung service manager cannot stall a lifecycle operation
// indefinitely.
type Service struct {
	unit    string
	timeout time.Duration
	runner  Runner
	logger  zerolog.Logger
}

// NewService creates a controller for the named unit.
func NewService(unit string) *Service {
	return &Service{
		unit:    unit,
		timeout: 90 * time.Second,
		runner:  runCommand,
		logger:  log.WithComponent("systemd").With().Str("unit", unit).Logger(),
	}
}

// WithTimeout sets the per-command execution timeout.
func (s *Service) WithTimeout(timeout time.Duration) *Service {
	s.timeout = timeout
	return s
}

// WithRunner replaces the command runner.
func (s *Service) WithRunner(r Runner) *Service {
	s.runner = r
	return s
}

// DaemonReload makes systemd re-read unit files. Required after a unit
// file is written or changed, before the unit is (re)started.
func (s *Service) DaemonReload(ctx context.Context) error {
	if _, err := s.run(ctx, "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	s.logger.Debug().Msg("reloaded systemd unit files")
	return nil
}

// Start starts the unit.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.run(ctx, "start", s.unit); err != nil {
		return fmt.Errorf("start %s: %w", s.unit, err)
	}
	s.logger.Info().Msg("started service")
	return nil
}

// Stop stops the unit.
func (s *Service) Stop(ctx context.Context) error {
	if _, err := s.run(ctx, "stop", s.unit); err != nil {
		return fmt.Errorf("stop %s: %w", s.unit, err)
	}
	s.logger.Info().Msg("stopped service")
	return nil
}

// Restart restarts the unit.
func (s *Service) Restart(ctx context.Context) error {
	if _, err := s.run(ctx, "restart", s.unit); err != nil {
		return fmt.Errorf("restart %s: %w", s.unit, err)
	}
	s.logger.Info().Msg("restarted service")
	return nil
}

// IsActive reports whether the unit is currently active. Inactive units
// make is-active exit non-zero, so the output is consulted before the
// error: any well-formed state answer means the query itself succeeded.
func (s *Service) IsActive(ctx context.Context) (bool, error) {
	out, err := s.run(ctx, "is-active", s.unit)
	state := strings.TrimSpace(string(out))
	if state != "" {
		return state == "active", nil
	}
	if err != nil {
		return false, fmt.Errorf("is-active %s: %w", s.unit, err)
	}
	return false, nil
}

func (s *Service) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.runner(ctx, systemctl, args...)
}

// runCommand executes systemctl with captured stdout and stderr.
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
