package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/paddock/pkg/log"
)

const (
	// DefaultUnitPath is where the supervisor unit file is installed.
	DefaultUnitPath = "/etc/systemd/system/patroni.service"

	// HAConfigFileName is the HA manager configuration file, rendered
	// under the spec's storage path.
	HAConfigFileName = "patroni.yml"

	// EngineConfDir and EngineConfFileName locate the database engine
	// configuration fragment under the storage path.
	EngineConfDir      = "conf.d"
	EngineConfFileName = "postgresql-operator.conf"

	// engineUser owns every rendered file and the storage path.
	engineUser = "postgres"

	// enginePackage is the distribution package the engine version is
	// detected from.
	enginePackage = "postgresql"

	fileMode os.FileMode = 0o644
	dirMode  os.FileMode = 0o750
)

// Error reports a failed filesystem or ownership operation during a
// render. Renders are never retried: a broken filesystem needs an
// operator, not another attempt.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ChownFunc sets the ownership of a path. The default implementation
// chowns to the database engine's OS user; tests inject a recorder.
type ChownFunc func(path string) error

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Renderer writes the configuration a unit needs to run the HA manager:
// the manager's YAML config, the engine parameter fragment it includes,
// and the systemd unit that supervises it. Renders are pure functions of
// the spec: the same spec always produces byte-identical files, and mode
// and ownership are re-asserted on every write so drift self-heals.
type Renderer struct {
	chown    ChownFunc
	runner   Runner
	unitPath string
	logger   zerolog.Logger
}

// NewRenderer creates a renderer with the host defaults.
func NewRenderer() *Renderer {
	return &Renderer{
		chown:    chownEngineUser,
		runner:   runCommand,
		unitPath: DefaultUnitPath,
		logger:   log.WithComponent("render"),
	}
}

// WithChown replaces the ownership function.
func (r *Renderer) WithChown(fn ChownFunc) *Renderer {
	r.chown = fn
	return r
}

// WithRunner replaces the command runner used for version detection.
func (r *Renderer) WithRunner(run Runner) *Renderer {
	r.runner = run
	return r
}

// WithUnitPath changes where the supervisor unit file is written.
func (r *Renderer) WithUnitPath(path string) *Renderer {
	r.unitPath = path
	return r
}

// EnsureOwnership hands the storage path to the engine user. The path is
// provisioned by the platform before the first configure; only its
// ownership is this package's problem.
func (r *Renderer) EnsureOwnership(path string) error {
	if err := r.chown(path); err != nil {
		return &Error{Op: "chown", Path: path, Err: err}
	}
	return nil
}

// Configured reports whether the unit has a rendered HA manager config.
// It answers from the filesystem alone, so it is safe to call before the
// manager is running.
func (r *Renderer) Configured(storagePath string) bool {
	_, err := os.Stat(filepath.Join(storagePath, HAConfigFileName))
	return err == nil
}

// DetectEngineVersion returns the installed engine's version with the
// distribution revision trimmed, e.g. "14+238ubuntu0.1" detects as "14".
// The version selects the engine's data and binary directories in the
// rendered HA config.
func (r *Renderer) DetectEngineVersion(ctx context.Context) (string, error) {
	out, err := r.runner(ctx, "dpkg-query", "--showformat=${Version}", "--show", enginePackage)
	if err != nil {
		return "", fmt.Errorf("detect engine version: %w", err)
	}
	version := strings.TrimSpace(string(out))
	if version == "" {
		return "", fmt.Errorf("detect engine version: empty version for package %s", enginePackage)
	}
	return strings.SplitN(version, "+", 2)[0], nil
}

// writeFile writes content and re-asserts mode and ownership. WriteFile
// applies the mode only on create, so an existing file is chmodded again.
func (r *Renderer) writeFile(path string, content []byte, mode os.FileMode) error {
	if err := os.WriteFile(path, content, mode); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(path, mode); err != nil {
		return &Error{Op: "chmod", Path: path, Err: err}
	}
	if err := r.chown(path); err != nil {
		return &Error{Op: "chown", Path: path, Err: err}
	}
	return nil
}

// createDirectory creates a directory and re-asserts mode and ownership.
func (r *Renderer) createDirectory(path string, mode os.FileMode) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return &Error{Op: "mkdir", Path: path, Err: err}
	}
	if err := os.Chmod(path, mode); err != nil {
		return &Error{Op: "chmod", Path: path, Err: err}
	}
	if err := r.chown(path); err != nil {
		return &Error{Op: "chown", Path: path, Err: err}
	}
	return nil
}

// chownEngineUser sets ownership of a path to the engine's OS user.
func chownEngineUser(path string) error {
	u, err := user.Lookup(engineUser)
	if err != nil {
		return fmt.Errorf("lookup user %s: %w", engineUser, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}
	return os.Chown(path, uid, gid)
}

// runCommand executes a command with captured stdout and stderr.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

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
