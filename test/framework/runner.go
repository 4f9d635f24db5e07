package framework

import (
	"context"
	"strings"
	"sync"
)

// ScriptedRunner satisfies the command runner seam of the systemd,
// raftadmin and render packages, so lifecycle flows run without a real
// supervisor or raft admin binary on the box.
//
// Every executed command is recorded as a single space-joined line.
// Responses are matched by substring, first registered rule wins; a
// command no rule matches succeeds with empty output.
type ScriptedRunner struct {
	mu    sync.Mutex
	rules []runnerRule
	calls []string
}

type runnerRule struct {
	match  string
	output string
	err    error
}

// NewScriptedRunner creates an empty runner.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{}
}

// Handle makes commands containing match succeed with the given output.
func (r *ScriptedRunner) Handle(match, output string) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, runnerRule{match: match, output: output})
	return r
}

// HandleError makes commands containing match fail with the given
// output and error.
func (r *ScriptedRunner) HandleError(match, output string, err error) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, runnerRule{match: match, output: output, err: err})
	return r
}

// Run is the runner function. Assign it to a package's Runner seam.
func (r *ScriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := strings.Join(append([]string{name}, args...), " ")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, command)

	for _, rule := range r.rules {
		if strings.Contains(command, rule.match) {
			return []byte(rule.output), rule.err
		}
	}
	return nil, nil
}

// Calls returns every recorded command line.
func (r *ScriptedRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// CallsMatching returns the recorded command lines containing match.
func (r *ScriptedRunner) CallsMatching(match string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []string
	for _, call := range r.calls {
		if strings.Contains(call, match) {
			matched = append(matched, call)
		}
	}
	return matched
}
