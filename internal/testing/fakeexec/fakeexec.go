// Package fakeexec provides a scriptable execwrap.Runner for tests.
package fakeexec

import (
	"context"
	"strings"
	"sync"

	"github.com/patcheval/patcheval/internal/errors"
	"github.com/patcheval/patcheval/internal/execwrap"
)

// Call records one Run invocation.
type Call struct {
	Cmd  execwrap.Command
	Opts execwrap.Options
	Env  map[string]string // accumulated With() overrides active for the call
}

// Rule matches commands by substring and scripts their outcome.
type Rule struct {
	// Contains is matched against Command.String().
	Contains string
	// Result returned when the rule matches (ignored if Err is set).
	Result *execwrap.Result
	// Err returned when the rule matches.
	Err error
}

// Runner is a fake execwrap.Runner. Unmatched commands succeed with exit 0
// and empty output. Derived runners from With share the recorded call list.
type Runner struct {
	mu    sync.Mutex
	rules []Rule
	calls *[]Call
	env   map[string]string
}

// New creates an empty fake runner.
func New() *Runner {
	calls := make([]Call, 0, 8)
	return &Runner{calls: &calls}
}

// Script appends a rule.
func (r *Runner) Script(rule Rule) *Runner {
	r.rules = append(r.rules, rule)
	return r
}

// FailContaining scripts a non-zero exit for any command containing substr.
func (r *Runner) FailContaining(substr, output string) *Runner {
	return r.Script(Rule{Contains: substr, Result: &execwrap.Result{ExitCode: 1, Output: output}})
}

// Run records the call and applies the first matching rule.
func (r *Runner) Run(_ context.Context, cmd execwrap.Command, opts execwrap.Options) (*execwrap.Result, error) {
	r.mu.Lock()
	*r.calls = append(*r.calls, Call{Cmd: cmd, Opts: opts, Env: r.env})
	rules := r.rules
	r.mu.Unlock()

	for _, rule := range rules {
		if strings.Contains(cmd.String(), rule.Contains) {
			if rule.Err != nil {
				return nil, rule.Err
			}
			res := rule.Result
			if res != nil && res.ExitCode != 0 && opts.RaiseOnError {
				// Mirror the real executor: raising mode converts the
				// non-zero exit into an error at the fake boundary too.
				return nil, &errors.CommandError{ExitCode: res.ExitCode, Output: res.Output}
			}
			return res, nil
		}
	}
	return &execwrap.Result{ExitCode: 0, Output: ""}, nil
}

// With returns a derived fake sharing rules and the call list.
func (r *Runner) With(env map[string]string) execwrap.Runner {
	merged := make(map[string]string, len(r.env)+len(env))
	for k, v := range r.env {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	return &Runner{rules: r.rules, calls: r.calls, env: merged}
}

// Calls returns a snapshot of recorded calls.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(*r.calls))
	copy(out, *r.calls)
	return out
}

// CallsContaining returns recorded calls whose command contains substr.
func (r *Runner) CallsContaining(substr string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if strings.Contains(c.Cmd.String(), substr) {
			out = append(out, c)
		}
	}
	return out
}
