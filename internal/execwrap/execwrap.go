// Package execwrap runs commands as subprocesses with per-call execution
// options and a tagged failure taxonomy: completed (with exit code), timed
// out, or failed to launch. It is the single choke point through which both
// host-side and in-container commands flow.
package execwrap

import (
	"context"
	goerrors "errors"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/patcheval/patcheval/internal/auditlog"
	"github.com/patcheval/patcheval/internal/errors"
)

// Command is either a pre-tokenized argument vector or a single shell string.
// The two modes are mutually exclusive; use Argv or Shell to construct one.
type Command struct {
	argv  []string
	shell string
}

// Argv builds an argument-vector command (no shell interpretation).
func Argv(args ...string) Command {
	return Command{argv: args}
}

// Shell builds a shell-string command, executed via "sh -c".
func Shell(script string) Command {
	return Command{shell: script}
}

// IsShell reports whether the command is in shell-string mode.
func (c Command) IsShell() bool {
	return c.shell != ""
}

// ShellString returns the shell form of the command (empty in argv mode).
func (c Command) ShellString() string {
	return c.shell
}

// Args returns the argument vector (nil in shell mode).
func (c Command) Args() []string {
	return c.argv
}

// String renders the command for diagnostics.
func (c Command) String() string {
	if c.IsShell() {
		return c.shell
	}
	return strings.Join(c.argv, " ")
}

// Options configures a single execution. The zero value means: argv mode
// decided by the Command, no timeout, do not raise on non-zero exit, no env
// overrides. Most call sites start from Raising() or Capturing().
type Options struct {
	// TimeoutSeconds bounds the subprocess wall time. Zero means unbounded.
	TimeoutSeconds int
	// RaiseOnError converts a non-zero exit into a CommandError. When false
	// the caller receives the completed Result and must inspect ExitCode.
	RaiseOnError bool
	// Env is merged over the parent process environment for this call only.
	Env map[string]string
	// Dir sets the working directory of the subprocess.
	Dir string
}

// Raising returns the default options for commands whose failure is fatal.
func Raising() Options {
	return Options{RaiseOnError: true}
}

// Capturing returns the default options for commands whose exit code the
// caller classifies itself.
func Capturing() Options {
	return Options{RaiseOnError: false}
}

// Result is the outcome of a completed subprocess. Timeouts and launch
// failures never produce a Result; they surface as TimeoutError and
// LaunchError respectively.
type Result struct {
	ExitCode int
	Output   string // stdout with stderr merged
	Elapsed  time.Duration
}

// Runner is the execution seam between the environment manager and the
// world. Executor implements it for the host, container.RemoteExecutor for
// commands inside an environment, and tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command, opts Options) (*Result, error)
	// With returns a derived runner carrying extra environment overrides.
	// The receiver is never mutated; scoped env injection discards the
	// derived runner when done.
	With(env map[string]string) Runner
}

// Executor runs commands on the host, writing each invocation to an audit
// log at debug verbosity before execution.
type Executor struct {
	log *auditlog.Log
	env map[string]string
}

// New creates an Executor. log may be nil.
func New(log *auditlog.Log) *Executor {
	return &Executor{log: log}
}

// With returns a derived Executor with env merged over the receiver's
// overrides. The receiver is unchanged.
func (e *Executor) With(env map[string]string) Runner {
	merged := make(map[string]string, len(e.env)+len(env))
	for k, v := range e.env {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	return &Executor{log: e.log, env: merged}
}

// Run spawns exactly one subprocess and waits for completion or timeout.
//
// On timeout the wait is aborted and a TimeoutError is returned. On a
// non-zero exit with opts.RaiseOnError set, a CommandError carrying the exit
// code and captured output is returned after a diagnostic audit line; with
// RaiseOnError unset the completed Result is returned regardless of exit
// code. A process that cannot be started yields a LaunchError.
func (e *Executor) Run(ctx context.Context, cmd Command, opts Options) (*Result, error) {
	e.log.Debugf("Command: %s", cmd)

	runCtx := ctx
	if opts.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	proc, err := buildCmd(runCtx, cmd)
	if err != nil {
		return nil, err
	}
	if opts.Dir != "" {
		proc.Dir = opts.Dir
	}
	proc.Env = mergedEnviron(e.env, opts.Env)

	start := time.Now()
	out, runErr := proc.CombinedOutput()
	elapsed := time.Since(start)

	if runErr != nil {
		// The deadline firing dominates any exit-code interpretation:
		// a killed process reports a non-zero exit that means nothing.
		if opts.TimeoutSeconds > 0 && runCtx.Err() == context.DeadlineExceeded {
			e.log.Errorf("Command timed out after %d seconds: %s", opts.TimeoutSeconds, cmd)
			return nil, &errors.TimeoutError{Seconds: opts.TimeoutSeconds, Elapsed: elapsed}
		}

		var exitErr *exec.ExitError
		if goerrors.As(runErr, &exitErr) {
			res := &Result{ExitCode: exitErr.ExitCode(), Output: string(out), Elapsed: elapsed}
			if opts.RaiseOnError {
				e.log.Errorf("Command failed (exit %d): %s", res.ExitCode, cmd)
				return nil, &errors.CommandError{ExitCode: res.ExitCode, Output: res.Output}
			}
			return res, nil
		}

		e.log.Errorf("Command could not be launched: %s: %v", cmd, runErr)
		return nil, &errors.LaunchError{Cause: runErr}
	}

	return &Result{ExitCode: 0, Output: string(out), Elapsed: elapsed}, nil
}

func buildCmd(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	switch {
	case cmd.IsShell():
		return exec.CommandContext(ctx, "sh", "-c", cmd.shell), nil
	case len(cmd.argv) > 0:
		return exec.CommandContext(ctx, cmd.argv[0], cmd.argv[1:]...), nil
	default:
		return nil, errors.New("empty command")
	}
}

// mergedEnviron layers base then overrides on top of the parent environment.
// Deterministic ordering keeps repeated invocations byte-identical in logs.
func mergedEnviron(base, overrides map[string]string) []string {
	if len(base) == 0 && len(overrides) == 0 {
		return os.Environ()
	}
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}
