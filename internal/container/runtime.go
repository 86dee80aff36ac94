// Package container wraps the container runtime CLI and provides the remote
// executor that routes commands through "exec inside environment X".
//
// The harness depends on exactly four runtime verbs (run, exec, kill, rm)
// and on exit-code semantics; nothing here touches a runtime API beyond
// argv/stdout/stderr/exit code.
package container

import (
	"context"
	"os/exec"
	"strings"

	"github.com/patcheval/patcheval/internal/errors"
	"github.com/patcheval/patcheval/internal/execwrap"
)

// DefaultBinary is the container runtime CLI used unless overridden.
const DefaultBinary = "docker"

// Runtime manages disposable environment instances through the runtime CLI.
type Runtime struct {
	bin  string
	host execwrap.Runner
}

// NewRuntime creates a Runtime. bin defaults to DefaultBinary when empty.
func NewRuntime(bin string, host execwrap.Runner) *Runtime {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Runtime{bin: bin, host: host}
}

// Binary returns the runtime CLI binary name.
func (r *Runtime) Binary() string {
	return r.bin
}

// IsAvailable checks whether the runtime daemon is reachable.
func IsAvailable(bin string) bool {
	if bin == "" {
		bin = DefaultBinary
	}
	cmd := exec.Command(bin, "info")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// CheckAvailable returns an environment error (exit code 3) if the runtime
// is not available.
func CheckAvailable(bin string) error {
	if !IsAvailable(bin) {
		if bin == "" {
			bin = DefaultBinary
		}
		return errors.Environmentf("%s is not available or not running", bin)
	}
	return nil
}

// Start launches a new detached environment instance under name from image
// and returns the runtime-assigned instance identifier.
func (r *Runtime) Start(ctx context.Context, name, image string) (string, error) {
	res, err := r.host.Run(ctx,
		execwrap.Argv(r.bin, "run", "-d", "-t", "--name", name, image),
		execwrap.Raising())
	if err != nil {
		return "", errors.Wrap(err, "start environment "+name)
	}
	id := lastLine(res.Output)
	if id == "" {
		return "", errors.Newf("start environment %s: runtime returned no instance id", name)
	}
	return id, nil
}

// Kill force-stops the named environment. Callers decide whether the error
// matters; a missing environment is a normal condition during teardown.
func (r *Runtime) Kill(ctx context.Context, name string) error {
	_, err := r.host.Run(ctx, execwrap.Argv(r.bin, "kill", name), execwrap.Capturing())
	return err
}

// Remove removes the named environment.
func (r *Runtime) Remove(ctx context.Context, name string) error {
	_, err := r.host.Run(ctx, execwrap.Argv(r.bin, "rm", name), execwrap.Capturing())
	return err
}

// ForceRemove kills and removes the named environment, swallowing all
// errors. Used both to absorb stale environments before a start and for
// unconditional teardown.
func (r *Runtime) ForceRemove(ctx context.Context, name string) {
	_ = r.Kill(ctx, name)
	_ = r.Remove(ctx, name)
}

// lastLine returns the last non-empty output line. "docker run -d" prints
// the container id last; anything before it is pull progress or warnings
// (stderr is merged into the captured output).
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
