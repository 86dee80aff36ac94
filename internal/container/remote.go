package container

import (
	"context"
	"sort"

	"github.com/patcheval/patcheval/internal/execwrap"
)

// RemoteExecutor routes every command through "exec inside environment X":
// an argv command is prefixed with the runtime's exec invocation and the
// instance id, a shell-string command has the same invocation prepended as a
// string. Timeout, raise behavior, and audit logging are inherited from the
// underlying host executor unchanged, so callers stay agnostic to where a
// command actually runs.
type RemoteExecutor struct {
	bin        string
	instanceID string
	host       execwrap.Runner
	env        map[string]string
}

// NewRemoteExecutor binds a remote executor to a running environment
// instance. bin defaults to DefaultBinary when empty.
func NewRemoteExecutor(bin, instanceID string, host execwrap.Runner) *RemoteExecutor {
	if bin == "" {
		bin = DefaultBinary
	}
	return &RemoteExecutor{bin: bin, instanceID: instanceID, host: host}
}

// InstanceID returns the bound environment instance identifier.
func (r *RemoteExecutor) InstanceID() string {
	return r.instanceID
}

// Run rewrites cmd to execute inside the bound environment, then delegates.
func (r *RemoteExecutor) Run(ctx context.Context, cmd execwrap.Command, opts execwrap.Options) (*execwrap.Result, error) {
	return r.host.Run(ctx, r.rewrite(cmd), opts)
}

// With returns a derived remote executor whose exec invocations carry env as
// --env flags, so the overrides reach the process inside the environment
// rather than the runtime CLI on the host. The receiver is never mutated.
func (r *RemoteExecutor) With(env map[string]string) execwrap.Runner {
	merged := make(map[string]string, len(r.env)+len(env))
	for k, v := range r.env {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	return &RemoteExecutor{bin: r.bin, instanceID: r.instanceID, host: r.host, env: merged}
}

func (r *RemoteExecutor) rewrite(cmd execwrap.Command) execwrap.Command {
	if cmd.IsShell() {
		prefix := r.bin + " exec"
		for _, pair := range r.envPairs() {
			prefix += " --env '" + pair + "'"
		}
		return execwrap.Shell(prefix + " " + r.instanceID + " " + cmd.ShellString())
	}
	argv := []string{r.bin, "exec"}
	for _, pair := range r.envPairs() {
		argv = append(argv, "--env", pair)
	}
	argv = append(argv, r.instanceID)
	argv = append(argv, cmd.Args()...)
	return execwrap.Argv(argv...)
}

// envPairs renders the overrides as sorted K=V pairs, so repeated
// invocations produce identical audit lines.
func (r *RemoteExecutor) envPairs() []string {
	if len(r.env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.env))
	for k := range r.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+r.env[k])
	}
	return pairs
}
