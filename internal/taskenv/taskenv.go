// Package taskenv owns the full lifecycle of one disposable task
// environment: provision, patch application with capture-only failure
// handling, test execution under a timeout, and unconditional teardown.
//
// The audit log written here is the durable record of what happened; the
// boolean returns are control signals for the driver, nothing more.
package taskenv

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/patcheval/patcheval/internal/auditlog"
	"github.com/patcheval/patcheval/internal/container"
	"github.com/patcheval/patcheval/internal/errors"
	"github.com/patcheval/patcheval/internal/execwrap"
	"github.com/patcheval/patcheval/internal/specs"
	"github.com/patcheval/patcheval/internal/task"
)

// heredoc delimiter for writing patch files into the environment. A patch
// containing this exact line cannot be written; no real diff does.
const patchEOF = "PATCHEVAL_EOF"

// Config carries the construction-time knobs of a Manager.
type Config struct {
	LogDir         string
	Verbose        bool
	TimeoutSeconds int // test-run timeout; zero means unbounded
	IsEval         bool
	LogSuffix      string
	Specs          *specs.Lookup
	RuntimeBin     string // container CLI binary, default "docker"
	Image          string // environment image, default: the environment name
	Mirror         *slog.Logger
}

// Manager owns one environment instance for one task instance. It is not
// safe for concurrent use; environments are single-tenant and the
// environment name is the only shared resource.
type Manager struct {
	inst    *task.Instance
	envName string
	cfg     Config

	log     *auditlog.Log
	host    *execwrap.Executor
	runtime *container.Runtime

	remote     execwrap.Runner
	instanceID string
	state      State
}

// New computes the audit log path and wires the host-side executor. It has
// no side effects: nothing is created until Provision.
func New(inst *task.Instance, envName string, cfg Config) *Manager {
	var mirror *slog.Logger
	if cfg.Verbose {
		mirror = cfg.Mirror
		if mirror == nil {
			mirror = slog.Default()
		}
		mirror = mirror.With("instance", inst.InstanceID, "env", envName)
	}

	log := auditlog.New(
		filepath.Join(cfg.LogDir, logFileName(inst, cfg)),
		fmt.Sprintf("[%s] [%s]", envName, inst.InstanceID),
		mirror,
	)
	host := execwrap.New(log)

	return &Manager{
		inst:    inst,
		envName: envName,
		cfg:     cfg,
		log:     log,
		host:    host,
		runtime: container.NewRuntime(cfg.RuntimeBin, host),
		state:   StateUninitialized,
	}
}

// logFileName derives the audit log file name from the instance id, the
// model id (for evaluation runs), and an optional suffix.
func logFileName(inst *task.Instance, cfg Config) string {
	if cfg.IsEval {
		if cfg.LogSuffix != "" {
			return fmt.Sprintf("%s.%s.%s.eval.log", inst.InstanceID, inst.Model, cfg.LogSuffix)
		}
		return fmt.Sprintf("%s.%s.eval.log", inst.InstanceID, inst.Model)
	}
	if cfg.LogSuffix != "" {
		return fmt.Sprintf("%s.%s.log", inst.InstanceID, cfg.LogSuffix)
	}
	return inst.InstanceID + ".log"
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// LogPath returns the audit log file path.
func (m *Manager) LogPath() string {
	return m.log.Path()
}

// EnvironmentName returns the environment name the manager owns.
func (m *Manager) EnvironmentName() string {
	return m.envName
}

// Provision enters the environment scope: writes the truncating audit log
// header, force-removes any stale environment under the same name, starts a
// fresh detached instance, and binds the remote executor to it.
//
// Any failure propagates and no environment is presumed to exist; callers
// still defer Teardown, which is safe in every state.
func (m *Manager) Provision(ctx context.Context) error {
	header := fmt.Sprintf("Task Metadata:\n\t- Instance ID: %s\n\t- Environment: %s",
		m.inst.InstanceID, m.envName)
	if m.cfg.IsEval {
		header += fmt.Sprintf("\n\t- Evaluation Model: %s", m.inst.Model)
	}
	if err := m.log.WriteHeader(header); err != nil {
		return errors.Configf("write audit log header: %v", err)
	}

	// A stopped or dangling environment under this name is normal (a
	// previous crashed run); the forced removal absorbs it so names are
	// idempotently reusable.
	m.runtime.ForceRemove(ctx, m.envName)

	image := m.cfg.Image
	if image == "" {
		image = m.envName
	}
	id, err := m.runtime.Start(ctx, m.envName, image)
	if err != nil {
		return err
	}
	m.instanceID = id
	m.log.Writef("Container started: %s", id)

	m.remote = container.NewRemoteExecutor(m.runtime.Binary(), id, m.host)
	m.state = StateProvisioned
	return nil
}

// ApplyPatch writes patch text into the environment and applies it (or, with
// revert, reverses it) against the working tree. A nil patch is logged and
// refused without touching the environment. Apply failures are captured, not
// raised: exactly one APPLY_PATCH_PASS or APPLY_PATCH_FAIL marker is written
// per call and the return value reports whether the tool exited zero.
func (m *Manager) ApplyPatch(ctx context.Context, patch *string, kind PatchKind, revert bool) bool {
	if patch == nil {
		m.log.Writef("Patch is `None` (%s)", kind)
		m.log.Appendf("%s; Prediction patch is `None`", auditlog.ApplyPatchFail)
		return false
	}
	if m.remote == nil || m.state == StateTornDown {
		m.log.Errorf("Apply patch refused: environment is %s (%s)", m.state, kind)
		m.log.Appendf("%s; (%s)", auditlog.ApplyPatchFail, kind)
		return false
	}

	// Collision-free across kinds for one instance; environments are
	// single-tenant so cross-instance collisions are out of scope.
	patchPath := fmt.Sprintf("temp_%s_%s.patch", m.inst.InstanceID, kind)

	if err := m.writePatchFile(ctx, patchPath, *patch); err != nil {
		m.log.Errorf("Failed to write patch: %v", err)
		m.log.Appendf("%s; (%s) patch file could not be written", auditlog.ApplyPatchFail, kind)
		return false
	}

	applyArgv := []string{"git", "apply", "-v"}
	if revert {
		applyArgv = append(applyArgv, "-R")
	}
	applyArgv = append(applyArgv, patchPath)
	res, err := m.remote.Run(ctx, execwrap.Argv(applyArgv...), execwrap.Capturing())

	// Best-effort cleanup regardless of apply outcome.
	m.remote.Run(ctx, execwrap.Argv("rm", patchPath), execwrap.Capturing())

	action := "Apply"
	if revert {
		action = "Revert"
	}
	if err != nil || res.ExitCode != 0 {
		m.log.Errorf("%s patch failed (%s)", action, kind)
		output := ""
		if res != nil {
			output = res.Output
		} else {
			output = err.Error()
		}
		m.log.Appendf("%s; (%s)\nOutput:\n%s", auditlog.ApplyPatchFail, kind, output)
		return false
	}

	m.log.Writef("%s patch successful (%s)", action, kind)
	m.log.Appendf("%s (%s)", auditlog.ApplyPatchPass, kind)
	if !revert && m.state == StateProvisioned {
		m.state = StatePatched
	}
	return true
}

// writePatchFile writes text verbatim to path inside the environment via a
// quoted heredoc, so no shell interpolation touches the patch body.
func (m *Manager) writePatchFile(ctx context.Context, path, text string) error {
	script := fmt.Sprintf("cat > %s << '%s'\n%s\n%s",
		path, patchEOF, strings.TrimRight(text, "\n"), patchEOF)
	_, err := m.remote.Run(ctx, execwrap.Argv("sh", "-c", script), execwrap.Raising())
	return err
}

// RunInstall runs the repository's install command for this instance's
// version, when the install-specification lookup has one. Absence of a spec
// is success: there is nothing to install.
func (m *Manager) RunInstall(ctx context.Context) bool {
	spec, ok := m.lookupSpec()
	if !ok || spec.Install == "" {
		return true
	}

	m.log.Appendf("Install Script: %s;", spec.Install)
	opts := execwrap.Capturing()
	opts.TimeoutSeconds = spec.TimeoutSeconds

	res, err := m.remote.Run(ctx, execwrap.Shell(spec.Install), opts)
	switch {
	case err == nil && res.ExitCode == 0:
		m.log.Write("Installation successful")
		m.log.Appendf("%s", auditlog.InstallPass)
		return true
	case err == nil:
		m.log.Errorf("Installation failed (exit %d)", res.ExitCode)
		m.log.Appendf("%s\nOutput:\n%s", auditlog.InstallFail, res.Output)
		return false
	case errors.IsTimeout(err):
		m.log.Errorf("Installation timed out")
		m.log.Appendf("%s after %d seconds", auditlog.InstallTimeout, spec.TimeoutSeconds)
		return false
	default:
		m.log.Errorf("Installation failed: %v", err)
		m.log.Appendf("%s\nOutput:\n%v", auditlog.InstallFail, err)
		return false
	}
}

// RunTests executes the instance's test command inside the environment with
// the configured timeout. The returned boolean means "the test script ran to
// completion": both TESTS_PASSED and TESTS_FAILED return true, and the
// pass/fail distinction lives only in the audit log marker. A timeout or a
// launch failure returns false.
func (m *Manager) RunTests(ctx context.Context, inst *task.Instance) bool {
	m.log.Appendf("Test Script: %s;", inst.TestCmd)

	// Env overrides for the test step are scoped: a derived runner carries
	// them and is discarded on return, so nothing shared is mutated and
	// nothing can leak past this call.
	runner := m.remote
	if spec, ok := m.lookupSpec(); ok && len(spec.EnvVarsTest) > 0 {
		runner = runner.With(spec.EnvVarsTest)
	}

	opts := execwrap.Capturing()
	opts.TimeoutSeconds = m.cfg.TimeoutSeconds

	res, err := runner.Run(ctx, execwrap.Shell(inst.TestCmd), opts)
	switch {
	case err == nil:
		m.log.Append(res.Output)
		if res.ExitCode != 0 {
			m.log.Appendf("\n%s", auditlog.TestsFailed)
		} else {
			m.log.Appendf("\n%s", auditlog.TestsPassed)
		}
		m.log.Write("Test script run successful")
		m.state = StateTested
		return true
	case errors.IsTimeout(err):
		m.log.Errorf("Test script run timed out")
		m.log.Appendf("%s after %d seconds", auditlog.TestsTimeout, m.cfg.TimeoutSeconds)
		return false
	default:
		m.log.Errorf("Test script run failed")
		m.log.Appendf("%s: %v", auditlog.TestsError, err)
		return false
	}
}

// Reset restores the environment's working tree to a clean state.
func (m *Manager) Reset(ctx context.Context) bool {
	for _, argv := range [][]string{
		{"git", "checkout", "--", "."},
		{"git", "clean", "-fd"},
	} {
		res, err := m.remote.Run(ctx, execwrap.Argv(argv...), execwrap.Capturing())
		if err != nil || res.ExitCode != 0 {
			m.log.Errorf("Reset failed: %s", strings.Join(argv, " "))
			m.log.Appendf("%s", auditlog.ResetFailed)
			return false
		}
	}
	m.log.Write("Reset successful")
	return true
}

// Teardown force-kills and force-removes the environment, swallowing every
// error: the environment may already be gone and teardown must never mask
// the real outcome. It always runs, in any state, and is idempotent.
func (m *Manager) Teardown(ctx context.Context) {
	m.runtime.ForceRemove(ctx, m.envName)
	m.remote = nil
	m.state = StateTornDown
}

func (m *Manager) lookupSpec() (specs.VersionSpec, bool) {
	return m.cfg.Specs.For(m.inst.Repo, m.inst.Version)
}
