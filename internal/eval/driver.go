// Package eval implements the evaluation driver protocol: the fixed patch
// and test sequence run against one task environment per task instance.
package eval

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/patcheval/patcheval/internal/patchutil"
	"github.com/patcheval/patcheval/internal/specs"
	"github.com/patcheval/patcheval/internal/task"
	"github.com/patcheval/patcheval/internal/taskenv"
)

// Driver evaluates predictions, one instance per call. An abandoned
// evaluation (patch never applied, tests never ran) is not an error: the
// audit log carries the classification and Evaluate returns nil.
type Driver struct {
	LogDir         string
	TimeoutSeconds int
	Verbose        bool
	LogSuffix      string
	// EnvName overrides the environment name derived from repo+version.
	// Batch drivers running instances concurrently must supply distinct
	// names; within one name, exclusivity comes from force-remove-first.
	EnvName string
	// RuntimeBin is the container CLI binary, default "docker".
	RuntimeBin string
	// Image overrides the container image; empty uses the environment name.
	Image string
	// Specs is the install-specification lookup; nil resolves nothing.
	Specs *specs.Lookup
	// Minimize produces the fallback patch when the prediction fails to
	// apply. Nil uses patchutil.ExtractMinimal.
	Minimize patchutil.Minimizer
	// Install runs the repository install step before the tests.
	Install bool
	Logger  *slog.Logger

	// newManager is the construction seam for tests.
	newManager func(inst *task.Instance, envName string, cfg taskenv.Config) environment
}

// environment is the slice of taskenv.Manager the driver drives.
type environment interface {
	Provision(ctx context.Context) error
	ApplyPatch(ctx context.Context, patch *string, kind taskenv.PatchKind, revert bool) bool
	RunInstall(ctx context.Context) bool
	RunTests(ctx context.Context, inst *task.Instance) bool
	Teardown(ctx context.Context)
}

// Evaluate runs the full sequence for one instance against one prediction:
//
//  1. apply the prediction as a trial;
//  2. if the trial fails and the prediction text is non-null and non-empty,
//     substitute the minimal variant and retry as a trial; if that also
//     fails, abandon the task;
//  3. revert whichever trial succeeded;
//  4. re-apply under the final kind label, then apply the test patch;
//  5. if both applied, run the tests.
//
// Failures at steps 3-5 abort the remaining sequence but never suppress
// teardown: the environment is torn down unconditionally on return. Only
// provisioning failures surface as errors.
func (d *Driver) Evaluate(ctx context.Context, inst *task.Instance, pred *task.Prediction) error {
	inst.Prediction = pred.Patch
	inst.Model = pred.Model

	envName := d.EnvName
	if envName == "" {
		envName = inst.EnvironmentName()
	}

	runID := uuid.NewString()
	d.logger().Info("evaluating instance",
		"instance", inst.InstanceID, "env", envName, "model", inst.Model, "run", runID)

	env := d.manager(inst, envName)
	if err := env.Provision(ctx); err != nil {
		return err
	}
	defer env.Teardown(ctx)

	// Trial applications probe applicability only; the tree is restored
	// before the real sequence.
	kind := taskenv.PatchPredTry
	if !env.ApplyPatch(ctx, inst.Prediction, kind, false) {
		if inst.Prediction == nil || *inst.Prediction == "" {
			return nil
		}
		minimal := d.minimize()(*inst.Prediction)
		inst.Prediction = &minimal
		kind = taskenv.PatchPredMinimalTry
		if !env.ApplyPatch(ctx, inst.Prediction, kind, false) {
			// Neither form applies; the audit log already says so.
			return nil
		}
	}

	if !env.ApplyPatch(ctx, inst.Prediction, kind, true) {
		return nil
	}

	// The final label records whether the minimal substitute was needed.
	if kind == taskenv.PatchPredMinimalTry {
		kind = taskenv.PatchPredMinimal
	} else {
		kind = taskenv.PatchPred
	}

	if !env.ApplyPatch(ctx, inst.Prediction, kind, false) {
		return nil
	}
	// A failing test patch is immediately terminal: the minimal-patch
	// fallback exists for predictions only.
	if !env.ApplyPatch(ctx, &inst.TestPatch, taskenv.PatchTest, false) {
		return nil
	}
	if d.Install && !env.RunInstall(ctx) {
		return nil
	}
	env.RunTests(ctx, inst)
	return nil
}

func (d *Driver) manager(inst *task.Instance, envName string) environment {
	cfg := taskenv.Config{
		LogDir:         d.LogDir,
		Verbose:        d.Verbose,
		TimeoutSeconds: d.TimeoutSeconds,
		IsEval:         true,
		LogSuffix:      d.LogSuffix,
		Specs:          d.Specs,
		RuntimeBin:     d.RuntimeBin,
		Image:          d.Image,
		Mirror:         d.Logger,
	}
	if d.newManager != nil {
		return d.newManager(inst, envName, cfg)
	}
	return taskenv.New(inst, envName, cfg)
}

func (d *Driver) minimize() patchutil.Minimizer {
	if d.Minimize != nil {
		return d.Minimize
	}
	return patchutil.ExtractMinimal
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
