package cli

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/patcheval/patcheval/internal/container"
	"github.com/patcheval/patcheval/internal/errors"
	"github.com/patcheval/patcheval/internal/eval"
	"github.com/patcheval/patcheval/internal/report"
	"github.com/patcheval/patcheval/internal/specs"
	"github.com/patcheval/patcheval/internal/task"
)

// runOptions holds the run command's flags.
type runOptions struct {
	Dataset     string
	Predictions string
	LogDir      string
	LogSuffix   string
	Timeout     int
	Install     bool
	SpecsPath   string
	Image       string
	EnvName     string
	Instances   []string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate predictions against their task instances",
		Long: "Evaluate each prediction against its task instance: provision a " +
			"container, apply the prediction and test patches, and run the " +
			"instance's test command. Outcomes land in per-instance audit logs " +
			"under --log-dir; exit code 0 means the run completed, whatever the " +
			"individual classifications.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "task instance dataset (JSON array, keyed object, or JSONL)")
	cmd.Flags().StringVar(&opts.Predictions, "predictions", "", "model predictions file (JSONL)")
	cmd.Flags().StringVar(&opts.LogDir, "log-dir", "logs", "directory for per-instance audit logs")
	cmd.Flags().StringVar(&opts.LogSuffix, "log-suffix", "", "extra segment in audit log file names")
	cmd.Flags().IntVar(&opts.Timeout, "timeout", 900, "test execution timeout in seconds")
	cmd.Flags().BoolVar(&opts.Install, "install", false, "run the repository install step before tests")
	cmd.Flags().StringVar(&opts.SpecsPath, "specs", "", "install specification YAML (default: embedded table)")
	cmd.Flags().StringVar(&opts.Image, "image", "", "container image override (default: per-instance environment name)")
	cmd.Flags().StringVar(&opts.EnvName, "env-name", "", "container name override (default: per-instance environment name)")
	cmd.Flags().StringSliceVar(&opts.Instances, "instance", nil, "restrict the run to these instance ids (repeatable)")
	cobra.CheckErr(cmd.MarkFlagRequired("dataset"))
	cobra.CheckErr(cmd.MarkFlagRequired("predictions"))

	return cmd
}

func runEvaluation(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	if err := container.CheckAvailable(global.Runtime); err != nil {
		return err
	}

	instances, err := task.LoadDataset(opts.Dataset)
	if err != nil {
		return err
	}
	preds, err := task.LoadPredictions(opts.Predictions)
	if err != nil {
		return err
	}
	preds = filterPredictions(preds, opts.Instances)
	if len(preds) == 0 {
		return errors.Config("no predictions selected")
	}
	if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
		return errors.Configf("create log dir: %v", err)
	}

	lookup := specs.Default()
	if opts.SpecsPath != "" {
		if lookup, err = specs.Load(opts.SpecsPath); err != nil {
			return err
		}
	}

	driver := &eval.Driver{
		LogDir:         opts.LogDir,
		TimeoutSeconds: opts.Timeout,
		Verbose:        global.Verbose,
		LogSuffix:      opts.LogSuffix,
		EnvName:        opts.EnvName,
		RuntimeBin:     global.Runtime,
		Image:          opts.Image,
		Specs:          lookup,
		Install:        opts.Install,
	}

	sort.Slice(preds, func(i, j int) bool { return preds[i].InstanceID < preds[j].InstanceID })

	evaluated := 0
	for i := range preds {
		pred := &preds[i]
		inst, ok := instances[pred.InstanceID]
		if !ok {
			out.Warning("skipping %s: not in dataset", pred.InstanceID)
			continue
		}
		if err := cmd.Context().Err(); err != nil {
			return errors.Wrap(err, "evaluation interrupted")
		}

		out.InstanceStart(inst.InstanceID, inst.EnvironmentName())
		if err := driver.Evaluate(cmd.Context(), inst, pred); err != nil {
			return err
		}
		evaluated++

		status := "evaluated"
		if rep, err := report.ParseLog(logPathFor(opts, inst)); err == nil {
			status = rep.Tests.Title()
		}
		out.InstanceResult(inst.InstanceID, status)
	}

	if evaluated == 0 {
		return errors.Config("no selected prediction matched the dataset")
	}
	return printSummary(opts.LogDir)
}

// logPathFor mirrors the audit log naming of the environment manager, so
// the run command can classify an instance right after evaluating it.
func logPathFor(opts *runOptions, inst *task.Instance) string {
	name := inst.InstanceID + "." + inst.Model
	if opts.LogSuffix != "" {
		name += "." + opts.LogSuffix
	}
	return filepath.Join(opts.LogDir, name+".eval.log")
}

func filterPredictions(preds []task.Prediction, only []string) []task.Prediction {
	if len(only) == 0 {
		return preds
	}
	keep := make(map[string]bool, len(only))
	for _, id := range only {
		keep[id] = true
	}
	var filtered []task.Prediction
	for _, p := range preds {
		if keep[p.InstanceID] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func printSummary(logDir string) error {
	reports, err := report.ParseLogDir(logDir)
	if err != nil {
		return err
	}
	summary := report.Summarize(reports)
	out.Println("")
	out.Info("%d instance logs, %d resolved", summary.Total, summary.Resolved)
	return nil
}
