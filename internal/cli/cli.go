// Package cli provides the command-line interface for patcheval.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/patcheval/patcheval/internal/errors"
	"github.com/patcheval/patcheval/internal/output"
)

// Version is set at build time.
var Version = "dev"

var out = output.New()

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	Verbose bool
	Quiet   bool
	Runtime string
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	return errors.ExitSuccess
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:     "patcheval",
		Short:   "Evaluate model-generated patches in disposable container environments",
		Version: Version,
		Long: "patcheval applies predicted patches to task instances inside " +
			"disposable containers, runs each instance's test suite, and " +
			"records the outcome in per-instance audit logs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(opts.Verbose)
			out.SetQuiet(opts.Quiet)
		},
	}

	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "mirror audit log lines to stderr")
	root.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress progress output")
	root.PersistentFlags().StringVar(&opts.Runtime, "runtime", "docker", "container runtime binary")

	// Flag misuse is a configuration problem, not a runtime one.
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.Config(err.Error())
	})

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newGoldenCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the patcheval version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out.Println("patcheval %s", Version)
		},
	})

	return root
}

// configureLogging installs the process-wide slog handler. Evaluation
// internals log through slog; the default level keeps them quiet unless
// --verbose is given.
func configureLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
