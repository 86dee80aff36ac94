package cli

import (
	"github.com/spf13/cobra"

	"github.com/patcheval/patcheval/internal/task"
)

func newGoldenCmd() *cobra.Command {
	var (
		dataset string
		output  string
		bench   string
	)

	cmd := &cobra.Command{
		Use:   "golden",
		Short: "Write golden predictions built from each instance's gold patch",
		Long: "Write a predictions file in which every instance predicts its own " +
			"gold patch. Running these through 'run' is the harness sanity " +
			"baseline: every instance should classify as tests-passed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := task.LoadDataset(dataset)
			if err != nil {
				return err
			}
			if err := task.WriteGoldenPredictions(instances, output, bench); err != nil {
				return err
			}
			out.Success("wrote %d golden predictions to %s", len(instances), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "task instance dataset")
	cmd.Flags().StringVar(&output, "output", "golden.jsonl", "output predictions file")
	cmd.Flags().StringVar(&bench, "bench", "patcheval", "benchmark name stamped on the synthetic model")
	cobra.CheckErr(cmd.MarkFlagRequired("dataset"))

	return cmd
}
