package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patcheval/patcheval/internal/report"
)

func newReportCmd() *cobra.Command {
	var instances []string

	cmd := &cobra.Command{
		Use:   "report <log-dir>",
		Short: "Classify audit logs and print a per-instance table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := report.ParseLogDir(args[0])
			if err != nil {
				return err
			}
			printReports(filterReports(reports, instances))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&instances, "instance", nil, "restrict the report to these instance ids (repeatable)")
	return cmd
}

func filterReports(reports []*report.InstanceReport, only []string) []*report.InstanceReport {
	if len(only) == 0 {
		return reports
	}
	keep := make(map[string]bool, len(only))
	for _, id := range only {
		keep[id] = true
	}
	var filtered []*report.InstanceReport
	for _, rep := range reports {
		if keep[rep.InstanceID] {
			filtered = append(filtered, rep)
		}
	}
	return filtered
}

func printReports(reports []*report.InstanceReport) {
	rows := make([][]string, 0, len(reports))
	for _, rep := range reports {
		counts := ""
		if rep.Counts.Parsed {
			counts = strconv.Itoa(rep.Counts.Passed) + "/" + strconv.Itoa(rep.Counts.Total)
		}
		rows = append(rows, []string{
			rep.InstanceID,
			rep.Tests.Title(),
			strings.Join(rep.AppliedKinds, ","),
			counts,
		})
	}
	out.Table([]string{"Instance", "Status", "Applied", "Passed"}, rows)

	summary := report.Summarize(reports)
	out.Println("")
	out.Info("%d instances, %d resolved", summary.Total, summary.Resolved)
	for _, status := range []report.TestStatus{
		report.StatusPassed, report.StatusFailed, report.StatusTimeout,
		report.StatusError, report.StatusNone,
	} {
		if n := summary.ByStatus[status]; n > 0 {
			out.Println("  %s: %d", status.Title(), n)
		}
	}
}
