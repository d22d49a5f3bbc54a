package task

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/queries"
	"github.com/spf13/cobra"
)

// ErrRankingCorrupted is returned by `task check` when the stored ranking is
// not exactly 1..N.
var ErrRankingCorrupted = errors.New("ranking is not dense")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the pending tasks are ranked 1..N",
	Long: `Report duplicate, missing or non-positive priorities among your pending
tasks. Nothing is changed; moves fail until the data is repaired.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CheckRankingHandler == nil {
			return cli.ErrNotInitialized
		}

		report, err := app.CheckRankingHandler.Handle(cmd.Context(), queries.CheckRankingQuery{
			UserID: app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to check ranking: %w", err)
		}

		out := cmd.OutOrStdout()
		if report.Dense() {
			fmt.Fprintf(out, "OK: %d pending task(s) ranked 1..%d\n", report.Count, report.Count)
			return nil
		}

		fmt.Fprintf(out, "%d pending task(s), ranking is broken:\n", report.Count)
		if len(report.Duplicates) > 0 {
			fmt.Fprintf(out, "  duplicates:   %v\n", report.Duplicates)
		}
		if len(report.Gaps) > 0 {
			fmt.Fprintf(out, "  missing:      %v\n", report.Gaps)
		}
		if len(report.NonPositive) > 0 {
			fmt.Fprintf(out, "  non-positive: %v\n", report.NonPositive)
		}
		return ErrRankingCorrupted
	},
}
