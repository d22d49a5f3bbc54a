package task

import (
	"fmt"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/queries"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show task details",
	Long: `Display detailed information about a specific task.

Examples:
  tasklist task show 3f2a9c1e
  tasklist task show 550e8400-e29b-41d4-a716-446655440000`,
	Aliases: []string{"get", "view"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetTaskHandler == nil {
			return cli.ErrNotInitialized
		}

		ctx := cmd.Context()
		taskID, err := resolveTaskID(ctx, app, args[0])
		if err != nil {
			return err
		}

		t, err := app.GetTaskHandler.Handle(ctx, queries.GetTaskQuery{
			TaskID: taskID,
			UserID: app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task: %s\n", t.ID)
		fmt.Fprintf(out, "  Title:       %s\n", t.Title)
		fmt.Fprintf(out, "  Status:      %s\n", t.Status())
		if !t.Completed {
			fmt.Fprintf(out, "  Priority:    %d\n", t.Priority)
		}
		if t.Description != "" {
			fmt.Fprintf(out, "  Description: %s\n", t.Description)
		}
		fmt.Fprintf(out, "  Created:     %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
		if t.CompletedAt != nil {
			fmt.Fprintf(out, "  Completed:   %s\n", t.CompletedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}
