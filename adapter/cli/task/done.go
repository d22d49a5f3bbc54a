package task

import (
	"fmt"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/commands"
	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task as complete",
	Long: `Mark a task as complete. The tasks ranked after it move up by one.

Examples:
  tasklist task done 3f2a9c1e
  tasklist task done 550e8400-e29b-41d4-a716-446655440000`,
	Aliases: []string{"complete"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CompleteTaskHandler == nil {
			return cli.ErrNotInitialized
		}

		ctx := cmd.Context()
		taskID, err := resolveTaskID(ctx, app, args[0])
		if err != nil {
			return err
		}

		result, err := app.CompleteTaskHandler.Handle(ctx, commands.CompleteTaskCommand{
			TaskID: taskID,
			UserID: app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task completed: %s\n", result.TaskID)
		printBatch(out, "moved up", result.Shifted)
		return nil
	},
}
