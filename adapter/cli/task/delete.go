package task

import (
	"fmt"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/commands"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Long: `Delete a task. A pending task's slot is closed by moving the tasks
after it up by one.

Examples:
  tasklist task delete 3f2a9c1e`,
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DeleteTaskHandler == nil {
			return cli.ErrNotInitialized
		}

		ctx := cmd.Context()
		taskID, err := resolveTaskID(ctx, app, args[0])
		if err != nil {
			return err
		}

		result, err := app.DeleteTaskHandler.Handle(ctx, commands.DeleteTaskCommand{
			TaskID: taskID,
			UserID: app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task deleted: %s\n", result.TaskID)
		printBatch(out, "moved up", result.Shifted)
		return nil
	},
}
