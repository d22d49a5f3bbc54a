package task

import (
	"fmt"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/commands"
	"github.com/spf13/cobra"
)

var (
	updateTitle       string
	updateDescription string
	updatePriority    int
)

var updateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task",
	Long: `Change a pending task's title, description or priority.

Examples:
  tasklist task update 3f2a9c1e --title "Plan the Q3 offsite"
  tasklist task update 3f2a9c1e --description "" --priority 2`,
	Aliases: []string{"edit"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.UpdateTaskHandler == nil {
			return cli.ErrNotInitialized
		}

		ctx := cmd.Context()
		taskID, err := resolveTaskID(ctx, app, args[0])
		if err != nil {
			return err
		}

		update := commands.UpdateTaskCommand{
			UserID: app.CurrentUserID,
			TaskID: taskID,
		}
		flags := cmd.Flags()
		if flags.Changed("title") {
			update.Title = &updateTitle
		}
		if flags.Changed("description") {
			update.Description = &updateDescription
		}
		if flags.Changed("priority") {
			update.Priority = &updatePriority
		}
		if update.Title == nil && update.Description == nil && update.Priority == nil {
			return fmt.Errorf("nothing to update: pass --title, --description or --priority")
		}

		result, err := app.UpdateTaskHandler.Handle(ctx, update)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task updated: %s\n", result.TaskID)
		fmt.Fprintf(out, "  priority: %d\n", result.Priority)
		printBatch(out, "shifted", others(result.Applied, taskID))
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVarP(&updateTitle, "title", "t", "", "new title")
	updateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "new description")
	updateCmd.Flags().IntVarP(&updatePriority, "priority", "p", 0, "new priority slot")
}
