package task

import (
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/commands"
	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <task-id> <priority>",
	Short: "Move a task to another priority",
	Long: `Move a pending task to another slot. Only the tasks between the old and
the new slot shift by one; everything else keeps its priority.

Examples:
  tasklist task move 3f2a9c1e 1     # make it the top task
  tasklist task move 3f2a9c1e 4`,
	Aliases: []string{"mv", "rank"},
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ChangePriorityHandler == nil {
			return cli.ErrNotInitialized
		}

		target, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority %q: %w", args[1], err)
		}

		ctx := cmd.Context()
		taskID, err := resolveTaskID(ctx, app, args[0])
		if err != nil {
			return err
		}

		result, err := app.ChangePriorityHandler.Handle(ctx, commands.ChangePriorityCommand{
			UserID:   app.CurrentUserID,
			TaskID:   taskID,
			Priority: target,
		})
		if err != nil {
			return fmt.Errorf("failed to move task: %w", err)
		}

		out := cmd.OutOrStdout()
		if result.From == result.Priority {
			fmt.Fprintf(out, "Task %s already has priority %d\n", shortID(taskID), result.Priority)
			return nil
		}
		fmt.Fprintf(out, "Task %s moved: %d -> %d\n", shortID(taskID), result.From, result.Priority)
		printBatch(out, "shifted", others(result.Applied, taskID))
		return nil
	},
}
