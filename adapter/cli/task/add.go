package task

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/commands"
	"github.com/spf13/cobra"
)

var (
	addPriority    int
	addDescription string
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new task",
	Long: `Add a pending task. Without --priority it goes to the end of the list.

Asking for a priority another task already holds pushes that task and every
task after it down by one.

Examples:
  tasklist task add "Plan the offsite"
  tasklist task add "Renew passport" -p 1
  tasklist task add "Book venue" --priority 2 --description "30 people"`,
	Aliases: []string{"create", "new"},
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CreateTaskHandler == nil {
			return cli.ErrNotInitialized
		}

		result, err := app.CreateTaskHandler.Handle(cmd.Context(), commands.CreateTaskCommand{
			UserID:      app.CurrentUserID,
			Title:       strings.Join(args, " "),
			Description: addDescription,
			Priority:    addPriority,
		})
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task created: %s\n", result.TaskID)
		fmt.Fprintf(out, "  priority: %d\n", result.Priority)
		printBatch(out, "shifted", result.Shifted)
		return nil
	},
}

func init() {
	addCmd.Flags().IntVarP(&addPriority, "priority", "p", 0, "priority slot (1 is first, default: end of list)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "task description")
}
