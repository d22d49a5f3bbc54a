package task

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/queries"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	showCompleted bool
	search        string
	page          int
	pageSize      int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List tasks one page at a time. Pending tasks are listed by priority.

Examples:
  tasklist task list                    # Pending tasks, by priority
  tasklist task list --completed        # Completed tasks
  tasklist task list --all              # Everything not deleted
  tasklist task list --search venue     # Titles containing "venue"
  tasklist task list --page 2 -n 10     # Second page of ten`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListTasksHandler == nil {
			return cli.ErrNotInitialized
		}

		query := queries.ListTasksQuery{
			UserID:   app.CurrentUserID,
			Scope:    queries.ScopePending,
			Search:   search,
			Page:     page,
			PageSize: pageSize,
		}
		switch {
		case showAll && showCompleted:
			return fmt.Errorf("--all and --completed are mutually exclusive")
		case showAll:
			query.Scope = queries.ScopeAll
		case showCompleted:
			query.Scope = queries.ScopeCompleted
		}

		result, err := app.ListTasksHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		out := cmd.OutOrStdout()
		if result.Total == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}

		fmt.Fprintf(out, "Tasks (%d):\n", result.Total)
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, t := range result.Tasks {
			id := shortID(t.ID)
			if cli.Verbose() {
				id = t.ID.String()
			}
			if t.Completed {
				fmt.Fprintf(out, "%s     %s  %s\n", getStatusIcon(t.Status()), id, t.Title)
				continue
			}
			fmt.Fprintf(out, "%s %3d %s  %s\n", getStatusIcon(t.Status()), t.Priority, id, t.Title)
		}
		fmt.Fprintln(out, strings.Repeat("-", 60))
		fmt.Fprintf(out, "Page %d of %d", result.Page, max(result.TotalPages, 1))
		if result.HasNext() {
			fmt.Fprintf(out, " (next: --page %d)", result.Page+1)
		}
		fmt.Fprintln(out)

		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&showAll, "all", "a", false, "show pending and completed tasks")
	listCmd.Flags().BoolVar(&showCompleted, "completed", false, "show only completed tasks")
	listCmd.Flags().StringVarP(&search, "search", "s", "", "only titles containing this text")
	listCmd.Flags().IntVar(&page, "page", 1, "page number")
	listCmd.Flags().IntVarP(&pageSize, "page-size", "n", 0, "tasks per page (default from DEFAULT_PAGE_SIZE)")
}
