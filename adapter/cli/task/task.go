package task

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/queries"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the task command group
var Cmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long:  `Add, rank, complete, and delete your tasks.`,
}

// minPrefixLen is the shortest ID prefix accepted in place of a full ID.
const minPrefixLen = 4

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(moveCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(doneCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(checkCmd)
}

// resolveTaskID accepts a full task ID or a unique prefix of one of the
// current user's task IDs, as printed by `task list`.
func resolveTaskID(ctx context.Context, app *cli.App, raw string) (uuid.UUID, error) {
	if id, err := uuid.Parse(raw); err == nil {
		return id, nil
	}

	prefix := strings.ToLower(strings.TrimSpace(raw))
	if len(prefix) < minPrefixLen || app.ListTasksHandler == nil {
		return uuid.Nil, fmt.Errorf("invalid task ID %q", raw)
	}

	var matches []uuid.UUID
	for page := 1; ; page++ {
		result, err := app.ListTasksHandler.Handle(ctx, queries.ListTasksQuery{
			UserID:   app.CurrentUserID,
			Scope:    queries.ScopeAll,
			Page:     page,
			PageSize: 100,
		})
		if err != nil {
			return uuid.Nil, err
		}
		for _, t := range result.Tasks {
			if strings.HasPrefix(t.ID.String(), prefix) {
				matches = append(matches, t.ID)
			}
		}
		if !result.HasNext() {
			break
		}
	}

	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("%w: no task ID starts with %q", task.ErrTaskNotFound, raw)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, fmt.Errorf("task ID prefix %q is ambiguous (%d matches)", raw, len(matches))
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func printBatch(out io.Writer, verb string, batch task.Batch) {
	if len(batch) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s %d other task(s):\n", verb, len(batch))
	for _, u := range batch {
		fmt.Fprintf(out, "    %s  %d -> %d\n", shortID(u.TaskID), u.OldPriority, u.NewPriority)
	}
}

func getStatusIcon(status string) string {
	switch status {
	case "completed":
		return "[x]"
	default:
		return "[ ]"
	}
}

// others drops the moving task's own update from a reassignment batch.
func others(batch task.Batch, moved uuid.UUID) task.Batch {
	out := make(task.Batch, 0, len(batch))
	for _, u := range batch {
		if u.TaskID != moved {
			out = append(out, u)
		}
	}
	return out
}
