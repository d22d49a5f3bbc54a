package task

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/tasklist/adapter/cli"
	internalApp "github.com/felixgeelhaar/tasklist/internal/app"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/queries"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/felixgeelhaar/tasklist/pkg/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testUserID is a fixed user ID for tests
var testUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// setupLocalModeTestApp wires the CLI against a SQLite database in a temp dir.
func setupLocalModeTestApp(t *testing.T) *cli.App {
	t.Helper()

	cfg := &config.Config{
		AppEnv:          "test",
		LocalMode:       true,
		DatabaseDriver:  config.DriverSQLite,
		SQLitePath:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel:        "error",
		UserID:          testUserID.String(),
		LockBackend:     config.LockLocal,
		DefaultPageSize: 5,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	container, err := internalApp.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	cliApp := cli.NewApp(
		container.CreateTaskHandler,
		container.ChangePriorityHandler,
		container.UpdateTaskHandler,
		container.CompleteTaskHandler,
		container.DeleteTaskHandler,
		container.ListTasksHandler,
		container.GetTaskHandler,
		container.CheckRankingHandler,
	)
	cliApp.SetCurrentUserID(testUserID)

	cli.SetApp(cliApp)
	t.Cleanup(func() { cli.SetApp(nil) })
	resetFlags(t)
	return cliApp
}

func resetFlags(t *testing.T) {
	t.Helper()
	addPriority, addDescription = 0, ""
	showAll, showCompleted, search, page, pageSize = false, false, "", 1, 0
	updateTitle, updateDescription, updatePriority = "", "", 0
	for _, name := range []string{"title", "description", "priority"} {
		updateCmd.Flags().Lookup(name).Changed = false
	}
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func addTask(t *testing.T, title string, priority int) {
	t.Helper()
	addPriority = priority
	defer func() { addPriority = 0 }()
	_, err := run(t, addCmd, title)
	require.NoError(t, err)
}

// pending returns the user's pending task titles in priority order.
func pending(t *testing.T, app *cli.App) []string {
	t.Helper()
	result, err := app.ListTasksHandler.Handle(context.Background(), queries.ListTasksQuery{
		UserID:   app.CurrentUserID,
		PageSize: 50,
	})
	require.NoError(t, err)
	titles := make([]string, len(result.Tasks))
	for i, dto := range result.Tasks {
		assert.Equal(t, i+1, dto.Priority)
		titles[i] = dto.Title
	}
	return titles
}

func idOf(t *testing.T, app *cli.App, title string) uuid.UUID {
	t.Helper()
	result, err := app.ListTasksHandler.Handle(context.Background(), queries.ListTasksQuery{
		UserID:   app.CurrentUserID,
		Scope:    queries.ScopeAll,
		Search:   title,
		PageSize: 50,
	})
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	return result.Tasks[0].ID
}

func TestAddCmd_InsertsAtRequestedPriority(t *testing.T) {
	app := setupLocalModeTestApp(t)

	addTask(t, "write the agenda", 0)
	addTask(t, "book the venue", 0)
	addTask(t, "send the invites", 0)

	addPriority = 2
	out, err := run(t, addCmd, "order", "the", "catering")
	require.NoError(t, err)
	assert.Contains(t, out, "priority: 2")
	assert.Contains(t, out, "shifted 2 other task(s)")

	assert.Equal(t, []string{
		"WRITE THE AGENDA",
		"ORDER THE CATERING",
		"BOOK THE VENUE",
		"SEND THE INVITES",
	}, pending(t, app))
}

func TestAddCmd_BeyondEndAppends(t *testing.T) {
	app := setupLocalModeTestApp(t)

	addTask(t, "write the agenda", 0)
	addTask(t, "book the venue", 9)

	assert.Equal(t, []string{"WRITE THE AGENDA", "BOOK THE VENUE"}, pending(t, app))
}

func TestAddCmd_RejectsShortTitle(t *testing.T) {
	setupLocalModeTestApp(t)

	_, err := run(t, addCmd, "too short")
	require.Error(t, err)
	assert.ErrorIs(t, err, task.ErrTitleTooShort)
}

func TestMoveCmd_ShiftsOnlyTheRange(t *testing.T) {
	app := setupLocalModeTestApp(t)
	for _, title := range []string{"task alpha one", "task bravo two", "task charlie three", "task delta four"} {
		addTask(t, title, 0)
	}
	charlie := idOf(t, app, "charlie")

	out, err := run(t, moveCmd, charlie.String(), "1")
	require.NoError(t, err)
	assert.Contains(t, out, "moved: 3 -> 1")
	assert.Contains(t, out, "shifted 2 other task(s)")
	assert.NotContains(t, out, shortID(idOf(t, app, "delta")))

	assert.Equal(t, []string{
		"TASK CHARLIE THREE",
		"TASK ALPHA ONE",
		"TASK BRAVO TWO",
		"TASK DELTA FOUR",
	}, pending(t, app))
}

func TestMoveCmd_AcceptsIDPrefix(t *testing.T) {
	app := setupLocalModeTestApp(t)
	addTask(t, "task alpha one", 0)
	addTask(t, "task bravo two", 0)
	alpha := idOf(t, app, "alpha")

	_, err := run(t, moveCmd, shortID(alpha), "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"TASK BRAVO TWO", "TASK ALPHA ONE"}, pending(t, app))
}

func TestMoveCmd_SamePriority(t *testing.T) {
	app := setupLocalModeTestApp(t)
	addTask(t, "task alpha one", 0)

	out, err := run(t, moveCmd, idOf(t, app, "alpha").String(), "1")
	require.NoError(t, err)
	assert.Contains(t, out, "already has priority 1")
}

func TestMoveCmd_Errors(t *testing.T) {
	app := setupLocalModeTestApp(t)
	addTask(t, "task alpha one", 0)
	alpha := idOf(t, app, "alpha").String()

	t.Run("non numeric priority", func(t *testing.T) {
		_, err := run(t, moveCmd, alpha, "first")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid priority")
	})

	t.Run("zero priority", func(t *testing.T) {
		_, err := run(t, moveCmd, alpha, "0")
		assert.ErrorIs(t, err, task.ErrInvalidPriority)
		assert.Equal(t, task.KindInvalidArgument, task.KindOf(err))
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := run(t, moveCmd, uuid.NewString(), "1")
		assert.Equal(t, task.KindNotFound, task.KindOf(err))
	})

	t.Run("prefix too short", func(t *testing.T) {
		_, err := run(t, moveCmd, "ab", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid task ID")
	})
}

func TestUpdateCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	addTask(t, "task alpha one", 0)
	addTask(t, "task bravo two", 0)
	bravo := idOf(t, app, "bravo")

	_, err := run(t, updateCmd, bravo.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")

	require.NoError(t, updateCmd.Flags().Set("title", "task bravo renamed"))
	require.NoError(t, updateCmd.Flags().Set("priority", "1"))
	out, err := run(t, updateCmd, bravo.String())
	require.NoError(t, err)
	assert.Contains(t, out, "priority: 1")

	assert.Equal(t, []string{"TASK BRAVO RENAMED", "TASK ALPHA ONE"}, pending(t, app))
}

func TestDoneCmd_ClosesTheGap(t *testing.T) {
	app := setupLocalModeTestApp(t)
	addTask(t, "task alpha one", 0)
	addTask(t, "task bravo two", 0)
	addTask(t, "task charlie three", 0)

	out, err := run(t, doneCmd, idOf(t, app, "alpha").String())
	require.NoError(t, err)
	assert.Contains(t, out, "moved up 2 other task(s)")
	assert.Equal(t, []string{"TASK BRAVO TWO", "TASK CHARLIE THREE"}, pending(t, app))

	showCompleted = true
	out, err = run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "TASK ALPHA ONE")
}

func TestDeleteCmd_ClosesTheGap(t *testing.T) {
	app := setupLocalModeTestApp(t)
	addTask(t, "task alpha one", 0)
	addTask(t, "task bravo two", 0)
	addTask(t, "task charlie three", 0)
	bravo := idOf(t, app, "bravo")

	_, err := run(t, deleteCmd, bravo.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"TASK ALPHA ONE", "TASK CHARLIE THREE"}, pending(t, app))

	_, err = run(t, showCmd, bravo.String())
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestListCmd_Pages(t *testing.T) {
	setupLocalModeTestApp(t)
	for _, title := range []string{"task alpha one", "task bravo two", "task charlie three"} {
		addTask(t, title, 0)
	}

	pageSize = 2
	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Tasks (3):")
	assert.Contains(t, out, "TASK ALPHA ONE")
	assert.NotContains(t, out, "TASK CHARLIE THREE")
	assert.Contains(t, out, "Page 1 of 2 (next: --page 2)")

	page = 2
	out, err = run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "TASK CHARLIE THREE")
	assert.Contains(t, out, "Page 2 of 2")
}

func TestListCmd_SearchAndEmpty(t *testing.T) {
	setupLocalModeTestApp(t)

	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found.")

	addTask(t, "book the venue", 0)
	addTask(t, "send the invites", 0)

	search = "venue"
	out, err = run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Tasks (1):")
	assert.Contains(t, out, "BOOK THE VENUE")

	showAll, showCompleted = true, true
	_, err = run(t, listCmd)
	assert.Error(t, err)
}

func TestShowCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	addDescription = "thirty people, vegetarian options"
	addTask(t, "order the catering", 0)

	out, err := run(t, showCmd, idOf(t, app, "catering").String())
	require.NoError(t, err)
	assert.Contains(t, out, "ORDER THE CATERING")
	assert.Contains(t, out, "Status:      pending")
	assert.Contains(t, out, "Priority:    1")
	assert.Contains(t, out, "thirty people")
}

func TestCheckCmd(t *testing.T) {
	setupLocalModeTestApp(t)
	addTask(t, "task alpha one", 0)
	addTask(t, "task bravo two", 2)

	out, err := run(t, checkCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 2 pending task(s) ranked 1..2")
}

func TestCommands_WithoutApp(t *testing.T) {
	cli.SetApp(nil)
	for _, cmd := range []*cobra.Command{addCmd, listCmd, showCmd, moveCmd, updateCmd, doneCmd, deleteCmd, checkCmd} {
		err := cmd.RunE(cmd, []string{"ignored", "1"})
		assert.ErrorIs(t, err, cli.ErrNotInitialized, cmd.Name())
	}
}
