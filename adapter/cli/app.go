package cli

import (
	"errors"

	"github.com/felixgeelhaar/tasklist/internal/tasks/application/commands"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/queries"
	"github.com/google/uuid"
)

// ErrNotInitialized is returned by commands run without a wired App.
var ErrNotInitialized = errors.New("application not initialized - database connection required")

// App holds the CLI application dependencies.
type App struct {
	// Task Command Handlers
	CreateTaskHandler     *commands.CreateTaskHandler
	ChangePriorityHandler *commands.ChangePriorityHandler
	UpdateTaskHandler     *commands.UpdateTaskHandler
	CompleteTaskHandler   *commands.CompleteTaskHandler
	DeleteTaskHandler     *commands.DeleteTaskHandler

	// Task Query Handlers
	ListTasksHandler    *queries.ListTasksHandler
	GetTaskHandler      *queries.GetTaskHandler
	CheckRankingHandler *queries.CheckRankingHandler

	// Current user (configured per environment)
	CurrentUserID uuid.UUID
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	createTaskHandler *commands.CreateTaskHandler,
	changePriorityHandler *commands.ChangePriorityHandler,
	updateTaskHandler *commands.UpdateTaskHandler,
	completeTaskHandler *commands.CompleteTaskHandler,
	deleteTaskHandler *commands.DeleteTaskHandler,
	listTasksHandler *queries.ListTasksHandler,
	getTaskHandler *queries.GetTaskHandler,
	checkRankingHandler *queries.CheckRankingHandler,
) *App {
	return &App{
		CreateTaskHandler:     createTaskHandler,
		ChangePriorityHandler: changePriorityHandler,
		UpdateTaskHandler:     updateTaskHandler,
		CompleteTaskHandler:   completeTaskHandler,
		DeleteTaskHandler:     deleteTaskHandler,
		ListTasksHandler:      listTasksHandler,
		GetTaskHandler:        getTaskHandler,
		CheckRankingHandler:   checkRankingHandler,
		CurrentUserID:         uuid.Nil,
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id uuid.UUID) {
	a.CurrentUserID = id
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
