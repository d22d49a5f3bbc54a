package queries

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func numbered(userID uuid.UUID, n int) []*task.Task {
	tasks := make([]*task.Task, n)
	for i := range tasks {
		tasks[i] = createTestTask(userID, fmt.Sprintf("numbered task %02d", i+1), i+1)
	}
	return tasks
}

func TestListTasksHandler_Handle(t *testing.T) {
	userID := uuid.New()

	t.Run("lists pending tasks by default", func(t *testing.T) {
		repo := new(mockTaskRepo)
		repo.On("FindActive", mock.Anything, userID).Return(numbered(userID, 2), nil)

		result, err := NewListTasksHandler(repo, 0).Handle(context.Background(), ListTasksQuery{UserID: userID})

		require.NoError(t, err)
		require.Len(t, result.Tasks, 2)
		assert.Equal(t, "NUMBERED TASK 01", result.Tasks[0].Title)
		assert.Equal(t, 1, result.Tasks[0].Priority)
		assert.Equal(t, "pending", result.Tasks[0].Status())
		assert.Equal(t, DefaultPageSize, result.PageSize)
		repo.AssertExpectations(t)
	})

	t.Run("completed scope", func(t *testing.T) {
		repo := new(mockTaskRepo)
		done := createTestTask(userID, "finished already", 1)
		require.NoError(t, done.Complete())
		repo.On("FindCompleted", mock.Anything, userID).Return([]*task.Task{done}, nil)

		result, err := NewListTasksHandler(repo, 0).Handle(context.Background(), ListTasksQuery{
			UserID: userID,
			Scope:  ScopeCompleted,
		})

		require.NoError(t, err)
		require.Len(t, result.Tasks, 1)
		assert.Equal(t, "completed", result.Tasks[0].Status())
		assert.NotNil(t, result.Tasks[0].CompletedAt)
	})

	t.Run("all scope", func(t *testing.T) {
		repo := new(mockTaskRepo)
		repo.On("FindByUserID", mock.Anything, userID).Return(numbered(userID, 3), nil)

		result, err := NewListTasksHandler(repo, 0).Handle(context.Background(), ListTasksQuery{
			UserID: userID,
			Scope:  ScopeAll,
		})

		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
	})

	t.Run("searches titles case-insensitively", func(t *testing.T) {
		repo := new(mockTaskRepo)
		tasks := []*task.Task{
			createTestTask(userID, "buy groceries today", 1),
			createTestTask(userID, "call the plumber", 2),
			createTestTask(userID, "groceries for party", 3),
		}
		repo.On("FindActive", mock.Anything, userID).Return(tasks, nil)

		result, err := NewListTasksHandler(repo, 0).Handle(context.Background(), ListTasksQuery{
			UserID: userID,
			Search: "  Groceries ",
		})

		require.NoError(t, err)
		require.Len(t, result.Tasks, 2)
		assert.Equal(t, 1, result.Tasks[0].Priority)
		assert.Equal(t, 3, result.Tasks[1].Priority)
	})

	t.Run("paginates", func(t *testing.T) {
		repo := new(mockTaskRepo)
		repo.On("FindActive", mock.Anything, userID).Return(numbered(userID, 12), nil)
		handler := NewListTasksHandler(repo, 0)

		first, err := handler.Handle(context.Background(), ListTasksQuery{UserID: userID})
		require.NoError(t, err)
		assert.Len(t, first.Tasks, 5)
		assert.Equal(t, 3, first.TotalPages)
		assert.True(t, first.HasNext())

		last, err := handler.Handle(context.Background(), ListTasksQuery{UserID: userID, Page: 3})
		require.NoError(t, err)
		require.Len(t, last.Tasks, 2)
		assert.Equal(t, 11, last.Tasks[0].Priority)
		assert.False(t, last.HasNext())

		beyond, err := handler.Handle(context.Background(), ListTasksQuery{UserID: userID, Page: 9})
		require.NoError(t, err)
		assert.Empty(t, beyond.Tasks)
	})

	t.Run("configured and requested page sizes", func(t *testing.T) {
		repo := new(mockTaskRepo)
		repo.On("FindActive", mock.Anything, userID).Return(numbered(userID, 12), nil)

		result, err := NewListTasksHandler(repo, 10).Handle(context.Background(), ListTasksQuery{UserID: userID})
		require.NoError(t, err)
		assert.Len(t, result.Tasks, 10)

		result, err = NewListTasksHandler(repo, 10).Handle(context.Background(), ListTasksQuery{UserID: userID, PageSize: 4})
		require.NoError(t, err)
		assert.Len(t, result.Tasks, 4)
		assert.Equal(t, 3, result.TotalPages)
	})

	t.Run("empty list", func(t *testing.T) {
		repo := new(mockTaskRepo)
		repo.On("FindActive", mock.Anything, userID).Return([]*task.Task{}, nil)

		result, err := NewListTasksHandler(repo, 0).Handle(context.Background(), ListTasksQuery{UserID: userID})

		require.NoError(t, err)
		assert.Empty(t, result.Tasks)
		assert.Zero(t, result.TotalPages)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		repo := new(mockTaskRepo)
		handler := NewListTasksHandler(repo, 0)

		_, err := handler.Handle(context.Background(), ListTasksQuery{UserID: userID, Scope: "archived"})
		assert.ErrorIs(t, err, task.ErrInvalidQuery)

		_, err = handler.Handle(context.Background(), ListTasksQuery{UserID: userID, Page: -1})
		assert.ErrorIs(t, err, task.ErrInvalidQuery)
	})

	t.Run("returns repository error", func(t *testing.T) {
		repo := new(mockTaskRepo)
		repoErr := errors.New("database error")
		repo.On("FindActive", mock.Anything, userID).Return([]*task.Task(nil), repoErr)

		_, err := NewListTasksHandler(repo, 0).Handle(context.Background(), ListTasksQuery{UserID: userID})

		assert.ErrorIs(t, err, repoErr)
	})
}
