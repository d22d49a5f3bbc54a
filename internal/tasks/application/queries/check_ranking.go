package queries

import (
	"context"

	"github.com/felixgeelhaar/tasklist/internal/tasks/application/services"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// CheckRankingQuery asks whether a user's active tasks are densely ranked.
type CheckRankingQuery struct {
	UserID uuid.UUID
}

// CheckRankingHandler reports on the stored ranking without changing it.
type CheckRankingHandler struct {
	taskRepo task.Repository
}

// NewCheckRankingHandler creates a new CheckRankingHandler.
func NewCheckRankingHandler(taskRepo task.Repository) *CheckRankingHandler {
	return &CheckRankingHandler{taskRepo: taskRepo}
}

// Handle executes the CheckRankingQuery.
func (h *CheckRankingHandler) Handle(ctx context.Context, query CheckRankingQuery) (services.Report, error) {
	active, err := h.taskRepo.ActiveTasksOf(ctx, query.UserID)
	if err != nil {
		return services.Report{}, err
	}
	return services.Check(active), nil
}
