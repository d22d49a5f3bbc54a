package commands

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/google/uuid"
)

// DeleteTaskCommand soft-deletes a task.
type DeleteTaskCommand struct {
	TaskID uuid.UUID
	UserID uuid.UUID
}

// DeleteTaskHandler handles the DeleteTaskCommand.
type DeleteTaskHandler struct {
	runner
}

// NewDeleteTaskHandler creates a new DeleteTaskHandler.
func NewDeleteTaskHandler(deps Deps) *DeleteTaskHandler {
	return &DeleteTaskHandler{runner: newRunner(deps)}
}

// Handle executes the DeleteTaskCommand. Deleting a deleted task succeeds
// without changes.
func (h *DeleteTaskHandler) Handle(ctx context.Context, cmd DeleteTaskCommand) (*RemovalResult, error) {
	var result *RemovalResult
	err := h.run(ctx, "delete_task", cmd.UserID, func(txCtx context.Context) ([]sharedDomain.AggregateRoot, error) {
		active, err := h.Tasks.ActiveTasksOf(txCtx, cmd.UserID)
		if err != nil {
			return nil, err
		}
		t, err := h.loadOwned(txCtx, cmd.UserID, cmd.TaskID)
		if err != nil {
			return nil, err
		}
		if t.IsDeleted() {
			result = &RemovalResult{TaskID: t.ID()}
			return nil, nil
		}
		t.Delete()

		result, err = h.leaveRanking(txCtx, t, active)
		if err != nil {
			return nil, err
		}
		return []sharedDomain.AggregateRoot{t}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
