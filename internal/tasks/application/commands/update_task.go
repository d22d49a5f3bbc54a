package commands

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// UpdateTaskCommand edits a task. Nil fields stay unchanged.
type UpdateTaskCommand struct {
	UserID      uuid.UUID
	TaskID      uuid.UUID
	Title       *string
	Description *string
	Priority    *int
}

// UpdateTaskResult reports the priority batch, if the update moved the task.
type UpdateTaskResult struct {
	TaskID   uuid.UUID
	Priority int
	Applied  task.Batch
}

// UpdateTaskHandler handles the UpdateTaskCommand.
type UpdateTaskHandler struct {
	runner
}

// NewUpdateTaskHandler creates a new UpdateTaskHandler.
func NewUpdateTaskHandler(deps Deps) *UpdateTaskHandler {
	return &UpdateTaskHandler{runner: newRunner(deps)}
}

// Handle executes the UpdateTaskCommand.
func (h *UpdateTaskHandler) Handle(ctx context.Context, cmd UpdateTaskCommand) (*UpdateTaskResult, error) {
	if cmd.Title == nil && cmd.Description == nil && cmd.Priority == nil {
		return nil, task.ErrNothingToUpdate
	}
	if cmd.Priority != nil && *cmd.Priority <= 0 {
		return nil, task.ErrInvalidPriority
	}

	var result *UpdateTaskResult
	err := h.run(ctx, "update_task", cmd.UserID, func(txCtx context.Context) ([]sharedDomain.AggregateRoot, error) {
		t, err := h.loadOwned(txCtx, cmd.UserID, cmd.TaskID)
		if err != nil {
			return nil, err
		}

		if cmd.Title != nil || cmd.Description != nil {
			if err := t.Edit(cmd.Title, cmd.Description); err != nil {
				return nil, err
			}
			if len(t.DomainEvents()) > 0 {
				if err := h.Tasks.Save(txCtx, t); err != nil {
					return nil, err
				}
			}
		}

		var applied task.Batch
		if cmd.Priority != nil {
			moved, err := reassign(txCtx, h.runner, t, *cmd.Priority)
			if err != nil {
				return nil, err
			}
			applied = moved.batch
		}

		result = &UpdateTaskResult{TaskID: t.ID(), Priority: t.Priority(), Applied: applied}
		return []sharedDomain.AggregateRoot{t}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
