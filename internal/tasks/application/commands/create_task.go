package commands

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// CreateTaskCommand contains the data needed to create a task.
type CreateTaskCommand struct {
	UserID      uuid.UUID
	Title       string
	Description string
	// Priority is the requested slot. Zero means append: Handle turns it
	// into count+1 before ranking, because the ranker rejects any priority
	// <= 0 as an invalid argument. Negative values are rejected here.
	Priority int
}

// CreateTaskResult reports where the task landed and who moved for it.
type CreateTaskResult struct {
	TaskID   uuid.UUID
	Priority int
	Shifted  task.Batch
}

// CreateTaskHandler handles the CreateTaskCommand.
type CreateTaskHandler struct {
	runner
}

// NewCreateTaskHandler creates a new CreateTaskHandler.
func NewCreateTaskHandler(deps Deps) *CreateTaskHandler {
	return &CreateTaskHandler{runner: newRunner(deps)}
}

// Handle executes the CreateTaskCommand.
func (h *CreateTaskHandler) Handle(ctx context.Context, cmd CreateTaskCommand) (*CreateTaskResult, error) {
	if cmd.Priority < 0 {
		return nil, task.ErrInvalidPriority
	}
	if _, err := task.NormalizeTitle(cmd.Title); err != nil {
		return nil, err
	}

	var result *CreateTaskResult
	err := h.run(ctx, "create_task", cmd.UserID, func(txCtx context.Context) ([]sharedDomain.AggregateRoot, error) {
		active, err := h.Tasks.ActiveTasksOf(txCtx, cmd.UserID)
		if err != nil {
			return nil, err
		}

		requested := cmd.Priority
		if requested == 0 {
			requested = len(active) + 1
		}
		plan, err := h.Ranker.AssignOnInsert(active, requested)
		if err != nil {
			return nil, err
		}
		if err := h.applyBatch(txCtx, cmd.UserID, plan.Batch); err != nil {
			return nil, err
		}

		t, err := task.NewTask(cmd.UserID, cmd.Title, cmd.Description, plan.Assigned)
		if err != nil {
			return nil, err
		}
		if err := h.Tasks.Save(txCtx, t); err != nil {
			return nil, err
		}

		result = &CreateTaskResult{TaskID: t.ID(), Priority: plan.Assigned, Shifted: plan.Batch}
		return []sharedDomain.AggregateRoot{t}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
