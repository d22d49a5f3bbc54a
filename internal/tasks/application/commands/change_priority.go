package commands

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// ChangePriorityCommand moves a task to another slot in its owner's list.
type ChangePriorityCommand struct {
	UserID   uuid.UUID
	TaskID   uuid.UUID
	Priority int
}

// ChangePriorityResult carries the applied batch, the moving task last.
type ChangePriorityResult struct {
	TaskID   uuid.UUID
	From     int
	Priority int
	Applied  task.Batch
}

// ChangePriorityHandler handles the ChangePriorityCommand.
type ChangePriorityHandler struct {
	runner
}

// NewChangePriorityHandler creates a new ChangePriorityHandler.
func NewChangePriorityHandler(deps Deps) *ChangePriorityHandler {
	return &ChangePriorityHandler{runner: newRunner(deps)}
}

// Handle executes the ChangePriorityCommand.
func (h *ChangePriorityHandler) Handle(ctx context.Context, cmd ChangePriorityCommand) (*ChangePriorityResult, error) {
	if cmd.Priority <= 0 {
		return nil, task.ErrInvalidPriority
	}

	var result *ChangePriorityResult
	err := h.run(ctx, "change_priority", cmd.UserID, func(txCtx context.Context) ([]sharedDomain.AggregateRoot, error) {
		t, err := h.loadOwned(txCtx, cmd.UserID, cmd.TaskID)
		if err != nil {
			return nil, err
		}
		applied, err := reassign(txCtx, h.runner, t, cmd.Priority)
		if err != nil {
			return nil, err
		}
		result = &ChangePriorityResult{
			TaskID:   t.ID(),
			From:     applied.from,
			Priority: t.Priority(),
			Applied:  applied.batch,
		}
		return []sharedDomain.AggregateRoot{t}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type reassignment struct {
	from  int
	batch task.Batch
}

// reassign runs the ranker for t against a fresh snapshot, writes the batch
// and records the move on the aggregate. t must be active.
func reassign(ctx context.Context, r runner, t *task.Task, target int) (reassignment, error) {
	if !t.IsActive() {
		if t.IsDeleted() {
			return reassignment{}, task.ErrTaskDeleted
		}
		return reassignment{}, task.ErrTaskCompleted
	}

	active, err := r.Tasks.ActiveTasksOf(ctx, t.UserID())
	if err != nil {
		return reassignment{}, err
	}
	plan, err := r.Ranker.Reassign(active, t.ID(), target)
	if err != nil {
		return reassignment{}, err
	}

	from := t.Priority()
	for _, a := range active {
		if a.TaskID == t.ID() {
			from = a.Priority
		}
	}
	if len(plan.Batch) == 0 {
		return reassignment{from: from}, nil
	}

	if err := r.applyBatch(ctx, t.UserID(), plan.Batch); err != nil {
		return reassignment{}, err
	}
	shifted := plan.Batch[:len(plan.Batch)-1]
	if err := t.MoveTo(plan.Assigned, shifted); err != nil {
		return reassignment{}, err
	}
	return reassignment{from: from, batch: plan.Batch}, nil
}
