package commands

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// CompleteTaskCommand contains the data needed to complete a task.
type CompleteTaskCommand struct {
	TaskID uuid.UUID
	UserID uuid.UUID
}

// RemovalResult lists the tasks that moved up to fill the freed slot.
type RemovalResult struct {
	TaskID  uuid.UUID
	Vacated int
	Shifted task.Batch
}

// CompleteTaskHandler handles the CompleteTaskCommand.
type CompleteTaskHandler struct {
	runner
}

// NewCompleteTaskHandler creates a new CompleteTaskHandler.
func NewCompleteTaskHandler(deps Deps) *CompleteTaskHandler {
	return &CompleteTaskHandler{runner: newRunner(deps)}
}

// Handle executes the CompleteTaskCommand.
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) (*RemovalResult, error) {
	var result *RemovalResult
	err := h.run(ctx, "complete_task", cmd.UserID, func(txCtx context.Context) ([]sharedDomain.AggregateRoot, error) {
		active, err := h.Tasks.ActiveTasksOf(txCtx, cmd.UserID)
		if err != nil {
			return nil, err
		}
		t, err := h.loadOwned(txCtx, cmd.UserID, cmd.TaskID)
		if err != nil {
			return nil, err
		}
		if err := t.Complete(); err != nil {
			return nil, err
		}

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

// leaveRanking saves a task that just left the active set and closes the gap
// it left. active is the snapshot taken before the task changed.
func (r runner) leaveRanking(ctx context.Context, t *task.Task, active []task.RankedTask) (*RemovalResult, error) {
	if err := r.Tasks.Save(ctx, t); err != nil {
		return nil, err
	}

	result := &RemovalResult{TaskID: t.ID()}
	var vacated int
	for _, a := range active {
		if a.TaskID == t.ID() {
			vacated = a.Priority
		}
	}
	if vacated == 0 {
		return result, nil
	}

	batch, err := r.Ranker.CloseGap(without(active, t.ID()), vacated)
	if err != nil {
		return nil, err
	}
	if err := r.applyBatch(ctx, t.UserID(), batch); err != nil {
		return nil, err
	}
	result.Vacated = vacated
	result.Shifted = batch
	return result, nil
}
