package task

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for task persistence. Methods join the
// transaction carried by ctx when there is one.
type Repository interface {
	// Save inserts a new task or updates an existing one, guarded by version.
	Save(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// FindByUserID returns all non-deleted tasks of a user.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Task, error)
	// FindActive returns pending tasks ordered by priority.
	FindActive(ctx context.Context, userID uuid.UUID) ([]*Task, error)
	// FindCompleted returns completed, non-deleted tasks, newest first.
	FindCompleted(ctx context.Context, userID uuid.UUID) ([]*Task, error)

	// ActiveTasksOf returns the ranking snapshot ordered by priority. Inside a
	// transaction the rows stay locked until commit where the store supports it.
	ActiveTasksOf(ctx context.Context, userID uuid.UUID) ([]RankedTask, error)
	// ApplyPriorityUpdates writes the batch in order. A row whose priority is
	// no longer OldPriority fails the batch with ErrConcurrencyConflict.
	ApplyPriorityUpdates(ctx context.Context, userID uuid.UUID, batch Batch) error
}
