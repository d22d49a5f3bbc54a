package queries

import (
	"time"

	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// TaskDTO is a data transfer object for tasks.
type TaskDTO struct {
	ID          uuid.UUID
	Title       string
	Description string
	Priority    int
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Status renders the task state the way the CLI lists it.
func (d TaskDTO) Status() string {
	if d.Completed {
		return "completed"
	}
	return "pending"
}

func toTaskDTO(t *task.Task) TaskDTO {
	return TaskDTO{
		ID:          t.ID(),
		Title:       t.Title(),
		Description: t.Description(),
		Priority:    t.Priority(),
		Completed:   t.IsCompleted(),
		CompletedAt: t.CompletedAt(),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func toTaskDTOs(tasks []*task.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		dtos[i] = toTaskDTO(t)
	}
	return dtos
}
