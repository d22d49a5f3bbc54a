package task

import (
	"github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateType = "Task"

	RoutingKeyCreated         = "core.task.created"
	RoutingKeyUpdated         = "core.task.updated"
	RoutingKeyPriorityChanged = "core.task.priority_changed"
	RoutingKeyCompleted       = "core.task.completed"
	RoutingKeyDeleted         = "core.task.deleted"
)

// TaskCreated is emitted when a new task is created.
type TaskCreated struct {
	domain.BaseEvent
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

// NewTaskCreated creates a TaskCreated event.
func NewTaskCreated(taskID uuid.UUID, title string, priority int) *TaskCreated {
	return &TaskCreated{
		BaseEvent: domain.NewBaseEvent(taskID, AggregateType, RoutingKeyCreated),
		Title:     title,
		Priority:  priority,
	}
}

// TaskUpdated is emitted when title or description change.
type TaskUpdated struct {
	domain.BaseEvent
	Fields []string `json:"fields"`
}

// NewTaskUpdated creates a TaskUpdated event.
func NewTaskUpdated(taskID uuid.UUID, fields []string) *TaskUpdated {
	return &TaskUpdated{
		BaseEvent: domain.NewBaseEvent(taskID, AggregateType, RoutingKeyUpdated),
		Fields:    fields,
	}
}

// TaskPriorityChanged carries the move and every task it displaced.
type TaskPriorityChanged struct {
	domain.BaseEvent
	From    int   `json:"from"`
	To      int   `json:"to"`
	Shifted Batch `json:"shifted"`
}

// NewTaskPriorityChanged creates a TaskPriorityChanged event.
func NewTaskPriorityChanged(taskID uuid.UUID, from, to int, shifted Batch) *TaskPriorityChanged {
	return &TaskPriorityChanged{
		BaseEvent: domain.NewBaseEvent(taskID, AggregateType, RoutingKeyPriorityChanged),
		From:      from,
		To:        to,
		Shifted:   shifted,
	}
}

// TaskCompleted is emitted when a task is completed.
type TaskCompleted struct {
	domain.BaseEvent
	Priority int `json:"priority"`
}

// NewTaskCompleted creates a TaskCompleted event.
func NewTaskCompleted(taskID uuid.UUID, priority int) *TaskCompleted {
	return &TaskCompleted{
		BaseEvent: domain.NewBaseEvent(taskID, AggregateType, RoutingKeyCompleted),
		Priority:  priority,
	}
}

// TaskDeleted is emitted when a task is soft-deleted.
type TaskDeleted struct {
	domain.BaseEvent
	Priority  int  `json:"priority"`
	WasActive bool `json:"was_active"`
}

// NewTaskDeleted creates a TaskDeleted event.
func NewTaskDeleted(taskID uuid.UUID, priority int, wasActive bool) *TaskDeleted {
	return &TaskDeleted{
		BaseEvent: domain.NewBaseEvent(taskID, AggregateType, RoutingKeyDeleted),
		Priority:  priority,
		WasActive: wasActive,
	}
}
