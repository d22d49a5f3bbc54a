package task

import "github.com/google/uuid"

// RankedTask is the ranker's view of one active task.
type RankedTask struct {
	TaskID   uuid.UUID
	Priority int
}

// PriorityUpdate moves one task from OldPriority to NewPriority. Stores use
// OldPriority to detect that the snapshot went stale.
type PriorityUpdate struct {
	TaskID      uuid.UUID `json:"task_id"`
	OldPriority int       `json:"old_priority"`
	NewPriority int       `json:"new_priority"`
}

// Delta is the signed shift of the update.
func (u PriorityUpdate) Delta() int {
	return u.NewPriority - u.OldPriority
}

// Batch is an ordered set of updates that must be applied atomically, and in
// order when the store writes row by row.
type Batch []PriorityUpdate

// TaskIDs lists the tasks touched by the batch in batch order.
func (b Batch) TaskIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b))
	for i, u := range b {
		ids[i] = u.TaskID
	}
	return ids
}

// Apply returns a copy of tasks with the batch applied.
func (b Batch) Apply(tasks []RankedTask) []RankedTask {
	next := make(map[uuid.UUID]int, len(b))
	for _, u := range b {
		next[u.TaskID] = u.NewPriority
	}
	out := make([]RankedTask, len(tasks))
	for i, t := range tasks {
		out[i] = t
		if p, ok := next[t.TaskID]; ok {
			out[i].Priority = p
		}
	}
	return out
}
