package services

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// Plan is the outcome of a ranking decision.
type Plan struct {
	// Batch holds the updates to existing tasks, in application order.
	Batch task.Batch
	// Assigned is the priority the inserted or moved task ends up at.
	Assigned int
}

// PriorityRanker keeps a user's active priorities dense and unique. It is a
// pure function of the snapshot it is given and holds no state.
type PriorityRanker struct{}

// NewPriorityRanker creates a ranker.
func NewPriorityRanker() *PriorityRanker {
	return &PriorityRanker{}
}

// AssignOnInsert decides where a new task goes. Tasks at or above requested
// shift up by one, highest first, when requested is already taken. Requests
// past the end of the list are clamped to count+1.
func (r *PriorityRanker) AssignOnInsert(active []task.RankedTask, requested int) (Plan, error) {
	if requested <= 0 {
		return Plan{}, fmt.Errorf("%w: got %d", task.ErrInvalidPriority, requested)
	}
	sorted, err := sortByPriority(active)
	if err != nil {
		return Plan{}, err
	}

	requested = min(requested, len(sorted)+1)
	if !held(sorted, requested) {
		return Plan{Assigned: requested}, nil
	}

	var batch task.Batch
	for i := len(sorted) - 1; i >= 0 && sorted[i].Priority >= requested; i-- {
		batch = append(batch, shift(sorted[i], +1))
	}
	return Plan{Batch: batch, Assigned: requested}, nil
}

// Reassign moves taskID to target and closes the gap it leaves behind. Only
// tasks between the old and new slot move, by exactly one. The moving task's
// own update comes last. Targets past the end of the list are clamped to
// count.
func (r *PriorityRanker) Reassign(active []task.RankedTask, taskID uuid.UUID, target int) (Plan, error) {
	if target <= 0 {
		return Plan{}, fmt.Errorf("%w: got %d", task.ErrInvalidPriority, target)
	}
	sorted, err := sortByPriority(active)
	if err != nil {
		return Plan{}, err
	}

	idx := slices.IndexFunc(sorted, func(t task.RankedTask) bool { return t.TaskID == taskID })
	if idx < 0 {
		return Plan{}, fmt.Errorf("%w: %s", task.ErrTaskNotRanked, taskID)
	}
	existing := sorted[idx].Priority

	target = min(target, len(sorted))
	if target == existing {
		return Plan{Assigned: existing}, nil
	}

	move := task.PriorityUpdate{TaskID: taskID, OldPriority: existing, NewPriority: target}
	if !held(sorted, target) {
		return Plan{Batch: task.Batch{move}, Assigned: target}, nil
	}

	var batch task.Batch
	if existing > target {
		// Moving earlier: [target, existing-1] shift up, highest first.
		for i := idx - 1; i >= 0 && sorted[i].Priority >= target; i-- {
			batch = append(batch, shift(sorted[i], +1))
		}
	} else {
		// Moving later: [existing+1, target] shift down, lowest first.
		for i := idx + 1; i < len(sorted) && sorted[i].Priority <= target; i++ {
			batch = append(batch, shift(sorted[i], -1))
		}
	}
	batch = append(batch, move)
	return Plan{Batch: batch, Assigned: target}, nil
}

// CloseGap shifts every task above a vacated priority down by one, lowest
// first. active must no longer contain the task that left.
func (r *PriorityRanker) CloseGap(active []task.RankedTask, vacated int) (task.Batch, error) {
	if vacated <= 0 {
		return nil, fmt.Errorf("%w: got %d", task.ErrInvalidPriority, vacated)
	}
	sorted, err := sortByPriority(active)
	if err != nil {
		return nil, err
	}
	if held(sorted, vacated) {
		return nil, fmt.Errorf("%w: vacated priority %d is still held", task.ErrDuplicatePriority, vacated)
	}

	start, _ := slices.BinarySearchFunc(sorted, vacated, comparePriority)
	var batch task.Batch
	for _, t := range sorted[start:] {
		batch = append(batch, shift(t, -1))
	}
	return batch, nil
}

// Report describes how far a snapshot is from a dense 1..N ranking.
type Report struct {
	Count       int
	Duplicates  []int
	Gaps        []int
	NonPositive []int
}

// Dense reports whether the snapshot is exactly 1..Count.
func (r Report) Dense() bool {
	return len(r.Duplicates) == 0 && len(r.Gaps) == 0 && len(r.NonPositive) == 0
}

// Check inspects a snapshot without failing on corruption.
func Check(active []task.RankedTask) Report {
	report := Report{Count: len(active)}
	seen := make(map[int]int, len(active))
	for _, t := range byPriority(active) {
		if t.Priority <= 0 {
			report.NonPositive = append(report.NonPositive, t.Priority)
			continue
		}
		seen[t.Priority]++
		if seen[t.Priority] == 2 {
			report.Duplicates = append(report.Duplicates, t.Priority)
		}
	}
	for p := 1; p <= len(active); p++ {
		if seen[p] == 0 {
			report.Gaps = append(report.Gaps, p)
		}
	}
	return report
}

// Dense reports whether the snapshot is exactly 1..len(active).
func Dense(active []task.RankedTask) bool {
	return Check(active).Dense()
}

func byPriority(active []task.RankedTask) []task.RankedTask {
	out := slices.Clone(active)
	slices.SortFunc(out, func(a, b task.RankedTask) int { return cmp.Compare(a.Priority, b.Priority) })
	return out
}

// sortByPriority orders the snapshot and rejects duplicate priorities.
func sortByPriority(active []task.RankedTask) ([]task.RankedTask, error) {
	out := byPriority(active)
	for i := 1; i < len(out); i++ {
		if out[i].Priority == out[i-1].Priority {
			return nil, fmt.Errorf("%w: %d held by %s and %s",
				task.ErrDuplicatePriority, out[i].Priority, out[i-1].TaskID, out[i].TaskID)
		}
	}
	return out, nil
}

func comparePriority(t task.RankedTask, priority int) int {
	return cmp.Compare(t.Priority, priority)
}

func held(sorted []task.RankedTask, priority int) bool {
	_, found := slices.BinarySearchFunc(sorted, priority, comparePriority)
	return found
}

func shift(t task.RankedTask, delta int) task.PriorityUpdate {
	return task.PriorityUpdate{TaskID: t.TaskID, OldPriority: t.Priority, NewPriority: t.Priority + delta}
}
