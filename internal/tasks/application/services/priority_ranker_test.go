package services

import (
	"math/rand"
	"testing"

	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ids hands out stable task IDs keyed by letter so expectations read like
// the task names in the scenarios.
type ids map[string]uuid.UUID

func (m ids) of(name string) uuid.UUID {
	if id, ok := m[name]; ok {
		return id
	}
	id := uuid.New()
	m[name] = id
	return id
}

func (m ids) ranked(names ...string) []task.RankedTask {
	out := make([]task.RankedTask, len(names))
	for i, n := range names {
		out[i] = task.RankedTask{TaskID: m.of(n), Priority: i + 1}
	}
	return out
}

func (m ids) update(name string, from, to int) task.PriorityUpdate {
	return task.PriorityUpdate{TaskID: m.of(name), OldPriority: from, NewPriority: to}
}

func TestAssignOnInsert(t *testing.T) {
	r := NewPriorityRanker()

	t.Run("empty list", func(t *testing.T) {
		plan, err := r.AssignOnInsert(nil, 1)
		require.NoError(t, err)
		assert.Empty(t, plan.Batch)
		assert.Equal(t, 1, plan.Assigned)
	})

	t.Run("insert at end shifts nothing", func(t *testing.T) {
		n := ids{}
		plan, err := r.AssignOnInsert(n.ranked("A", "B", "C"), 4)
		require.NoError(t, err)
		assert.Empty(t, plan.Batch)
		assert.Equal(t, 4, plan.Assigned)
	})

	t.Run("collision shifts only the tail, highest first", func(t *testing.T) {
		n := ids{}
		plan, err := r.AssignOnInsert(n.ranked("A", "B", "C"), 2)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{n.update("C", 3, 4), n.update("B", 2, 3)}, plan.Batch)
		assert.Equal(t, 2, plan.Assigned)
	})

	t.Run("insert at top shifts everything", func(t *testing.T) {
		n := ids{}
		plan, err := r.AssignOnInsert(n.ranked("A", "B"), 1)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{n.update("B", 2, 3), n.update("A", 1, 2)}, plan.Batch)
	})

	t.Run("beyond the end is clamped to count+1", func(t *testing.T) {
		n := ids{}
		plan, err := r.AssignOnInsert(n.ranked("A", "B"), 50)
		require.NoError(t, err)
		assert.Empty(t, plan.Batch)
		assert.Equal(t, 3, plan.Assigned)
	})

	t.Run("unheld slot inside a gapped list is assigned directly", func(t *testing.T) {
		n := ids{}
		active := []task.RankedTask{{TaskID: n.of("A"), Priority: 1}, {TaskID: n.of("C"), Priority: 3}}
		plan, err := r.AssignOnInsert(active, 2)
		require.NoError(t, err)
		assert.Empty(t, plan.Batch)
		assert.Equal(t, 2, plan.Assigned)
	})

	t.Run("input order does not matter", func(t *testing.T) {
		n := ids{}
		active := n.ranked("A", "B", "C")
		active[0], active[2] = active[2], active[0]
		plan, err := r.AssignOnInsert(active, 2)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{n.update("C", 3, 4), n.update("B", 2, 3)}, plan.Batch)
	})
}

func TestAssignOnInsert_Errors(t *testing.T) {
	r := NewPriorityRanker()
	n := ids{}

	_, err := r.AssignOnInsert(n.ranked("A"), 0)
	assert.ErrorIs(t, err, task.ErrInvalidPriority)

	_, err = r.AssignOnInsert(n.ranked("A"), -1)
	assert.Equal(t, task.KindInvalidArgument, task.KindOf(err))

	dup := []task.RankedTask{{TaskID: n.of("A"), Priority: 1}, {TaskID: n.of("B"), Priority: 1}}
	plan, err := r.AssignOnInsert(dup, 1)
	assert.ErrorIs(t, err, task.ErrDuplicatePriority)
	assert.Equal(t, task.KindInvariantViolation, task.KindOf(err))
	assert.Empty(t, plan.Batch)
}

func TestReassign(t *testing.T) {
	r := NewPriorityRanker()

	t.Run("move up shifts only the range between", func(t *testing.T) {
		n := ids{}
		plan, err := r.Reassign(n.ranked("A", "B", "C", "D"), n.of("C"), 1)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{
			n.update("B", 2, 3),
			n.update("A", 1, 2),
			n.update("C", 3, 1),
		}, plan.Batch)
		assert.Equal(t, 1, plan.Assigned)
	})

	t.Run("move down is symmetric", func(t *testing.T) {
		n := ids{}
		plan, err := r.Reassign(n.ranked("A", "B", "C", "D"), n.of("A"), 3)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{
			n.update("B", 2, 1),
			n.update("C", 3, 2),
			n.update("A", 1, 3),
		}, plan.Batch)
	})

	t.Run("adjacent swap", func(t *testing.T) {
		n := ids{}
		plan, err := r.Reassign(n.ranked("A", "B"), n.of("B"), 1)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{n.update("A", 1, 2), n.update("B", 2, 1)}, plan.Batch)
	})

	t.Run("same priority is a no-op", func(t *testing.T) {
		n := ids{}
		plan, err := r.Reassign(n.ranked("A", "B", "C"), n.of("B"), 2)
		require.NoError(t, err)
		assert.Empty(t, plan.Batch)
		assert.Equal(t, 2, plan.Assigned)
	})

	t.Run("past the end is clamped to the last slot", func(t *testing.T) {
		n := ids{}
		plan, err := r.Reassign(n.ranked("A", "B", "C"), n.of("A"), 9)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{
			n.update("B", 2, 1),
			n.update("C", 3, 2),
			n.update("A", 1, 3),
		}, plan.Batch)
		assert.Equal(t, 3, plan.Assigned)
	})

	// count+1 is unheld, but storing it would leave a hole where the mover
	// was. It lands on count instead and the tail closes up.
	t.Run("count+1 moves to the last slot and stays dense", func(t *testing.T) {
		n := ids{}
		active := n.ranked("A", "B", "C")
		plan, err := r.Reassign(active, n.of("A"), 4)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{
			n.update("B", 2, 1),
			n.update("C", 3, 2),
			n.update("A", 1, 3),
		}, plan.Batch)
		assert.Equal(t, 3, plan.Assigned)
		assert.True(t, Dense(plan.Batch.Apply(active)))
	})

	t.Run("count+1 for the last task is a no-op", func(t *testing.T) {
		n := ids{}
		plan, err := r.Reassign(n.ranked("A", "B", "C"), n.of("C"), 4)
		require.NoError(t, err)
		assert.Empty(t, plan.Batch)
		assert.Equal(t, 3, plan.Assigned)
	})

	t.Run("unheld target is a direct assignment", func(t *testing.T) {
		n := ids{}
		active := []task.RankedTask{
			{TaskID: n.of("A"), Priority: 1},
			{TaskID: n.of("B"), Priority: 3},
			{TaskID: n.of("C"), Priority: 4},
		}
		plan, err := r.Reassign(active, n.of("C"), 2)
		require.NoError(t, err)
		assert.Equal(t, task.Batch{n.update("C", 4, 2)}, plan.Batch)
	})
}

func TestReassign_Errors(t *testing.T) {
	r := NewPriorityRanker()
	n := ids{}

	plan, err := r.Reassign(n.ranked("A", "B"), uuid.New(), 1)
	assert.ErrorIs(t, err, task.ErrTaskNotRanked)
	assert.Equal(t, task.KindNotFound, task.KindOf(err))
	assert.Empty(t, plan.Batch)

	_, err = r.Reassign(n.ranked("A", "B"), n.of("A"), 0)
	assert.ErrorIs(t, err, task.ErrInvalidPriority)

	dup := []task.RankedTask{{TaskID: n.of("A"), Priority: 2}, {TaskID: n.of("B"), Priority: 2}}
	_, err = r.Reassign(dup, n.of("A"), 1)
	assert.ErrorIs(t, err, task.ErrDuplicatePriority)
}

func TestCloseGap(t *testing.T) {
	r := NewPriorityRanker()
	n := ids{}
	active := n.ranked("A", "B", "C", "D")
	remaining := append([]task.RankedTask{active[0]}, active[2:]...)

	batch, err := r.CloseGap(remaining, 2)

	require.NoError(t, err)
	assert.Equal(t, task.Batch{n.update("C", 3, 2), n.update("D", 4, 3)}, batch)
	assert.True(t, Dense(batch.Apply(remaining)))

	t.Run("last task leaving shifts nothing", func(t *testing.T) {
		batch, err := r.CloseGap(active[:3], 4)
		require.NoError(t, err)
		assert.Empty(t, batch)
	})

	t.Run("vacated slot still held", func(t *testing.T) {
		_, err := r.CloseGap(active, 2)
		assert.ErrorIs(t, err, task.ErrDuplicatePriority)
	})
}

func TestCheck(t *testing.T) {
	n := ids{}
	assert.True(t, Check(n.ranked("A", "B", "C")).Dense())
	assert.True(t, Dense(nil))

	report := Check([]task.RankedTask{
		{TaskID: n.of("A"), Priority: 1},
		{TaskID: n.of("B"), Priority: 1},
		{TaskID: n.of("C"), Priority: 4},
		{TaskID: n.of("D"), Priority: 0},
	})
	assert.False(t, report.Dense())
	assert.Equal(t, 4, report.Count)
	assert.Equal(t, []int{1}, report.Duplicates)
	assert.Equal(t, []int{2, 3}, report.Gaps)
	assert.Equal(t, []int{0}, report.NonPositive)
}

// applySequentially writes the batch one row at a time and fails on the first
// collision with a task that is not itself part of the batch's final move.
func applySequentially(t *testing.T, active []task.RankedTask, batch task.Batch, mover uuid.UUID) []task.RankedTask {
	t.Helper()
	current := make(map[uuid.UUID]int, len(active))
	for _, a := range active {
		current[a.TaskID] = a.Priority
	}
	for _, u := range batch {
		for id, p := range current {
			if id != u.TaskID && id != mover && p == u.NewPriority {
				t.Fatalf("transient collision at %d between %s and %s", p, id, u.TaskID)
			}
		}
		current[u.TaskID] = u.NewPriority
	}
	out := make([]task.RankedTask, 0, len(current))
	for id, p := range current {
		out = append(out, task.RankedTask{TaskID: id, Priority: p})
	}
	return out
}

func TestRanker_RandomSequencesStayDense(t *testing.T) {
	r := NewPriorityRanker()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		var active []task.RankedTask
		for step := 0; step < 60; step++ {
			if len(active) == 0 || rng.Intn(2) == 0 {
				plan, err := r.AssignOnInsert(active, 1+rng.Intn(len(active)+3))
				require.NoError(t, err)
				active = applySequentially(t, active, plan.Batch, uuid.Nil)
				active = append(active, task.RankedTask{TaskID: uuid.New(), Priority: plan.Assigned})
			} else {
				mover := active[rng.Intn(len(active))]
				plan, err := r.Reassign(active, mover.TaskID, 1+rng.Intn(len(active)+1))
				require.NoError(t, err)

				touched := map[uuid.UUID]bool{}
				for _, u := range plan.Batch {
					assert.False(t, touched[u.TaskID], "task updated twice")
					touched[u.TaskID] = true
					if u.TaskID != mover.TaskID {
						assert.Equal(t, 1, abs(u.Delta()))
					}
				}
				active = applySequentially(t, active, plan.Batch, mover.TaskID)
			}
			require.True(t, Dense(active), "run %d step %d: %+v", run, step, Check(active))
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
