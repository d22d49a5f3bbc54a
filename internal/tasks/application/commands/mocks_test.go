package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// mockTaskRepo is a mock implementation of task.Repository.
type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) Save(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *mockTaskRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *mockTaskRepo) FindActive(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *mockTaskRepo) FindCompleted(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *mockTaskRepo) ActiveTasksOf(ctx context.Context, userID uuid.UUID) ([]task.RankedTask, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.RankedTask), args.Error(1)
}

func (m *mockTaskRepo) ApplyPriorityUpdates(ctx context.Context, userID uuid.UUID, batch task.Batch) error {
	args := m.Called(ctx, userID, batch)
	return args.Error(0)
}

// mockOutboxRepo is a mock implementation of outbox.Repository.
type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return m.Called(ctx, id, errMsg, nextRetryAt).Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockOutboxRepo) CountPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

// mockUnitOfWork is a mock implementation of UnitOfWork.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	if fn, ok := args.Get(0).(func(context.Context) context.Context); ok {
		return fn(ctx), args.Error(1)
	}
	return args.Get(0).(context.Context), args.Error(1)
}

// passCtx makes a mocked Begin hand back the caller's context.
func passCtx(ctx context.Context) context.Context { return ctx }

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	tasks  *mockTaskRepo
	outbox *mockOutboxRepo
	uow    *mockUnitOfWork
	deps   Deps
	ctx    context.Context
	userID uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		tasks:  new(mockTaskRepo),
		outbox: new(mockOutboxRepo),
		uow:    new(mockUnitOfWork),
		ctx:    context.Background(),
		userID: uuid.New(),
	}
	f.deps = Deps{Tasks: f.tasks, Outbox: f.outbox, UoW: f.uow}
	return f
}

// expectTx sets up n transactions that commit.
func (f *fixture) expectTx(n int) {
	f.uow.On("Begin", mock.Anything).Return(passCtx, nil).Times(n)
	f.uow.On("Commit", mock.Anything).Return(nil).Times(n)
}

// activeTask builds a stored, active task at priority.
func (f *fixture) activeTask(priority int) *task.Task {
	return task.Rehydrate(task.Snapshot{
		ID:        uuid.New(),
		UserID:    f.userID,
		Title:     "EXISTING TASK TITLE",
		Priority:  priority,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
}

func ranked(tasks ...*task.Task) []task.RankedTask {
	out := make([]task.RankedTask, len(tasks))
	for i, t := range tasks {
		out[i] = t.Ranked()
	}
	return out
}

func upd(t *task.Task, from, to int) task.PriorityUpdate {
	return task.PriorityUpdate{TaskID: t.ID(), OldPriority: from, NewPriority: to}
}

func routingKeys(msgs []*outbox.Message) []string {
	keys := make([]string, len(msgs))
	for i, m := range msgs {
		keys[i] = m.RoutingKey
	}
	return keys
}
