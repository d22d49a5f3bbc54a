package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type txKey struct{}

type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTx() (*mockUnitOfWork, context.Context, context.Context) {
	ctx := context.Background()
	return new(mockUnitOfWork), ctx, context.WithValue(ctx, txKey{}, "tx")
}

func TestWithUnitOfWork_Commits(t *testing.T) {
	uow, ctx, txCtx := newTx()
	uow.On("Begin", ctx).Return(txCtx, nil)
	uow.On("Commit", txCtx).Return(nil)

	var got context.Context
	err := WithUnitOfWork(ctx, uow, func(ctx context.Context) error {
		got = ctx
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, txCtx, got)
	uow.AssertExpectations(t)
	uow.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestWithUnitOfWork_RollsBackOnError(t *testing.T) {
	uow, ctx, txCtx := newTx()
	uow.On("Begin", ctx).Return(txCtx, nil)
	uow.On("Rollback", txCtx).Return(errors.New("rollback failed"))

	batchErr := errors.New("priority update failed")
	err := WithUnitOfWork(ctx, uow, func(context.Context) error { return batchErr })

	assert.Same(t, batchErr, err)
	uow.AssertExpectations(t)
	uow.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestWithUnitOfWork_RollsBackOnPanic(t *testing.T) {
	uow, ctx, txCtx := newTx()
	uow.On("Begin", ctx).Return(txCtx, nil)
	uow.On("Rollback", txCtx).Return(nil)

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithUnitOfWork(ctx, uow, func(context.Context) error { panic("boom") })
	})
	uow.AssertExpectations(t)
}

func TestWithUnitOfWork_BeginFails(t *testing.T) {
	uow, ctx, _ := newTx()
	beginErr := errors.New("database is locked")
	uow.On("Begin", ctx).Return(ctx, beginErr)

	called := false
	err := WithUnitOfWork(ctx, uow, func(context.Context) error {
		called = true
		return nil
	})

	assert.Same(t, beginErr, err)
	assert.False(t, called)
	uow.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestWithUnitOfWork_CommitFails(t *testing.T) {
	uow, ctx, txCtx := newTx()
	commitErr := errors.New("could not serialize access")
	uow.On("Begin", ctx).Return(txCtx, nil)
	uow.On("Commit", txCtx).Return(commitErr)

	err := WithUnitOfWork(ctx, uow, func(context.Context) error { return nil })

	assert.Same(t, commitErr, err)
	uow.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestNoopUserLocker_PassesContextAndError(t *testing.T) {
	var locker UserLocker = NoopUserLocker{}
	ctx := context.WithValue(context.Background(), txKey{}, "outer")

	var got context.Context
	err := locker.WithUserLock(ctx, uuid.New(), func(ctx context.Context) error {
		got = ctx
		return errors.New("inner")
	})

	assert.EqualError(t, err, "inner")
	assert.Equal(t, ctx, got)
}
