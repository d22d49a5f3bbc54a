package persistence

import (
	"context"
	"os"
	"testing"

	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/migrations"
	sharedPersistence "github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/services"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) (*PostgresTaskRepository, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = migrations.RunPostgresMigrations(ctx, pool)
	require.NoError(t, err)
	return NewPostgresTaskRepository(pool), pool
}

func TestPostgresTaskRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupPostgres(t)
	userID := uuid.New()
	tasks := seedList(t, repo, userID, 2)

	found, err := repo.FindByID(ctx, tasks[1].ID())
	require.NoError(t, err)
	assert.Equal(t, 2, found.Priority())
	assert.Equal(t, 1, found.Version())

	require.NoError(t, found.Complete())
	require.NoError(t, repo.Save(ctx, found))
	assert.Equal(t, 2, found.Version())

	err = repo.Save(ctx, tasks[1])
	assert.ErrorIs(t, err, task.ErrConcurrencyConflict)
}

func TestPostgresTaskRepository_ReassignInsideTransaction(t *testing.T) {
	ctx := context.Background()
	repo, pool := setupPostgres(t)
	userID := uuid.New()
	tasks := seedList(t, repo, userID, 4)
	uow := sharedPersistence.NewPostgresUnitOfWork(pool, pgx.TxOptions{IsoLevel: pgx.Serializable})

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	active, err := repo.ActiveTasksOf(txCtx, userID)
	require.NoError(t, err)
	plan, err := services.NewPriorityRanker().Reassign(active, tasks[2].ID(), 1)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyPriorityUpdates(txCtx, userID, plan.Batch))
	require.NoError(t, uow.Commit(txCtx))

	after, err := repo.ActiveTasksOf(ctx, userID)
	require.NoError(t, err)
	assert.True(t, services.Dense(after))
	assert.Equal(t, []uuid.UUID{tasks[2].ID(), tasks[0].ID(), tasks[1].ID(), tasks[3].ID()}, idsOf(after))
}

func TestPostgresTaskRepository_StaleBatch(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupPostgres(t)
	userID := uuid.New()
	tasks := seedList(t, repo, userID, 2)

	err := repo.ApplyPriorityUpdates(ctx, userID, task.Batch{
		{TaskID: tasks[0].ID(), OldPriority: 2, NewPriority: 1},
	})
	assert.ErrorIs(t, err, task.ErrConcurrencyConflict)
}

func TestPGPriority(t *testing.T) {
	v, err := pgPriority(42)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	_, err = pgPriority(1 << 40)
	assert.ErrorIs(t, err, task.ErrInvalidPriority)
	assert.Equal(t, task.KindInvalidArgument, task.KindOf(err))
}
