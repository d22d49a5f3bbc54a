package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/database"
	sharedPersistence "github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgTaskColumns = `
	id, user_id, title, description, priority, completed, deleted,
	completed_at, deleted_at, version, created_at, updated_at
`

// PostgresTaskRepository implements task.Repository using PostgreSQL.
type PostgresTaskRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTaskRepository creates a new PostgreSQL task repository.
func NewPostgresTaskRepository(pool *pgxpool.Pool) *PostgresTaskRepository {
	return &PostgresTaskRepository{pool: pool}
}

// Save inserts a new task or updates an existing one under version check.
func (r *PostgresTaskRepository) Save(ctx context.Context, t *task.Task) error {
	exec := sharedPersistence.Executor(ctx, r.pool)
	s := t.Snapshot()
	priority, err := pgPriority(s.Priority)
	if err != nil {
		return err
	}

	if s.Version == 0 {
		_, err := exec.Exec(ctx, `
			INSERT INTO tasks (`+pgTaskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
		`,
			s.ID, s.UserID, s.Title, s.Description, priority, s.Completed, s.Deleted,
			s.CompletedAt, s.DeletedAt, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return mapWriteError(err, "insert task %s", s.ID)
		}
		t.SetVersion(1)
		return nil
	}

	var version int
	err = exec.QueryRow(ctx, `
		UPDATE tasks SET
			title = $2,
			description = $3,
			priority = $4,
			completed = $5,
			deleted = $6,
			completed_at = $7,
			deleted_at = $8,
			version = version + 1,
			updated_at = $9
		WHERE id = $1 AND version = $10
		RETURNING version
	`,
		s.ID, s.Title, s.Description, priority, s.Completed, s.Deleted,
		s.CompletedAt, s.DeletedAt, s.UpdatedAt, s.Version,
	).Scan(&version)
	if err != nil {
		if database.IsNoRows(err) {
			return fmt.Errorf("%w: task %s changed since version %d", task.ErrConcurrencyConflict, s.ID, s.Version)
		}
		return mapWriteError(err, "update task %s", s.ID)
	}
	t.SetVersion(version)
	return nil
}

// FindByID retrieves a task by its ID.
func (r *PostgresTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanPostgresTask(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, fmt.Errorf("%w: %s", task.ErrTaskNotFound, id)
		}
		return nil, err
	}
	return t, nil
}

// FindByUserID returns every non-deleted task, active ones first.
func (r *PostgresTaskRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return r.findMany(ctx, `
		SELECT `+pgTaskColumns+` FROM tasks
		WHERE user_id = $1 AND NOT deleted
		ORDER BY completed, priority, created_at
	`, userID)
}

// FindActive returns pending tasks ordered by priority.
func (r *PostgresTaskRepository) FindActive(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return r.findMany(ctx, `
		SELECT `+pgTaskColumns+` FROM tasks
		WHERE user_id = $1 AND NOT completed AND NOT deleted
		ORDER BY priority
	`, userID)
}

// FindCompleted returns completed tasks, most recently completed first.
func (r *PostgresTaskRepository) FindCompleted(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return r.findMany(ctx, `
		SELECT `+pgTaskColumns+` FROM tasks
		WHERE user_id = $1 AND completed AND NOT deleted
		ORDER BY completed_at DESC, created_at DESC
	`, userID)
}

func (r *PostgresTaskRepository) findMany(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanPostgresTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ActiveTasksOf reads the ranking snapshot. Inside a transaction it first
// takes a per-user advisory lock, then locks the rows until commit.
func (r *PostgresTaskRepository) ActiveTasksOf(ctx context.Context, userID uuid.UUID) ([]task.RankedTask, error) {
	query := `
		SELECT id, priority FROM tasks
		WHERE user_id = $1 AND NOT completed AND NOT deleted
		ORDER BY priority
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	if _, inTx := sharedPersistence.TxInfoFromContext(ctx); inTx {
		if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID); err != nil {
			return nil, mapWriteError(err, "lock user %s", userID)
		}
		query += " FOR UPDATE"
	}

	rows, err := exec.Query(ctx, query, userID)
	if err != nil {
		return nil, mapWriteError(err, "read active tasks of %s", userID)
	}
	defer rows.Close()

	var ranked []task.RankedTask
	for rows.Next() {
		var rt task.RankedTask
		if err := rows.Scan(&rt.TaskID, &rt.Priority); err != nil {
			return nil, err
		}
		ranked = append(ranked, rt)
	}
	return ranked, rows.Err()
}

// ApplyPriorityUpdates sends the whole batch in one round trip. The active
// priority exclusion constraint is deferred, so the batch is checked as a
// whole when the transaction commits.
func (r *PostgresTaskRepository) ApplyPriorityUpdates(ctx context.Context, userID uuid.UUID, batch task.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	now := time.Now().UTC()
	b := &pgx.Batch{}
	for _, u := range batch {
		newPriority, err := pgPriority(u.NewPriority)
		if err != nil {
			return err
		}
		b.Queue(`
			UPDATE tasks
			SET priority = $1, version = version + 1, updated_at = $2
			WHERE id = $3 AND user_id = $4
			  AND NOT completed AND NOT deleted
			  AND priority = $5
		`, newPriority, now, u.TaskID, userID, u.OldPriority)
	}

	results := sharedPersistence.Executor(ctx, r.pool).SendBatch(ctx, b)
	defer results.Close()

	for _, u := range batch {
		tag, err := results.Exec()
		if err != nil {
			return mapWriteError(err, "move task %s to %d", u.TaskID, u.NewPriority)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: task %s is no longer at priority %d", task.ErrConcurrencyConflict, u.TaskID, u.OldPriority)
		}
	}
	return nil
}

// pgPriority narrows a priority to the int4 column.
func pgPriority(p int) (int32, error) {
	v, err := convert.IntToInt32(p)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", task.ErrInvalidPriority, err)
	}
	return v, nil
}

func scanPostgresTask(row pgx.Row) (*task.Task, error) {
	var s task.Snapshot
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Title,
		&s.Description,
		&s.Priority,
		&s.Completed,
		&s.Deleted,
		&s.CompletedAt,
		&s.DeletedAt,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return task.Rehydrate(s), nil
}

// mapWriteError turns lost races into ErrConcurrencyConflict.
func mapWriteError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if database.IsWriteConflict(err) {
		return fmt.Errorf("%w: %s: %v", task.ErrConcurrencyConflict, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
