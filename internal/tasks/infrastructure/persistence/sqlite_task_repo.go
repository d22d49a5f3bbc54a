package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sharedPersistence "github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

const sqliteTaskColumns = `
	id, user_id, title, description, priority, completed, deleted,
	completed_at, deleted_at, version, created_at, updated_at
`

// sqliteTimeLayout is fixed-width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteTaskRepository implements task.Repository using SQLite.
type SQLiteTaskRepository struct {
	db *sql.DB
}

// NewSQLiteTaskRepository creates a new SQLite task repository.
func NewSQLiteTaskRepository(db *sql.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Save inserts a new task or updates an existing one under version check.
func (r *SQLiteTaskRepository) Save(ctx context.Context, t *task.Task) error {
	exec := sharedPersistence.SQLiteExecutor(ctx, r.db)
	s := t.Snapshot()

	if s.Version == 0 {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO tasks (`+sqliteTaskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			s.ID.String(), s.UserID.String(), s.Title, s.Description, s.Priority,
			boolToInt(s.Completed), boolToInt(s.Deleted),
			formatNullTime(s.CompletedAt), formatNullTime(s.DeletedAt),
			formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
		)
		if err != nil {
			return mapWriteError(err, "insert task %s", s.ID)
		}
		t.SetVersion(1)
		return nil
	}

	res, err := exec.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?,
			description = ?,
			priority = ?,
			completed = ?,
			deleted = ?,
			completed_at = ?,
			deleted_at = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?`,
		s.Title, s.Description, s.Priority,
		boolToInt(s.Completed), boolToInt(s.Deleted),
		formatNullTime(s.CompletedAt), formatNullTime(s.DeletedAt),
		formatTime(s.UpdatedAt), s.ID.String(), s.Version,
	)
	if err != nil {
		return mapWriteError(err, "update task %s", s.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s changed since version %d", task.ErrConcurrencyConflict, s.ID, s.Version)
	}
	t.SetVersion(s.Version + 1)
	return nil
}

// FindByID retrieves a task by its ID.
func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	tasks, err := r.findMany(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: %s", task.ErrTaskNotFound, id)
	}
	return tasks[0], nil
}

// FindByUserID returns every non-deleted task, active ones first.
func (r *SQLiteTaskRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return r.findMany(ctx, `
		SELECT `+sqliteTaskColumns+` FROM tasks
		WHERE user_id = ? AND deleted = 0
		ORDER BY completed, priority, created_at`, userID.String())
}

// FindActive returns pending tasks ordered by priority.
func (r *SQLiteTaskRepository) FindActive(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return r.findMany(ctx, `
		SELECT `+sqliteTaskColumns+` FROM tasks
		WHERE user_id = ? AND completed = 0 AND deleted = 0
		ORDER BY priority`, userID.String())
}

// FindCompleted returns completed tasks, most recently completed first.
func (r *SQLiteTaskRepository) FindCompleted(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return r.findMany(ctx, `
		SELECT `+sqliteTaskColumns+` FROM tasks
		WHERE user_id = ? AND completed = 1 AND deleted = 0
		ORDER BY completed_at DESC, created_at DESC`, userID.String())
}

func (r *SQLiteTaskRepository) findMany(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ActiveTasksOf reads the ranking snapshot. The connection is opened with
// immediate transactions, so inside one the database is already write-locked.
func (r *SQLiteTaskRepository) ActiveTasksOf(ctx context.Context, userID uuid.UUID) ([]task.RankedTask, error) {
	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, priority FROM tasks
		WHERE user_id = ? AND completed = 0 AND deleted = 0
		ORDER BY priority`, userID.String())
	if err != nil {
		return nil, mapWriteError(err, "read active tasks of %s", userID)
	}
	defer rows.Close()

	var ranked []task.RankedTask
	for rows.Next() {
		var (
			id       string
			priority int
		)
		if err := rows.Scan(&id, &priority); err != nil {
			return nil, err
		}
		taskID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("task id %q: %w", id, err)
		}
		ranked = append(ranked, task.RankedTask{TaskID: taskID, Priority: priority})
	}
	return ranked, rows.Err()
}

// ApplyPriorityUpdates writes the batch row by row. The unique index on
// active priorities is checked per statement, and the moving task holds its
// old slot until its own update, so every row is first parked on a negative
// slot in batch order and then written to its target in batch order.
func (r *SQLiteTaskRepository) ApplyPriorityUpdates(ctx context.Context, userID uuid.UUID, batch task.Batch) error {
	if len(batch) == 0 {
		return nil
	}
	return r.inTx(ctx, func(exec sharedPersistence.SQLiteDBExecutor) error {
		for i, u := range batch {
			res, err := exec.ExecContext(ctx, `
				UPDATE tasks SET priority = ?
				WHERE id = ? AND user_id = ? AND completed = 0 AND deleted = 0 AND priority = ?`,
				parkedSlot(i), u.TaskID.String(), userID.String(), u.OldPriority)
			if err := expectOne(res, err, u); err != nil {
				return err
			}
		}
		now := formatTime(time.Now())
		for i, u := range batch {
			res, err := exec.ExecContext(ctx, `
				UPDATE tasks SET priority = ?, version = version + 1, updated_at = ?
				WHERE id = ? AND priority = ?`,
				u.NewPriority, now, u.TaskID.String(), parkedSlot(i))
			if err := expectOne(res, err, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func parkedSlot(i int) int {
	return -(i + 1)
}

func expectOne(res sql.Result, err error, u task.PriorityUpdate) error {
	if err != nil {
		return mapWriteError(err, "move task %s to %d", u.TaskID, u.NewPriority)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s is no longer at priority %d", task.ErrConcurrencyConflict, u.TaskID, u.OldPriority)
	}
	return nil
}

// inTx joins the caller's transaction or runs fn in a new one.
func (r *SQLiteTaskRepository) inTx(ctx context.Context, fn func(exec sharedPersistence.SQLiteDBExecutor) error) error {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return fn(info.Tx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapWriteError(err, "begin")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapWriteError(err, "commit")
	}
	return nil
}

func scanSQLiteTask(rows *sql.Rows) (*task.Task, error) {
	var (
		s                      task.Snapshot
		id, userID             string
		completed, deleted     int
		completedAt, deletedAt sql.NullString
		createdAt, updatedAt   string
		err                    error
	)
	if err := rows.Scan(
		&id, &userID, &s.Title, &s.Description, &s.Priority, &completed, &deleted,
		&completedAt, &deletedAt, &s.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, err)
	}
	if s.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("task %s user id: %w", id, err)
	}
	s.Completed = completed != 0
	s.Deleted = deleted != 0
	if s.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("task %s completed_at: %w", id, err)
	}
	if s.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, fmt.Errorf("task %s deleted_at: %w", id, err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("task %s created_at: %w", id, err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("task %s updated_at: %w", id, err)
	}
	return task.Rehydrate(s), nil
}
