package task

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/google/uuid"
)

// MinTitleLength is the shortest accepted title, counted in runes.
const MinTitleLength = 10

// Task is one item of a user's list. While active (neither completed nor
// deleted) its priority is a slot in the user's dense 1..N ranking.
type Task struct {
	domain.BaseAggregateRoot
	userID      uuid.UUID
	title       string
	description string
	priority    int
	completed   bool
	deleted     bool
	completedAt *time.Time
	deletedAt   *time.Time
}

// NormalizeTitle trims and upper-cases a title, then validates its length.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) < MinTitleLength {
		return "", ErrTitleTooShort
	}
	return strings.ToUpper(title), nil
}

// NewTask creates an active task that will occupy priority. The caller is
// responsible for freeing that slot first.
func NewTask(userID uuid.UUID, title, description string, priority int) (*Task, error) {
	normalized, err := NormalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if priority <= 0 {
		return nil, ErrInvalidPriority
	}

	t := &Task{
		BaseAggregateRoot: domain.NewBaseAggregateRoot(),
		userID:            userID,
		title:             normalized,
		description:       strings.TrimSpace(description),
		priority:          priority,
	}
	t.AddDomainEvent(NewTaskCreated(t.ID(), t.title, t.priority))
	return t, nil
}

// Snapshot is the persisted form of a task.
type Snapshot struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Priority    int
	Completed   bool
	Deleted     bool
	CompletedAt *time.Time
	DeletedAt   *time.Time
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rehydrate rebuilds a task from storage without raising events.
func Rehydrate(s Snapshot) *Task {
	return &Task{
		BaseAggregateRoot: domain.RehydrateBaseAggregateRoot(s.ID, s.CreatedAt, s.UpdatedAt, s.Version),
		userID:            s.UserID,
		title:             s.Title,
		description:       s.Description,
		priority:          s.Priority,
		completed:         s.Completed,
		deleted:           s.Deleted,
		completedAt:       s.CompletedAt,
		deletedAt:         s.DeletedAt,
	}
}

func (t *Task) UserID() uuid.UUID       { return t.userID }
func (t *Task) Title() string           { return t.title }
func (t *Task) Description() string     { return t.description }
func (t *Task) Priority() int           { return t.priority }
func (t *Task) IsCompleted() bool       { return t.completed }
func (t *Task) IsDeleted() bool         { return t.deleted }
func (t *Task) CompletedAt() *time.Time { return t.completedAt }
func (t *Task) DeletedAt() *time.Time   { return t.deletedAt }

// IsActive reports whether the task takes part in the ranking.
func (t *Task) IsActive() bool { return !t.completed && !t.deleted }

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID uuid.UUID) bool { return t.userID == userID }

// Ranked returns the ranker's view of the task.
func (t *Task) Ranked() RankedTask {
	return RankedTask{TaskID: t.ID(), Priority: t.priority}
}

// Snapshot returns the persisted form of the task.
func (t *Task) Snapshot() Snapshot {
	return Snapshot{
		ID:          t.ID(),
		UserID:      t.userID,
		Title:       t.title,
		Description: t.description,
		Priority:    t.priority,
		Completed:   t.completed,
		Deleted:     t.deleted,
		CompletedAt: t.completedAt,
		DeletedAt:   t.deletedAt,
		Version:     t.Version(),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func (t *Task) ensureWritable() error {
	if t.deleted {
		return ErrTaskDeleted
	}
	return nil
}

// Edit changes title and/or description. Nil leaves a field as is.
func (t *Task) Edit(title, description *string) error {
	if err := t.ensureWritable(); err != nil {
		return err
	}
	if title == nil && description == nil {
		return ErrNothingToUpdate
	}

	var fields []string
	if title != nil {
		normalized, err := NormalizeTitle(*title)
		if err != nil {
			return err
		}
		if normalized != t.title {
			t.title = normalized
			fields = append(fields, "title")
		}
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if d != t.description {
			t.description = d
			fields = append(fields, "description")
		}
	}

	if len(fields) == 0 {
		return nil
	}
	t.Touch()
	t.AddDomainEvent(NewTaskUpdated(t.ID(), fields))
	return nil
}

// MoveTo records that the task now sits at priority. shifted lists the other
// tasks the move displaced.
func (t *Task) MoveTo(priority int, shifted Batch) error {
	if err := t.ensureWritable(); err != nil {
		return err
	}
	if t.completed {
		return ErrTaskCompleted
	}
	if priority <= 0 {
		return ErrInvalidPriority
	}
	if priority == t.priority {
		return nil
	}

	from := t.priority
	t.priority = priority
	t.Touch()
	t.AddDomainEvent(NewTaskPriorityChanged(t.ID(), from, priority, shifted))
	return nil
}

// Complete takes the task out of the active set. Its priority is kept for
// history and no longer counts toward the ranking.
func (t *Task) Complete() error {
	if err := t.ensureWritable(); err != nil {
		return err
	}
	if t.completed {
		return ErrTaskCompleted
	}

	now := time.Now().UTC()
	t.completed = true
	t.completedAt = &now
	t.Touch()
	t.AddDomainEvent(NewTaskCompleted(t.ID(), t.priority))
	return nil
}

// Delete soft-deletes the task. Deleting twice is a no-op.
func (t *Task) Delete() {
	if t.deleted {
		return
	}
	now := time.Now().UTC()
	wasActive := t.IsActive()
	t.deleted = true
	t.deletedAt = &now
	t.Touch()
	t.AddDomainEvent(NewTaskDeleted(t.ID(), t.priority, wasActive))
}
