package queries

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/google/uuid"
)

// DefaultPageSize is used when a query does not ask for one.
const DefaultPageSize = 5

// Scope selects which of a user's tasks a listing covers.
type Scope string

const (
	ScopePending   Scope = "pending"
	ScopeCompleted Scope = "completed"
	ScopeAll       Scope = "all"
)

// ListTasksQuery contains the parameters for listing tasks.
type ListTasksQuery struct {
	UserID   uuid.UUID
	Scope    Scope  // defaults to pending
	Search   string // case-insensitive title substring
	Page     int    // 1-based, defaults to 1
	PageSize int    // defaults to DefaultPageSize
}

// TaskPage is one page of a listing.
type TaskPage struct {
	Tasks      []TaskDTO
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// HasNext reports whether another page follows.
func (p TaskPage) HasNext() bool { return p.Page < p.TotalPages }

// ListTasksHandler handles the ListTasksQuery.
type ListTasksHandler struct {
	taskRepo        task.Repository
	defaultPageSize int
}

// NewListTasksHandler creates a new ListTasksHandler. A non-positive
// pageSize falls back to DefaultPageSize.
func NewListTasksHandler(taskRepo task.Repository, pageSize int) *ListTasksHandler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListTasksHandler{taskRepo: taskRepo, defaultPageSize: pageSize}
}

// Handle executes the ListTasksQuery.
func (h *ListTasksHandler) Handle(ctx context.Context, query ListTasksQuery) (*TaskPage, error) {
	if query.Page < 0 || query.PageSize < 0 {
		return nil, fmt.Errorf("%w: page and page size must not be negative", task.ErrInvalidQuery)
	}

	var tasks []*task.Task
	var err error
	switch query.Scope {
	case "", ScopePending:
		tasks, err = h.taskRepo.FindActive(ctx, query.UserID)
	case ScopeCompleted:
		tasks, err = h.taskRepo.FindCompleted(ctx, query.UserID)
	case ScopeAll:
		tasks, err = h.taskRepo.FindByUserID(ctx, query.UserID)
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", task.ErrInvalidQuery, query.Scope)
	}
	if err != nil {
		return nil, err
	}

	if query.Search != "" {
		tasks = filterByTitle(tasks, query.Search)
	}

	page := max(query.Page, 1)
	size := query.PageSize
	if size == 0 {
		size = h.defaultPageSize
	}
	total := len(tasks)
	start := min((page-1)*size, total)
	end := min(start+size, total)

	return &TaskPage{
		Tasks:      toTaskDTOs(tasks[start:end]),
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}, nil
}

func filterByTitle(tasks []*task.Task, search string) []*task.Task {
	needle := strings.ToUpper(strings.TrimSpace(search))
	var filtered []*task.Task
	for _, t := range tasks {
		if strings.Contains(strings.ToUpper(t.Title()), needle) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
