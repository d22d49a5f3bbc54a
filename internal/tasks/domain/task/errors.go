package task

import "errors"

// Kind classifies task errors for callers that map them to responses.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidArgument
	KindInvariantViolation
	KindConcurrencyConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	default:
		return "unknown"
	}
}

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrTaskNotFound  = newError(KindNotFound, "task not found")
	ErrTaskNotRanked = newError(KindNotFound, "task is not in the active set")

	ErrEmptyTitle      = newError(KindInvalidArgument, "task title cannot be empty")
	ErrTitleTooShort   = newError(KindInvalidArgument, "task title must be at least 10 characters")
	ErrInvalidPriority = newError(KindInvalidArgument, "priority must be a positive integer")
	ErrTaskCompleted   = newError(KindInvalidArgument, "task is already completed")
	ErrTaskDeleted     = newError(KindInvalidArgument, "task is deleted")
	ErrNothingToUpdate = newError(KindInvalidArgument, "no fields to update")
	ErrInvalidQuery    = newError(KindInvalidArgument, "invalid task query")

	ErrDuplicatePriority = newError(KindInvariantViolation, "active tasks share a priority")

	ErrConcurrencyConflict = newError(KindConcurrencyConflict, "active tasks changed concurrently")
)

// KindOf returns the Kind of the first task error in err's chain.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// IsConcurrencyConflict reports whether err means the snapshot went stale.
func IsConcurrencyConflict(err error) bool {
	return KindOf(err) == KindConcurrencyConflict
}
