package outbox

import (
	"context"
	"time"
)

// Repository defines the interface for outbox persistence. SaveBatch joins
// the caller's transaction when the context carries one, which is what
// makes the outbox transactional.
type Repository interface {
	// SaveBatch stores messages and fills in their IDs.
	SaveBatch(ctx context.Context, msgs []*Message) error

	// GetUnpublished returns messages due for publication, oldest first.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	// MarkPublished marks a message as successfully published.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed records a publish failure and schedules the next attempt.
	MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error

	// MarkDead stops retrying a message.
	MarkDead(ctx context.Context, id int64, reason string) error

	// CountPending counts messages not yet published or dead-lettered.
	CountPending(ctx context.Context) (int64, error)

	// DeleteOld removes published messages older than the retention period.
	DeleteOld(ctx context.Context, olderThanDays int) (int64, error)
}
