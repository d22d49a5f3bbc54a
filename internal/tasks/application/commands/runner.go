package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sharedApplication "github.com/felixgeelhaar/tasklist/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/tasklist/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/tasklist/internal/tasks/application/services"
	"github.com/felixgeelhaar/tasklist/internal/tasks/domain/task"
	"github.com/felixgeelhaar/tasklist/pkg/observability"
	"github.com/google/uuid"
)

// Deps are the collaborators shared by all task command handlers.
type Deps struct {
	Tasks   task.Repository
	Outbox  outbox.Repository
	UoW     sharedApplication.UnitOfWork
	Locker  sharedApplication.UserLocker
	Ranker  *services.PriorityRanker
	Metrics observability.Metrics
	Logger  *slog.Logger
}

// txFunc does the work of one attempt and returns the aggregates whose
// events must go to the outbox.
type txFunc func(ctx context.Context) ([]sharedDomain.AggregateRoot, error)

// runner executes a command under the user's lock inside one transaction.
// A stale snapshot is retried once with a fresh one.
type runner struct {
	Deps
}

func newRunner(deps Deps) runner {
	if deps.Locker == nil {
		deps.Locker = sharedApplication.NoopUserLocker{}
	}
	if deps.Ranker == nil {
		deps.Ranker = services.NewPriorityRanker()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return runner{Deps: deps}
}

func (r runner) run(ctx context.Context, op string, userID uuid.UUID, fn txFunc) error {
	start := time.Now()
	tags := []observability.Tag{observability.T(observability.OperationKey, op)}

	ctx = observability.WithUserID(ctx, userID.String())
	log := observability.LogOperation(r.Logger, op)

	err := r.attempt(ctx, userID, fn)
	if isConflict(err) {
		r.Metrics.Counter(observability.MetricConflicts, 1, tags...)
		log.WarnContext(ctx, "stale ranking snapshot, retrying", observability.ErrorKey, err)
		err = r.attempt(ctx, userID, fn)
	}

	r.Metrics.Timing(observability.MetricCommandDuration, time.Since(start), tags...)
	if err == nil {
		return nil
	}
	if isConflict(err) && !task.IsConcurrencyConflict(err) {
		err = fmt.Errorf("%w: %v", task.ErrConcurrencyConflict, err)
	}
	kind := task.KindOf(err)
	r.Metrics.Counter(observability.MetricRejected, 1, append(tags, observability.T("kind", kind.String()))...)
	if kind == task.KindUnknown || kind == task.KindInvariantViolation {
		log.ErrorContext(ctx, "task command failed", observability.ErrorKey, err)
	}
	return err
}

func (r runner) attempt(ctx context.Context, userID uuid.UUID, fn txFunc) error {
	return r.Locker.WithUserLock(ctx, userID, func(lockCtx context.Context) error {
		return sharedApplication.WithUnitOfWork(lockCtx, r.UoW, func(txCtx context.Context) error {
			aggregates, err := fn(txCtx)
			if err != nil {
				return err
			}
			return r.saveEvents(txCtx, userID, aggregates)
		})
	})
}

func (r runner) saveEvents(ctx context.Context, userID uuid.UUID, aggregates []sharedDomain.AggregateRoot) error {
	var events []sharedDomain.DomainEvent
	for _, agg := range aggregates {
		events = append(events, agg.DomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}

	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, userID))
	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	if err := r.Outbox.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	for _, agg := range aggregates {
		agg.ClearDomainEvents()
	}
	return nil
}

// applyBatch writes a ranker batch and records its size.
func (r runner) applyBatch(ctx context.Context, userID uuid.UUID, batch task.Batch) error {
	if len(batch) == 0 {
		return nil
	}
	if err := r.Tasks.ApplyPriorityUpdates(ctx, userID, batch); err != nil {
		return err
	}
	r.Metrics.Histogram(observability.MetricBatchSize, float64(len(batch)))
	return nil
}

// loadOwned fetches a task and hides other users' tasks behind NotFound.
func (r runner) loadOwned(ctx context.Context, userID, taskID uuid.UUID) (*task.Task, error) {
	t, err := r.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(userID) {
		return nil, fmt.Errorf("%w: %s", task.ErrTaskNotFound, taskID)
	}
	return t, nil
}

// isConflict also catches commit-time failures from the database, such as
// a deferred constraint or a serialization failure.
func isConflict(err error) bool {
	return task.IsConcurrencyConflict(err) || database.IsWriteConflict(err)
}

// without drops taskID from a snapshot.
func without(active []task.RankedTask, taskID uuid.UUID) []task.RankedTask {
	out := make([]task.RankedTask, 0, len(active))
	for _, a := range active {
		if a.TaskID != taskID {
			out = append(out, a)
		}
	}
	return out
}
