package application

import "context"

// UnitOfWork scopes a set of repository calls to one transaction. Begin
// returns a context carrying the transaction; repositories pick it up from
// there.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFunc is a function that executes within a unit of work.
type UnitOfWorkFunc func(ctx context.Context) error

// WithUnitOfWork runs fn inside a transaction, committing on success and
// rolling back on error or panic. The rollback error is dropped in favour of
// fn's.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn UnitOfWorkFunc) error {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback(txCtx)
		}
	}()

	if err := fn(txCtx); err != nil {
		return err
	}

	committed = true
	return uow.Commit(txCtx)
}
