package application

import (
	"context"

	"github.com/google/uuid"
)

// UserLocker serializes work on one user's data. Holders of different users'
// locks never block each other.
type UserLocker interface {
	WithUserLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error
}

// NoopUserLocker runs fn without taking any lock. Used when the database
// transaction alone provides the serialization.
type NoopUserLocker struct{}

func (NoopUserLocker) WithUserLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
