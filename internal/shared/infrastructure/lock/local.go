// Package lock serializes work per user, either inside one process or
// across processes through Redis.
package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type userMutex struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Entries are dropped once the
// last waiter leaves, so memory stays bounded by concurrent users.
type LocalLocker struct {
	mu    sync.Mutex
	users map[uuid.UUID]*userMutex
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{users: make(map[uuid.UUID]*userMutex)}
}

// WithUserLock runs fn while holding userID's lock. Waiting respects ctx.
func (l *LocalLocker) WithUserLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	m := l.acquireRef(userID)
	defer l.releaseRef(userID, m)

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.ch }()

	return fn(ctx)
}

func (l *LocalLocker) acquireRef(userID uuid.UUID) *userMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.users[userID]
	if !ok {
		m = &userMutex{ch: make(chan struct{}, 1)}
		l.users[userID] = m
	}
	m.refs++
	return m
}

func (l *LocalLocker) releaseRef(userID uuid.UUID, m *userMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(l.users, userID)
	}
}

// held reports how many users currently have a lock entry.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
