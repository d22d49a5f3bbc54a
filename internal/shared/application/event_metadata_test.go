package application

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/felixgeelhaar/tasklist/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	domain.BaseEvent
}

func TestNewEventMetadata(t *testing.T) {
	t.Run("creates metadata with user ID", func(t *testing.T) {
		userID := uuid.New()

		metadata := NewEventMetadata(context.Background(), userID)

		assert.Equal(t, userID, metadata.UserID)
		assert.NotEqual(t, uuid.Nil, metadata.CorrelationID)
		assert.NotEqual(t, uuid.Nil, metadata.CausationID)
	})

	t.Run("reuses correlation ID from context", func(t *testing.T) {
		correlationID := uuid.New()
		ctx := observability.WithCorrelationID(context.Background(), correlationID.String())

		metadata := NewEventMetadata(ctx, uuid.New())

		assert.Equal(t, correlationID, metadata.CorrelationID)
	})

	t.Run("ignores malformed correlation ID", func(t *testing.T) {
		ctx := observability.WithCorrelationID(context.Background(), "not-a-uuid")

		metadata := NewEventMetadata(ctx, uuid.New())

		assert.NotEqual(t, uuid.Nil, metadata.CorrelationID)
	})
}

func TestApplyEventMetadata(t *testing.T) {
	first := &testEvent{BaseEvent: domain.NewBaseEvent(uuid.New(), "Test", "test.one")}
	second := &testEvent{BaseEvent: domain.NewBaseEvent(uuid.New(), "Test", "test.two")}
	metadata := NewEventMetadata(context.Background(), uuid.New())

	ApplyEventMetadata([]domain.DomainEvent{first, second}, metadata)

	assert.Equal(t, metadata, first.Metadata())
	assert.Equal(t, metadata, second.Metadata())
}

func TestNoopUserLocker(t *testing.T) {
	called := false
	err := NoopUserLocker{}.WithUserLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}
