package outbox

import (
	"testing"

	"github.com/felixgeelhaar/tasklist/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteAdded struct {
	domain.BaseEvent
	Note string `json:"note"`
}

func newNoteAdded(aggregateID uuid.UUID, note string) *noteAdded {
	return &noteAdded{
		BaseEvent: domain.NewBaseEvent(aggregateID, "Note", "test.note.added"),
		Note:      note,
	}
}

func TestNewMessage(t *testing.T) {
	t.Run("copies event identity", func(t *testing.T) {
		aggregateID := uuid.New()
		event := newNoteAdded(aggregateID, "hello")

		msg, err := NewMessage(event)

		require.NoError(t, err)
		assert.Equal(t, event.EventID(), msg.EventID)
		assert.Equal(t, "Note", msg.AggregateType)
		assert.Equal(t, aggregateID, msg.AggregateID)
		assert.Equal(t, "test.note.added", msg.EventType)
		assert.Equal(t, "test.note.added", msg.RoutingKey)
		assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
		assert.False(t, msg.IsPublished())
		assert.Zero(t, msg.RetryCount)
	})

	t.Run("payload holds only event fields", func(t *testing.T) {
		msg, err := NewMessage(newNoteAdded(uuid.New(), "hello"))

		require.NoError(t, err)
		assert.JSONEq(t, `{"note":"hello"}`, string(msg.Payload))
	})

	t.Run("metadata round trips", func(t *testing.T) {
		event := newNoteAdded(uuid.New(), "hello")
		meta := domain.EventMetadata{
			CorrelationID: uuid.New(),
			CausationID:   uuid.New(),
			UserID:        uuid.New(),
		}
		event.SetMetadata(meta)

		msg, err := NewMessage(event)

		require.NoError(t, err)
		assert.Equal(t, meta, msg.EventMetadata())
	})
}

func TestNewMessages(t *testing.T) {
	events := []domain.DomainEvent{
		newNoteAdded(uuid.New(), "a"),
		newNoteAdded(uuid.New(), "b"),
	}

	msgs, err := NewMessages(events)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, events[0].EventID(), msgs[0].EventID)
	assert.Equal(t, events[1].EventID(), msgs[1].EventID)
}

func TestMessage_CanRetry(t *testing.T) {
	msg := &Message{}
	assert.True(t, msg.CanRetry(3))

	msg.RetryCount = 2
	assert.True(t, msg.CanRetry(3))

	msg.RetryCount = 3
	assert.False(t, msg.CanRetry(3))
}

func TestMessage_EventMetadata_Empty(t *testing.T) {
	msg := &Message{}
	assert.Equal(t, domain.EventMetadata{}, msg.EventMetadata())

	msg.Metadata = []byte("not json")
	assert.Equal(t, domain.EventMetadata{}, msg.EventMetadata())
}
