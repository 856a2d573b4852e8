package publisher

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "docvault/pkg/platform/audit"
	"docvault/pkg/platform/audit/store/memory"
)

func TestPublisher_EmitAndList(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	entityID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		EventType:  audit.EventTypeCreate,
		EntityType: "Document",
		EntityID:   entityID,
		Action:     audit.ActionDocumentCreated,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), entityID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionDocumentCreated, events[0].Action)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	entityID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		EventType: audit.EventTypeDelete,
		EntityID:  entityID,
		Action:    audit.ActionDocumentDeleted,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), entityID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp should be set on emit")
}

func TestPublisher_FiltersByEntity(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	first := uuid.NewString()
	second := uuid.NewString()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{EntityID: first, Action: audit.ActionDocumentCreated}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{EntityID: second, Action: audit.ActionDocumentCreated}))

	events, err := pub.List(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, first, events[0].EntityID)
}
