package lineage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/document/models"
	"docvault/internal/document/store"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

func seedChain(t *testing.T, s *store.InMemory, length int) []*models.Document {
	t.Helper()
	ctx := context.Background()

	root := &models.Document{
		ID:            id.NewDocumentID(),
		Version:       1,
		Status:        models.StatusActive,
		Title:         "investment policy statement",
		DocumentType:  "policy",
		FileReference: "s3://vault/ips.pdf",
		CreatedBy:     id.ActorID(uuid.New()),
		CreatedAt:     time.Now(),
	}
	require.NoError(t, s.Create(ctx, root))

	chain := []*models.Document{root}
	current := root
	for v := 2; v <= length; v++ {
		rootID := root.ID
		next := &models.Document{
			ID:                 id.NewDocumentID(),
			RootID:             &rootID,
			Version:            v,
			Status:             models.StatusActive,
			Title:              root.Title,
			DocumentType:       root.DocumentType,
			FileReference:      root.FileReference,
			CreatedBy:          root.CreatedBy,
			CreatedAt:          time.Now(),
			SupersessionReason: "regulatory correction",
		}
		require.NoError(t, s.SaveAtomic(ctx, []store.Change{
			store.Supersede(current),
			store.Insert(next),
		}))
		chain = append(chain, next)
		current = next
	}
	return chain
}

func TestResolveRoot(t *testing.T) {
	rootID := id.NewDocumentID()

	t.Run("root resolves to itself", func(t *testing.T) {
		doc := &models.Document{ID: rootID}
		assert.Equal(t, rootID, ResolveRoot(doc))
	})

	t.Run("amendment resolves to its root", func(t *testing.T) {
		doc := &models.Document{ID: id.NewDocumentID(), RootID: &rootID}
		assert.Equal(t, rootID, ResolveRoot(doc))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("same chain from any version", func(t *testing.T) {
		s := store.NewInMemory()
		chain := seedChain(t, s, 3)
		resolver := NewResolver(s, nil)

		for _, queried := range chain {
			got, err := resolver.History(ctx, queried.ID)
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i, doc := range got {
				assert.Equal(t, i+1, doc.Version)
				assert.Equal(t, chain[i].ID, doc.ID)
			}
		}
	})

	t.Run("includes tombstoned rows", func(t *testing.T) {
		s := store.NewInMemory()
		chain := seedChain(t, s, 2)
		resolver := NewResolver(s, nil)

		require.NoError(t, s.SoftDelete(ctx, chain[0].ID, id.ActorID(uuid.New()), "uploaded against wrong client", time.Now()))

		got, err := resolver.History(ctx, chain[1].ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].IsTombstoned())
		assert.NotEmpty(t, got[0].DeletionReason)
	})

	t.Run("unknown id fails with not found", func(t *testing.T) {
		s := store.NewInMemory()
		resolver := NewResolver(s, nil)

		_, err := resolver.History(ctx, id.NewDocumentID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// fakeCache records cache traffic for assertions.
type fakeCache struct {
	chains      map[id.DocumentID][]*models.Document
	gets, sets  int
	invalidated []id.DocumentID
}

func newFakeCache() *fakeCache {
	return &fakeCache{chains: make(map[id.DocumentID][]*models.Document)}
}

func (c *fakeCache) Get(_ context.Context, rootID id.DocumentID) ([]*models.Document, bool) {
	c.gets++
	chain, ok := c.chains[rootID]
	return chain, ok
}

func (c *fakeCache) Set(_ context.Context, rootID id.DocumentID, chain []*models.Document) {
	c.sets++
	c.chains[rootID] = chain
}

func (c *fakeCache) Invalidate(_ context.Context, rootID id.DocumentID) {
	c.invalidated = append(c.invalidated, rootID)
	delete(c.chains, rootID)
}

func TestHistoryCache(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	chain := seedChain(t, s, 2)
	cache := newFakeCache()
	resolver := NewResolver(s, cache)

	first, err := resolver.History(ctx, chain[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "miss populates the cache")

	second, err := resolver.History(ctx, chain[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "hit skips the store")
	assert.Equal(t, len(first), len(second))

	resolver.Invalidate(ctx, chain[0].ID)
	require.Len(t, cache.invalidated, 1)

	_, err = resolver.History(ctx, chain[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets, "invalidation forces a reload")
}
