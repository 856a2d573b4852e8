// Package lineage answers "what is the full history of this document"
// regardless of which version is queried.
package lineage

import (
	"context"
	"errors"

	"docvault/internal/document/models"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/sentinel"
)

// Store is the slice of the record store the resolver needs.
type Store interface {
	GetByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	FindLineage(ctx context.Context, rootID id.DocumentID, includeTombstoned bool) ([]*models.Document, error)
}

// HistoryCache is an optional read-through cache for resolved chains.
// Implementations must treat their own failures as misses; history
// correctness never depends on the cache.
type HistoryCache interface {
	Get(ctx context.Context, rootID id.DocumentID) ([]*models.Document, bool)
	Set(ctx context.Context, rootID id.DocumentID, chain []*models.Document)
	Invalidate(ctx context.Context, rootID id.DocumentID)
}

// Resolver reconstructs full version chains, tombstoned rows included.
// History is an audit surface, not a user-facing list: a chain is returned
// complete or not at all.
type Resolver struct {
	store Store
	cache HistoryCache
}

// NewResolver builds a resolver. cache may be nil to disable caching.
func NewResolver(store Store, cache HistoryCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// ResolveRoot returns the lineage root for any version record.
func ResolveRoot(doc *models.Document) id.DocumentID {
	return doc.RootOrSelf()
}

// History loads the record, resolves its root, and returns the ordered chain
// including tombstoned rows. An unknown id fails with not found rather than
// returning an empty history.
func (r *Resolver) History(ctx context.Context, docID id.DocumentID) ([]*models.Document, error) {
	doc, err := r.store.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}

	rootID := ResolveRoot(doc)
	if r.cache != nil {
		if chain, ok := r.cache.Get(ctx, rootID); ok {
			return chain, nil
		}
	}

	chain, err := r.store.FindLineage(ctx, rootID, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load lineage")
	}
	if r.cache != nil {
		r.cache.Set(ctx, rootID, chain)
	}
	return chain, nil
}

// Invalidate drops the cached chain for a lineage. Mutating operations call
// this after commit so the next history read sees the new version.
func (r *Resolver) Invalidate(ctx context.Context, rootID id.DocumentID) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, rootID)
	}
}
