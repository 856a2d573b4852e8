package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"docvault/internal/document/models"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
)

// InMemory keeps document records in a map. It backs unit tests and
// single-process deployments.
//
// RunInTx serializes transactions with a coarse lock and rolls back from a
// snapshot on failure. That gives the same atomicity and conflict semantics
// as the Postgres store; it does not give snapshot isolation to concurrent
// readers, which is acceptable because readers may observe slightly stale
// data by contract.
type InMemory struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	docs map[id.DocumentID]*models.Document
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[id.DocumentID]*models.Document)}
}

func (s *InMemory) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *InMemory) GetByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *InMemory) ListActive(_ context.Context) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Document, 0)
	for _, doc := range s.docs {
		if doc.Status == models.StatusActive && !doc.IsTombstoned() {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) SaveAtomic(_ context.Context, changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching anything so a late conflict
	// cannot leave earlier changes applied.
	for _, change := range changes {
		switch change.Op {
		case OpSupersede:
			current, ok := s.docs[change.Doc.ID]
			if !ok {
				return sentinel.ErrNotFound
			}
			if current.Status == models.StatusSuperseded || current.IsTombstoned() {
				return sentinel.ErrConflict
			}
		case OpInsert:
			if _, exists := s.docs[change.Doc.ID]; exists {
				return sentinel.ErrConflict
			}
			root := change.Doc.RootOrSelf()
			for _, doc := range s.docs {
				if doc.RootOrSelf() == root && doc.Version == change.Doc.Version {
					return sentinel.ErrConflict
				}
			}
		}
	}

	for _, change := range changes {
		switch change.Op {
		case OpSupersede:
			// Only the status moves; content fields stay as persisted.
			s.docs[change.Doc.ID].Status = models.StatusSuperseded
		case OpInsert:
			s.docs[change.Doc.ID] = change.Doc.Clone()
		}
	}
	return nil
}

func (s *InMemory) SoftDelete(_ context.Context, docID id.DocumentID, deletedBy id.ActorID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if doc.IsTombstoned() {
		return sentinel.ErrInvalidState
	}
	deletedAt := at
	by := deletedBy
	doc.DeletedAt = &deletedAt
	doc.DeletedBy = &by
	doc.DeletionReason = reason
	return nil
}

func (s *InMemory) FindLineage(_ context.Context, rootID id.DocumentID, includeTombstoned bool) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Document, 0)
	for _, doc := range s.docs {
		if doc.RootOrSelf() != rootID {
			continue
		}
		if doc.IsTombstoned() && !includeTombstoned {
			continue
		}
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// RunInTx serializes mutations and restores the pre-transaction state when fn
// fails, so a rejected audit append undoes the mutation it belongs to.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *InMemory) snapshot() map[id.DocumentID]*models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[id.DocumentID]*models.Document, len(s.docs))
	for key, doc := range s.docs {
		snap[key] = doc.Clone()
	}
	return snap
}

func (s *InMemory) restore(snap map[id.DocumentID]*models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = snap
}
