// Package store persists document version records.
//
// Two implementations exist: InMemory for tests and single-process use, and
// PostgresStore for durable deployments. Both enforce the same write-once
// rules: rows are inserted, status-flipped, or tombstoned, never rewritten.
// Store methods return pkg/platform/sentinel errors; the service layer
// translates them into coded domain errors.
package store

import (
	"context"
	"time"

	"docvault/internal/document/models"
	id "docvault/pkg/domain"
)

// ChangeOp says how one record in a change set is applied.
type ChangeOp int

const (
	// OpInsert adds a brand-new version row.
	OpInsert ChangeOp = iota
	// OpSupersede flips an existing row's status to superseded. The apply is
	// a compare-and-swap: it fails with sentinel.ErrConflict when the row is
	// no longer the current version.
	OpSupersede
)

// Change is one record mutation within an atomic batch.
type Change struct {
	Op  ChangeOp
	Doc *models.Document
}

// Supersede builds the change that retires an existing record.
func Supersede(doc *models.Document) Change { return Change{Op: OpSupersede, Doc: doc} }

// Insert builds the change that adds a new version record.
func Insert(doc *models.Document) Change { return Change{Op: OpInsert, Doc: doc} }

// Store is the persistence contract for document records.
type Store interface {
	// Create persists a brand-new root record.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID returns the record with the given id, tombstoned or not.
	// Returns sentinel.ErrNotFound when no such record exists.
	GetByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)

	// ListActive returns non-tombstoned records with active status, newest
	// created first.
	ListActive(ctx context.Context) ([]*models.Document, error)

	// SaveAtomic applies a change set as a single unit: either every change
	// lands or none do. A lost compare-and-swap or a duplicate version in a
	// lineage returns sentinel.ErrConflict.
	SaveAtomic(ctx context.Context, changes []Change) error

	// SoftDelete tombstones a record in place. The row is never removed.
	// Returns sentinel.ErrInvalidState when the record is already
	// tombstoned.
	SoftDelete(ctx context.Context, docID id.DocumentID, deletedBy id.ActorID, reason string, at time.Time) error

	// FindLineage returns every record whose id or root id equals rootID,
	// ordered by version ascending. Tombstoned rows are included only when
	// includeTombstoned is set.
	FindLineage(ctx context.Context, rootID id.DocumentID, includeTombstoned bool) ([]*models.Document, error)
}

// Atomic is the transactional boundary mutations run inside. Postgres wraps
// fn in a database transaction carried through context; the in-memory store
// serializes transactions and rolls back from a snapshot. The audit outbox
// rides the same boundary, so an audit append failure aborts the mutation.
type Atomic interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
