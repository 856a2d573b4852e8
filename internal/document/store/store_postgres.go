package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"docvault/internal/document/models"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
	txcontext "docvault/pkg/platform/tx"
)

// uniqueViolation is the Postgres error code raised when the lineage unique
// index rejects a duplicate (root, version) pair.
const uniqueViolation = "23505"

// PostgresStore persists document records in PostgreSQL through database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const documentColumns = `
	id, root_id, version, status,
	title, description, document_type,
	file_reference, file_size, file_hash, mime_type,
	created_by, created_at, retention_date,
	supersession_reason,
	deleted_at, deleted_by, deletion_reason
`

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, insertArgs(doc)...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(docID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// SaveAtomic applies the change set inside one transaction. Supersede is a
// compare-and-swap on the row's status; the lineage unique index catches the
// symmetric race where two amendments insert the same version number. Either
// failure surfaces as sentinel.ErrConflict so callers can reload and retry.
func (s *PostgresStore) SaveAtomic(ctx context.Context, changes []Change) error {
	if tx, ok := txcontext.From(ctx); ok {
		return s.applyChanges(ctx, tx, changes)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if err := s.applyChanges(ctx, tx, changes); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *PostgresStore) applyChanges(ctx context.Context, tx *sql.Tx, changes []Change) error {
	for _, change := range changes {
		switch change.Op {
		case OpSupersede:
			res, err := tx.ExecContext(ctx, `
				UPDATE documents
				SET status = $1
				WHERE id = $2 AND status <> $1 AND deleted_at IS NULL
			`, string(models.StatusSuperseded), uuid.UUID(change.Doc.ID))
			if err != nil {
				return fmt.Errorf("supersede document: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("supersede document: %w", err)
			}
			if affected == 0 {
				return sentinel.ErrConflict
			}
		case OpInsert:
			query := `
				INSERT INTO documents (` + documentColumns + `)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			`
			if _, err := tx.ExecContext(ctx, query, insertArgs(change.Doc)...); err != nil {
				if isUniqueViolation(err) {
					return sentinel.ErrConflict
				}
				return fmt.Errorf("insert document version: %w", err)
			}
		}
	}
	return nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, docID id.DocumentID, deletedBy id.ActorID, reason string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE documents
		SET deleted_at = $1, deleted_by = $2, deletion_reason = $3
		WHERE id = $4 AND deleted_at IS NULL
	`, at, uuid.UUID(deletedBy), reason, uuid.UUID(docID))
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from an already-tombstoned one.
		if _, err := s.GetByID(ctx, docID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) FindLineage(ctx context.Context, rootID id.DocumentID, includeTombstoned bool) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE (id = $1 OR root_id = $1)
	`
	if !includeTombstoned {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY version ASC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(rootID))
	if err != nil {
		return nil, fmt.Errorf("find lineage: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// RunInTx opens a transaction, places it in context for downstream stores
// (including the audit outbox), and commits only when fn succeeds.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertArgs(doc *models.Document) []any {
	var rootID uuid.NullUUID
	if doc.RootID != nil {
		rootID = uuid.NullUUID{UUID: uuid.UUID(*doc.RootID), Valid: true}
	}
	var deletedBy uuid.NullUUID
	if doc.DeletedBy != nil {
		deletedBy = uuid.NullUUID{UUID: uuid.UUID(*doc.DeletedBy), Valid: true}
	}
	return []any{
		uuid.UUID(doc.ID),
		rootID,
		doc.Version,
		string(doc.Status),
		doc.Title,
		doc.Description,
		doc.DocumentType,
		doc.FileReference,
		doc.FileSize,
		doc.FileHash,
		doc.MimeType,
		uuid.UUID(doc.CreatedBy),
		doc.CreatedAt,
		nullTime(doc.RetentionDate),
		doc.SupersessionReason,
		nullTime(doc.DeletedAt),
		deletedBy,
		doc.DeletionReason,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc           models.Document
		docID         uuid.UUID
		rootID        uuid.NullUUID
		status        string
		createdBy     uuid.UUID
		retentionDate sql.NullTime
		deletedAt     sql.NullTime
		deletedBy     uuid.NullUUID
	)
	err := row.Scan(
		&docID,
		&rootID,
		&doc.Version,
		&status,
		&doc.Title,
		&doc.Description,
		&doc.DocumentType,
		&doc.FileReference,
		&doc.FileSize,
		&doc.FileHash,
		&doc.MimeType,
		&createdBy,
		&doc.CreatedAt,
		&retentionDate,
		&doc.SupersessionReason,
		&deletedAt,
		&deletedBy,
		&doc.DeletionReason,
	)
	if err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(docID)
	doc.Status = models.Status(status)
	doc.CreatedBy = id.ActorID(createdBy)
	if rootID.Valid {
		root := id.DocumentID(rootID.UUID)
		doc.RootID = &root
	}
	if retentionDate.Valid {
		t := retentionDate.Time
		doc.RetentionDate = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		doc.DeletedAt = &t
	}
	if deletedBy.Valid {
		by := id.ActorID(deletedBy.UUID)
		doc.DeletedBy = &by
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*models.Document, error) {
	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
