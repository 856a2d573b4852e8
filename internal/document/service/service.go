// Package service orchestrates the document write-once lifecycle: create,
// amend, soft delete, and history. It is the only sanctioned mutation path;
// direct updates are refused with a policy error, not silently applied.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docvault/internal/document/lineage"
	"docvault/internal/document/metrics"
	"docvault/internal/document/models"
	"docvault/internal/document/retention"
	"docvault/internal/document/store"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/audit"
	"docvault/pkg/platform/sentinel"
	"docvault/pkg/requestcontext"
)

const entityTypeDocument = "Document"

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	ListActive(ctx context.Context) ([]*models.Document, error)
	SaveAtomic(ctx context.Context, changes []store.Change) error
	SoftDelete(ctx context.Context, docID id.DocumentID, deletedBy id.ActorID, reason string, at time.Time) error
	FindLineage(ctx context.Context, rootID id.DocumentID, includeTombstoned bool) ([]*models.Document, error)
}

// Atomic is the transactional boundary every mutation runs inside.
type Atomic interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher records mutations. Emit is called inside the mutation
// transaction: if it fails, the mutation rolls back, so no change is ever
// unaudited.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service implements the document core operations.
type Service struct {
	store    Store
	atomic   Atomic
	auditor  AuditPublisher
	guard    *retention.Guard
	resolver *lineage.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New wires the document service. cache may be nil to disable history
// caching; metrics may be nil in tests.
func New(
	st Store,
	atomic Atomic,
	auditor AuditPublisher,
	guard *retention.Guard,
	cache lineage.HistoryCache,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    st,
		atomic:   atomic,
		auditor:  auditor,
		guard:    guard,
		resolver: lineage.NewResolver(st, cache),
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("docvault/internal/document/service"),
	}
}

// Create persists a brand-new root record at version 1.
func (s *Service) Create(ctx context.Context, content models.Content, actorID id.ActorID) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Create")
	defer span.End()

	if err := validateContent(content); err != nil {
		return nil, err
	}
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "actor id is required")
	}

	now := requestcontext.Now(ctx)
	doc := &models.Document{
		ID:            id.NewDocumentID(),
		Version:       1,
		Status:        models.StatusActive,
		Title:         content.Title,
		Description:   content.Description,
		DocumentType:  content.DocumentType,
		FileReference: content.FileReference,
		FileSize:      content.FileSize,
		FileHash:      content.FileHash,
		MimeType:      content.MimeType,
		CreatedBy:     actorID,
		CreatedAt:     now,
		RetentionDate: content.RetentionDate,
	}
	span.SetAttributes(attribute.String("document.id", doc.ID.String()))

	err := s.atomic.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, doc); err != nil {
			return translateStoreErr(err)
		}
		return s.auditor.Emit(ctx, audit.Event{
			Timestamp:  now,
			ActorID:    actorID.String(),
			EventType:  audit.EventTypeCreate,
			EntityType: entityTypeDocument,
			EntityID:   doc.ID.String(),
			Action:     audit.ActionDocumentCreated,
			RequestID:  requestcontext.RequestID(ctx),
			Changes: map[string]string{
				"version":       "1",
				"title":         doc.Title,
				"document_type": doc.DocumentType,
				"file_hash":     doc.FileHash,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "document created",
		"document_id", doc.ID.String(),
		"document_type", doc.DocumentType,
	)
	return doc, nil
}

// Amend supersedes the original record and creates the next version as one
// atomic unit. The original's content is untouched; only its status flips.
// Exactly one of two concurrent amendments against the same original can
// succeed; the loser gets a conflict and should reload the current version.
func (s *Service) Amend(ctx context.Context, originalID id.DocumentID, content models.Content, supersessionReason string, actorID id.ActorID) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Amend",
		trace.WithAttributes(attribute.String("document.id", originalID.String())))
	defer span.End()
	start := time.Now()

	if err := s.guard.ValidateSupersessionReason(supersessionReason); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "actor id is required")
	}

	original, err := s.store.GetByID(ctx, originalID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if original.IsTombstoned() {
		return nil, dErrors.New(dErrors.CodeConflict, "document has been deleted and can no longer be amended")
	}
	if original.Status == models.StatusSuperseded {
		return nil, dErrors.New(dErrors.CodeConflict, "document already superseded; reload the current version and retry")
	}

	now := requestcontext.Now(ctx)
	rootID := lineage.ResolveRoot(original)
	amendment := &models.Document{
		ID:                 id.NewDocumentID(),
		RootID:             &rootID,
		Version:            original.Version + 1,
		Status:             models.StatusActive,
		Title:              content.Title,
		Description:        content.Description,
		DocumentType:       content.DocumentType,
		FileReference:      content.FileReference,
		FileSize:           content.FileSize,
		FileHash:           content.FileHash,
		MimeType:           content.MimeType,
		CreatedBy:          actorID,
		CreatedAt:          now,
		RetentionDate:      content.RetentionDate,
		SupersessionReason: supersessionReason,
	}

	err = s.atomic.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SaveAtomic(ctx, []store.Change{
			store.Supersede(original),
			store.Insert(amendment),
		}); err != nil {
			return translateStoreErr(err)
		}
		return s.auditor.Emit(ctx, audit.Event{
			Timestamp:  now,
			ActorID:    actorID.String(),
			EventType:  audit.EventTypeAmend,
			EntityType: entityTypeDocument,
			EntityID:   amendment.ID.String(),
			Action:     audit.ActionDocumentAmended,
			Reason:     supersessionReason,
			RequestID:  requestcontext.RequestID(ctx),
			Changes: map[string]string{
				"superseded_id": original.ID.String(),
				"new_id":        amendment.ID.String(),
				"version":       strconv.Itoa(amendment.Version),
				"reason":        supersessionReason,
			},
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
			s.metrics.AmendConflicts.Inc()
		}
		return nil, err
	}

	s.resolver.Invalidate(ctx, rootID)
	if s.metrics != nil {
		s.metrics.DocumentsAmended.Inc()
		s.metrics.ObserveAmend(start)
	}
	s.logger.InfoContext(ctx, "document amended",
		"superseded_id", original.ID.String(),
		"new_id", amendment.ID.String(),
		"version", amendment.Version,
	)
	return amendment, nil
}

// Delete tombstones a record with a mandatory justification. The row is
// never erased and keeps appearing in lineage history.
func (s *Service) Delete(ctx context.Context, docID id.DocumentID, reason string, actorID id.ActorID) error {
	ctx, span := s.tracer.Start(ctx, "document.Delete",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	if err := s.guard.ValidateDeletionReason(reason); err != nil {
		return err
	}
	if actorID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "actor id is required")
	}

	doc, err := s.store.GetByID(ctx, docID)
	if err != nil {
		return translateStoreErr(err)
	}

	now := requestcontext.Now(ctx)
	err = s.atomic.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SoftDelete(ctx, docID, actorID, reason, now); err != nil {
			return translateStoreErr(err)
		}
		return s.auditor.Emit(ctx, audit.Event{
			Timestamp:  now,
			ActorID:    actorID.String(),
			EventType:  audit.EventTypeDelete,
			EntityType: entityTypeDocument,
			EntityID:   docID.String(),
			Action:     audit.ActionDocumentDeleted,
			Reason:     reason,
			RequestID:  requestcontext.RequestID(ctx),
			Changes: map[string]string{
				"deleted_at": now.Format(time.RFC3339Nano),
				"reason":     reason,
			},
		})
	})
	if err != nil {
		return err
	}

	s.resolver.Invalidate(ctx, doc.RootOrSelf())
	if s.metrics != nil {
		s.metrics.DocumentsDeleted.Inc()
	}
	s.logger.InfoContext(ctx, "document deleted",
		"document_id", docID.String(),
		"deleted_by", actorID.String(),
	)
	return nil
}

// GetHistory returns the full ordered version chain for any record in a
// lineage, tombstoned rows included.
func (s *Service) GetHistory(ctx context.Context, docID id.DocumentID) ([]*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.GetHistory",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()
	start := time.Now()

	chain, err := s.resolver.History(ctx, docID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveHistory(start)
	}
	return chain, nil
}

// ListActive returns current, non-tombstoned records, newest created first.
func (s *Service) ListActive(ctx context.Context) ([]*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.ListActive")
	defer span.End()

	docs, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return docs, nil
}

// Update exists to make the denial explicit: document records are immutable
// and in-place mutation always fails, before any store access. Corrections
// go through Amend.
func (s *Service) Update(ctx context.Context, docID id.DocumentID, _ models.Content) error {
	_, span := s.tracer.Start(ctx, "document.Update",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	if s.metrics != nil {
		s.metrics.UpdatesRejected.Inc()
	}
	return dErrors.New(dErrors.CodeForbidden,
		"documents are immutable once filed; create a superseding version via amend")
}

func validateContent(content models.Content) error {
	switch {
	case content.Title == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case content.DocumentType == "":
		return dErrors.New(dErrors.CodeValidation, "document type is required")
	case content.FileReference == "":
		return dErrors.New(dErrors.CodeValidation, "file reference is required")
	}
	return nil
}

// translateStoreErr maps store sentinels onto coded domain errors.
func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "document was changed concurrently; reload the current version and retry")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "document is already deleted")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "document store failure")
	}
}
