// Package handler exposes the document lifecycle over HTTP. It is a thin
// translation layer: decode, delegate, encode. All policy lives in the
// service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docvault/internal/document/models"
	"docvault/internal/platform/metrics"
	"docvault/internal/platform/middleware"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/httputil"
	"docvault/pkg/requestcontext"
)

// Service defines the interface for document operations.
type Service interface {
	Create(ctx context.Context, content models.Content, actorID id.ActorID) (*models.Document, error)
	Amend(ctx context.Context, originalID id.DocumentID, content models.Content, supersessionReason string, actorID id.ActorID) (*models.Document, error)
	Update(ctx context.Context, docID id.DocumentID, content models.Content) error
	Delete(ctx context.Context, docID id.DocumentID, reason string, actorID id.ActorID) error
	GetHistory(ctx context.Context, docID id.DocumentID) ([]*models.Document, error)
	ListActive(ctx context.Context) ([]*models.Document, error)
}

// Handler handles document endpoints.
type Handler struct {
	logger       *slog.Logger
	documents    Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new document Handler.
func New(
	documents Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		documents:    documents,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the document routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	documentRouter := chi.NewRouter()
	documentRouter.Use(middleware.Recovery(h.logger))
	documentRouter.Use(middleware.RequestID)
	documentRouter.Use(middleware.Logger(h.logger))
	documentRouter.Use(middleware.Timeout(30 * time.Second))
	documentRouter.Use(middleware.ContentTypeJSON)
	if h.metrics != nil {
		documentRouter.Use(middleware.Latency(h.metrics))
	}
	documentRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	documentRouter.Post("/documents", h.handleCreate)
	documentRouter.Get("/documents", h.handleListActive)
	documentRouter.Post("/documents/{id}/amendments", h.handleAmend)
	documentRouter.Put("/documents/{id}", h.handleUpdate)
	documentRouter.Delete("/documents/{id}", h.handleDelete)
	documentRouter.Get("/documents/{id}/history", h.handleHistory)

	r.Mount("/", documentRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.documents.Create(ctx, req.content(), requestcontext.ActorID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "create document")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) handleAmend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req AmendDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	amendment, err := h.documents.Amend(ctx, docID, req.content(), req.SupersessionReason, requestcontext.ActorID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "amend document")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toDocumentResponse(amendment))
}

// handleUpdate is the immutability policy made visible: the route exists so
// clients get an explicit 403 with guidance instead of a generic 405.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.documents.Update(ctx, docID, req.content()); err != nil {
		httputil.WriteError(w, err)
		return
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req DeleteDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.documents.Delete(ctx, docID, req.Reason, requestcontext.ActorID(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	chain, err := h.documents.GetHistory(ctx, docID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "load document history")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"history": toDocumentResponses(chain),
	})
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.documents.ListActive(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list documents")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"documents": toDocumentResponses(docs),
	})
}

// writeServiceError logs internal failures and hands the coded error to the
// shared envelope writer.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, action string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
