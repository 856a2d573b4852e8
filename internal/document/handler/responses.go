package handler

import (
	"time"

	"docvault/internal/document/models"
)

// DocumentResponse is the wire form of a document record. Tombstone fields
// are present only on deleted records.
type DocumentResponse struct {
	ID                 string     `json:"id"`
	RootID             *string    `json:"root_id,omitempty"`
	Version            int        `json:"version"`
	Status             string     `json:"status"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	DocumentType       string     `json:"document_type"`
	FileReference      string     `json:"file_reference"`
	FileSize           int64      `json:"file_size,omitempty"`
	FileHash           string     `json:"file_hash,omitempty"`
	MimeType           string     `json:"mime_type,omitempty"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	RetentionDate      *time.Time `json:"retention_date,omitempty"`
	SupersessionReason string     `json:"supersession_reason,omitempty"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
	DeletedBy          *string    `json:"deleted_by,omitempty"`
	DeletionReason     string     `json:"deletion_reason,omitempty"`
}

func toDocumentResponse(doc *models.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                 doc.ID.String(),
		Version:            doc.Version,
		Status:             string(doc.Status),
		Title:              doc.Title,
		Description:        doc.Description,
		DocumentType:       doc.DocumentType,
		FileReference:      doc.FileReference,
		FileSize:           doc.FileSize,
		FileHash:           doc.FileHash,
		MimeType:           doc.MimeType,
		CreatedBy:          doc.CreatedBy.String(),
		CreatedAt:          doc.CreatedAt,
		RetentionDate:      doc.RetentionDate,
		SupersessionReason: doc.SupersessionReason,
		DeletedAt:          doc.DeletedAt,
		DeletionReason:     doc.DeletionReason,
	}
	if doc.RootID != nil {
		rootID := doc.RootID.String()
		resp.RootID = &rootID
	}
	if doc.DeletedBy != nil {
		deletedBy := doc.DeletedBy.String()
		resp.DeletedBy = &deletedBy
	}
	return resp
}

func toDocumentResponses(docs []*models.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	return out
}
