package handler

import (
	"time"

	"docvault/internal/document/models"
)

// CreateDocumentRequest is the payload for filing a new document record.
type CreateDocumentRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	DocumentType  string     `json:"document_type"`
	FileReference string     `json:"file_reference"`
	FileSize      int64      `json:"file_size,omitempty"`
	FileHash      string     `json:"file_hash,omitempty"`
	MimeType      string     `json:"mime_type,omitempty"`
	RetentionDate *time.Time `json:"retention_date,omitempty"`
}

func (r CreateDocumentRequest) content() models.Content {
	return models.Content{
		Title:         r.Title,
		Description:   r.Description,
		DocumentType:  r.DocumentType,
		FileReference: r.FileReference,
		FileSize:      r.FileSize,
		FileHash:      r.FileHash,
		MimeType:      r.MimeType,
		RetentionDate: r.RetentionDate,
	}
}

// AmendDocumentRequest carries the replacement content plus the mandatory
// supersession reason.
type AmendDocumentRequest struct {
	CreateDocumentRequest
	SupersessionReason string `json:"supersession_reason"`
}

// DeleteDocumentRequest carries the mandatory deletion justification.
type DeleteDocumentRequest struct {
	Reason string `json:"reason"`
}
