package models

import (
	"time"

	id "docvault/pkg/domain"
)

// Status tracks where a document record sits in its lineage.
type Status string

const (
	// StatusActive marks the current version of a lineage.
	StatusActive Status = "active"
	// StatusSuperseded marks a version that has been replaced by a newer one.
	StatusSuperseded Status = "superseded"
	// StatusArchived is reserved for retention tooling; no core operation
	// sets it today.
	StatusArchived Status = "archived"
)

// Document is one immutable version record. Records are write-once: after
// creation only Status and the tombstone fields may change, and corrections
// happen by creating a superseding version that references this record's
// root. A tombstoned record stays in the store forever so the full chain
// remains reconstructable for examiners.
type Document struct {
	ID id.DocumentID

	// RootID points at the first version of this document's lineage and is
	// nil on the root itself.
	RootID *id.DocumentID

	// Version starts at 1 and is contiguous within one lineage.
	Version int

	Status Status

	// Content metadata, immutable after creation.
	Title         string
	Description   string
	DocumentType  string
	FileReference string
	FileSize      int64
	FileHash      string
	MimeType      string

	CreatedBy id.ActorID
	CreatedAt time.Time

	// RetentionDate is an optional policy-driven date fixed at creation.
	RetentionDate *time.Time

	// SupersessionReason is set only on records that supersede another.
	SupersessionReason string

	// Tombstone fields. DeletedAt is the marker: a record with DeletedAt set
	// is excluded from active listings but always included in lineage
	// history.
	DeletedAt      *time.Time
	DeletedBy      *id.ActorID
	DeletionReason string
}

// RootOrSelf resolves the lineage root for this record.
func (d *Document) RootOrSelf() id.DocumentID {
	if d.RootID != nil {
		return *d.RootID
	}
	return d.ID
}

// IsRoot reports whether this record is the first version of its lineage.
func (d *Document) IsRoot() bool { return d.RootID == nil }

// IsTombstoned reports whether this record has been soft-deleted.
func (d *Document) IsTombstoned() bool { return d.DeletedAt != nil }

// Clone returns a deep copy so stores can hand out records without sharing
// pointers with callers.
func (d *Document) Clone() *Document {
	out := *d
	if d.RootID != nil {
		rootID := *d.RootID
		out.RootID = &rootID
	}
	if d.RetentionDate != nil {
		t := *d.RetentionDate
		out.RetentionDate = &t
	}
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		out.DeletedAt = &t
	}
	if d.DeletedBy != nil {
		by := *d.DeletedBy
		out.DeletedBy = &by
	}
	return &out
}

// Content carries the caller-supplied metadata for a new record, shared by
// create and amend.
type Content struct {
	Title         string
	Description   string
	DocumentType  string
	FileReference string
	FileSize      int64
	FileHash      string
	MimeType      string
	RetentionDate *time.Time
}
