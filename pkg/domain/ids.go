// Package domain defines typed identifiers shared across modules.
//
// IDs are distinct named types over uuid.UUID so a DocumentID can never be
// passed where an ActorID is expected. Parse functions enforce the trust
// boundary rule: IDs must be valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "docvault/pkg/domain-errors"
)

// DocumentID identifies one immutable document record (one version, not a
// lineage).
type DocumentID uuid.UUID

// ActorID identifies the principal performing an operation.
type ActorID uuid.UUID

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

func (d DocumentID) String() string { return uuid.UUID(d).String() }
func (d DocumentID) IsNil() bool    { return uuid.UUID(d) == uuid.Nil }

func (a ActorID) String() string { return uuid.UUID(a).String() }
func (a ActorID) IsNil() bool    { return uuid.UUID(a) == uuid.Nil }

// ParseDocumentID parses and validates a document ID from its string form.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

// ParseActorID parses and validates an actor ID from its string form.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeValidation, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}
