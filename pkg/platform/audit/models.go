// Package audit defines the event contract every document mutation reports
// through. The core emits exactly one event per successful create, amend, or
// delete, and none for rejected operations. Emission failure fails the
// surrounding operation: a mutation that cannot be audited must not commit.
package audit

import (
	"context"
	"time"
)

// EventType classifies the mutation an event records.
type EventType string

const (
	EventTypeCreate EventType = "create"
	EventTypeAmend  EventType = "amend"
	EventTypeDelete EventType = "delete"
)

// Actions recorded on document events.
const (
	ActionDocumentCreated = "document_created"
	ActionDocumentAmended = "document_amended"
	ActionDocumentDeleted = "document_deleted"
)

// Event is emitted from domain logic to capture one mutation. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time
	ActorID    string
	EventType  EventType
	EntityType string
	EntityID   string
	Action     string
	Reason     string
	RequestID  string
	// Changes carries the mutation detail an examiner needs to reconstruct
	// the transition, e.g. old/new record ids and the version assigned.
	Changes map[string]string
}

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListByEntity returns events for one entity, oldest first.
	ListByEntity(ctx context.Context, entityID string) ([]Event, error)
}
