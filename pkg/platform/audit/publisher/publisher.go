package publisher

import (
	"context"
	"time"

	audit "docvault/pkg/platform/audit"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
//
// Emit is synchronous: the caller's transaction must not commit until the
// event is stored, so the store error propagates as-is.
type Publisher struct {
	store audit.Store
}

func New(store audit.Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, entityID string) ([]audit.Event, error) {
	return p.store.ListByEntity(ctx, entityID)
}
