package memory

import (
	"context"
	"sync"

	audit "docvault/pkg/platform/audit"
)

// InMemoryStore keeps audit events in a slice. It doubles as the recorder
// used by service tests to assert exactly which events were emitted.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0)
	for _, event := range s.events {
		if event.EntityID == entityID {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every stored event in append order.
func (s *InMemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}
