package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "docvault/pkg/platform/audit"
	txcontext "docvault/pkg/platform/tx"
)

// Store implements audit.Store using a transactional outbox. Events are
// written to the outbox table inside the caller's transaction and shipped to
// Kafka by the relay. Because the append rides the document transaction, a
// failed append rolls the whole mutation back.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure stored in the outbox and published to Kafka.
type payload struct {
	ID         string            `json:"id"`
	Timestamp  string            `json:"timestamp"`
	ActorID    string            `json:"actor_id,omitempty"`
	EventType  string            `json:"event_type"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Action     string            `json:"action"`
	Reason     string            `json:"reason,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Changes    map[string]string `json:"changes,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	body, err := json.Marshal(payload{
		ID:         eventID.String(),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		ActorID:    event.ActorID,
		EventType:  string(event.EventType),
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Action:     event.Action,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		Changes:    event.Changes,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, entity_type, entity_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		event.EntityType,
		event.EntityID,
		event.Action,
		body,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByEntity returns stored events for one entity, oldest first.
func (s *Store) ListByEntity(ctx context.Context, entityID string) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT payload FROM audit_outbox
		WHERE entity_id = $1
		ORDER BY created_at ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]audit.Event, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event, err := decode(body)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// PendingEntry is one unpublished outbox row handed to the relay.
type PendingEntry struct {
	ID       uuid.UUID
	EntityID string
	Payload  []byte
}

// ListPending returns up to limit unpublished entries, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]PendingEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}
	defer rows.Close()

	entries := make([]PendingEntry, 0)
	for rows.Next() {
		var entry PendingEntry
		if err := rows.Scan(&entry.ID, &entry.EntityID, &entry.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps entries as shipped so the relay never resends them.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2::uuid[])
	`, at, pq.Array(idsToStrings(ids)))
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}

func decode(body []byte) (audit.Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("decode audit timestamp: %w", err)
	}
	return audit.Event{
		Timestamp:  ts,
		ActorID:    p.ActorID,
		EventType:  audit.EventType(p.EventType),
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		Action:     p.Action,
		Reason:     p.Reason,
		RequestID:  p.RequestID,
		Changes:    p.Changes,
	}, nil
}

func idsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
