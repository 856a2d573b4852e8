// Package relay ships audit events from the transactional outbox to Kafka.
//
// The document core commits events into the outbox inside the mutation
// transaction; the relay drains them asynchronously, so a Kafka outage never
// blocks or loses a mutation's audit trail.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	outbox "docvault/pkg/platform/audit/store/postgres"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Relay polls the outbox and produces pending entries to a Kafka topic,
// keyed by entity id so one document's trail stays ordered within a
// partition.
type Relay struct {
	store        *outbox.Store
	client       *kgo.Client
	topic        string
	logger       *slog.Logger
	batchSize    int
	pollInterval time.Duration
}

// Option configures a Relay.
type Option func(*Relay)

// WithBatchSize caps how many outbox entries one poll drains.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

// WithPollInterval sets how often the outbox is polled.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) { r.pollInterval = d }
}

// New creates a relay producing to the given topic.
func New(store *outbox.Store, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:        store,
		client:       client,
		topic:        topic,
		logger:       logger,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (r *Relay) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(r.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicas, nil, r.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic: %w", resp.Err)
	}
	return nil
}

// Run polls the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				// Kafka hiccups are retried on the next tick; entries stay
				// pending until MarkPublished succeeds.
				r.logger.ErrorContext(ctx, "audit relay drain failed", "error", err)
			}
		}
	}
}

// DrainOnce ships one batch of pending entries and marks them published.
func (r *Relay) DrainOnce(ctx context.Context) error {
	entries, err := r.store.ListPending(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(entry.EntityID),
			Value: entry.Payload,
		})
	}
	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	if err := r.store.MarkPublished(ctx, ids, time.Now()); err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "audit relay drained batch", "count", len(entries))
	return nil
}
