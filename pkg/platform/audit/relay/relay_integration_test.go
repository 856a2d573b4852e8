//go:build integration

package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "docvault/pkg/platform/audit"
	outbox "docvault/pkg/platform/audit/store/postgres"
	"docvault/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *outbox.Store
	producer *kgo.Client
	topic    string
	relay    *Relay
	ctx      context.Context
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.pg = containers.Mgr().GetPostgres(s.T())
	s.redpanda = containers.Mgr().GetRedpanda(s.T())
	s.store = outbox.New(s.pg.DB)
	s.ctx = context.Background()

	producer, err := kgo.NewClient(kgo.SeedBrokers(s.redpanda.Broker))
	s.Require().NoError(err)
	s.producer = producer

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.topic = "docvault.audit.test"
	s.relay = New(s.store, producer, s.topic, logger, WithBatchSize(10))
	s.Require().NoError(s.relay.EnsureTopic(s.ctx, 1, 1))
}

func (s *RelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx))
}

func (s *RelaySuite) appendEvent(entityID string) audit.Event {
	event := audit.Event{
		Timestamp:  time.Now().UTC(),
		ActorID:    uuid.NewString(),
		EventType:  audit.EventTypeAmend,
		EntityType: "Document",
		EntityID:   entityID,
		Action:     audit.ActionDocumentAmended,
		Reason:     "figures restated",
		Changes:    map[string]string{"version": "2"},
	}
	s.Require().NoError(s.store.Append(s.ctx, event))
	return event
}

func (s *RelaySuite) TestDrainPublishesAndMarks() {
	entityID := uuid.NewString()
	s.appendEvent(entityID)
	s.appendEvent(entityID)

	s.Require().NoError(s.relay.DrainOnce(s.ctx))

	s.Run("outbox has nothing pending left", func() {
		pending, err := s.store.ListPending(s.ctx, 10)
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("records arrive keyed by entity id", func() {
		consumer, err := kgo.NewClient(
			kgo.SeedBrokers(s.redpanda.Broker),
			kgo.ConsumeTopics(s.topic),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		)
		s.Require().NoError(err)
		defer consumer.Close()

		fetchCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
		defer cancel()

		records := make([]*kgo.Record, 0, 2)
		for len(records) < 2 {
			fetches := consumer.PollFetches(fetchCtx)
			s.Require().NoError(fetches.Err())
			fetches.EachRecord(func(record *kgo.Record) {
				records = append(records, record)
			})
		}

		for _, record := range records {
			s.Equal(entityID, string(record.Key))
			var body map[string]any
			s.Require().NoError(json.Unmarshal(record.Value, &body))
			s.Equal("amend", body["event_type"])
			s.Equal(entityID, body["entity_id"])
			s.Equal("document_amended", body["action"])
		}
	})
}

func (s *RelaySuite) TestDrainIsIdempotentOnEmptyOutbox() {
	s.Require().NoError(s.relay.DrainOnce(s.ctx))
	s.Require().NoError(s.relay.DrainOnce(s.ctx))
}

func (s *RelaySuite) TestPublishedEntriesStayQueryableByEntity() {
	entityID := uuid.NewString()
	s.appendEvent(entityID)
	s.Require().NoError(s.relay.DrainOnce(s.ctx))

	events, err := s.store.ListByEntity(s.ctx, entityID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventTypeAmend, events[0].EventType)
	s.Equal("figures restated", events[0].Reason)
}
