//go:build integration

package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/document/models"
	id "docvault/pkg/domain"
	"docvault/pkg/testutil/containers"
)

type HistoryCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *HistoryCache
	ctx   context.Context
}

func TestHistoryCacheSuite(t *testing.T) {
	suite.Run(t, new(HistoryCacheSuite))
}

func (s *HistoryCacheSuite) SetupSuite() {
	s.redis = containers.Mgr().GetRedis(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cache = New(s.redis.Client, logger)
	s.ctx = context.Background()
}

func (s *HistoryCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *HistoryCacheSuite) chain(rootID id.DocumentID) []*models.Document {
	v2ID := id.NewDocumentID()
	return []*models.Document{
		{
			ID:            rootID,
			Version:       1,
			Status:        models.StatusSuperseded,
			Title:         "annual review",
			DocumentType:  "report",
			FileReference: "s3://vault/review-v1.pdf",
			CreatedBy:     id.ActorID(uuid.New()),
			CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
		},
		{
			ID:                 v2ID,
			RootID:             &rootID,
			Version:            2,
			Status:             models.StatusActive,
			Title:              "annual review",
			DocumentType:       "report",
			FileReference:      "s3://vault/review-v2.pdf",
			CreatedBy:          id.ActorID(uuid.New()),
			CreatedAt:          time.Now().UTC().Truncate(time.Millisecond),
			SupersessionReason: "figures restated",
		},
	}
}

func (s *HistoryCacheSuite) TestSetGetRoundtrip() {
	rootID := id.NewDocumentID()
	chain := s.chain(rootID)

	s.cache.Set(s.ctx, rootID, chain)

	got, ok := s.cache.Get(s.ctx, rootID)
	s.Require().True(ok)
	s.Require().Len(got, 2)
	s.Equal(chain[0].ID, got[0].ID)
	s.Equal(chain[1].Version, got[1].Version)
	s.Require().NotNil(got[1].RootID)
	s.Equal(rootID, *got[1].RootID)
}

func (s *HistoryCacheSuite) TestMissForUnknownRoot() {
	_, ok := s.cache.Get(s.ctx, id.NewDocumentID())
	s.False(ok)
}

func (s *HistoryCacheSuite) TestInvalidate() {
	rootID := id.NewDocumentID()
	s.cache.Set(s.ctx, rootID, s.chain(rootID))

	s.cache.Invalidate(s.ctx, rootID)

	_, ok := s.cache.Get(s.ctx, rootID)
	s.False(ok)
}

func (s *HistoryCacheSuite) TestCorruptEntryBecomesMiss() {
	rootID := id.NewDocumentID()
	key := "docvault:history:" + rootID.String()
	s.Require().NoError(s.redis.Client.Set(s.ctx, key, "{not json", time.Minute).Err())

	_, ok := s.cache.Get(s.ctx, rootID)
	s.False(ok)

	// The corrupt entry is dropped so it cannot keep poisoning reads.
	exists, err := s.redis.Client.Exists(s.ctx, key).Result()
	s.Require().NoError(err)
	s.Equal(int64(0), exists)
}

func (s *HistoryCacheSuite) TestEntriesCarryTTL() {
	rootID := id.NewDocumentID()
	s.cache.Set(s.ctx, rootID, s.chain(rootID))

	ttl, err := s.redis.Client.TTL(s.ctx, "docvault:history:"+rootID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}
