// Package cache provides a Redis-backed read-through cache for resolved
// lineage chains. The cache is strictly best-effort: failures degrade to
// store reads, never to wrong answers, and mutations invalidate the lineage
// key before the next history read.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"docvault/internal/document/models"
	id "docvault/pkg/domain"
)

const keyPrefix = "docvault:history:"

// defaultTTL bounds staleness for chains whose invalidation was missed
// (e.g. a crash between commit and invalidate).
const defaultTTL = 5 * time.Minute

// HistoryCache caches resolved chains keyed by lineage root.
type HistoryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New builds a cache over an existing Redis client.
func New(client *redis.Client, logger *slog.Logger) *HistoryCache {
	return &HistoryCache{client: client, ttl: defaultTTL, logger: logger}
}

func (c *HistoryCache) Get(ctx context.Context, rootID id.DocumentID) ([]*models.Document, bool) {
	body, err := c.client.Get(ctx, keyPrefix+rootID.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.DebugContext(ctx, "history cache read failed", "root_id", rootID.String(), "error", err)
		}
		return nil, false
	}
	var chain []*models.Document
	if err := json.Unmarshal(body, &chain); err != nil {
		c.logger.WarnContext(ctx, "history cache entry corrupt, dropping", "root_id", rootID.String(), "error", err)
		c.Invalidate(ctx, rootID)
		return nil, false
	}
	return chain, true
}

func (c *HistoryCache) Set(ctx context.Context, rootID id.DocumentID, chain []*models.Document) {
	body, err := json.Marshal(chain)
	if err != nil {
		c.logger.WarnContext(ctx, "history cache encode failed", "root_id", rootID.String(), "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+rootID.String(), body, c.ttl).Err(); err != nil {
		c.logger.DebugContext(ctx, "history cache write failed", "root_id", rootID.String(), "error", err)
	}
}

func (c *HistoryCache) Invalidate(ctx context.Context, rootID id.DocumentID) {
	if err := c.client.Del(ctx, keyPrefix+rootID.String()).Err(); err != nil {
		c.logger.WarnContext(ctx, "history cache invalidation failed", "root_id", rootID.String(), "error", err)
	}
}
