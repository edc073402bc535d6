package dedup

import (
	"context"
	"fmt"
	"time"

	"curator/config"
)

// ResultCache stores expensive LLM outputs (summaries, rank responses)
// keyed by item id, so re-runs within the TTL window skip the remote call.
type ResultCache struct {
	kv  KV
	ttl time.Duration
}

// NewResultCache wraps a key-value backend with the default TTL.
func NewResultCache(kv KV) *ResultCache {
	return &ResultCache{kv: kv, ttl: config.CacheTTL}
}

// GetSummary returns the cached summary for an item, if any.
func (c *ResultCache) GetSummary(ctx context.Context, scope Scope, id string) (string, bool, error) {
	return c.kv.Get(ctx, cacheKey("summary", scope, id))
}

// SetSummary caches an item's summary for the configured TTL.
func (c *ResultCache) SetSummary(ctx context.Context, scope Scope, id, summary string) error {
	return c.kv.Set(ctx, cacheKey("summary", scope, id), summary, c.ttl)
}

// GetRanking returns the cached raw rank response for an item, if any.
func (c *ResultCache) GetRanking(ctx context.Context, scope Scope, id string) (string, bool, error) {
	return c.kv.Get(ctx, cacheKey("rank", scope, id))
}

// SetRanking caches an item's raw rank response for the configured TTL.
func (c *ResultCache) SetRanking(ctx context.Context, scope Scope, id, response string) error {
	return c.kv.Set(ctx, cacheKey("rank", scope, id), response, c.ttl)
}

func cacheKey(kind string, scope Scope, id string) string {
	return fmt.Sprintf("%s:%s:%s", kind, scope, id)
}
