package facility

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"triage-workers/internal/common/logger"
	"triage-workers/internal/models"
)

// CachedSource keeps the last loaded facility list in Redis so a fleet of
// workers hits the backing store once per TTL. Cache failures are logged and
// never fail a load.
type CachedSource struct {
	inner  Source
	rdb    redis.Cmdable
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(inner Source, rdb redis.Cmdable, key string, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{inner: inner, rdb: rdb, key: key, ttl: ttl, logger: log}
}

func (c *CachedSource) Name() string { return c.inner.Name() + "+redis" }

func (c *CachedSource) Load(ctx context.Context) ([]models.Facility, error) {
	if cached, ok := c.get(ctx); ok {
		return cached, nil
	}

	facilities, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(facilities)
	if err == nil {
		err = c.rdb.Set(ctx, c.key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn("failed to cache facility registry", map[string]interface{}{
			"key":   c.key,
			"error": err,
		})
	}
	return facilities, nil
}

func (c *CachedSource) get(ctx context.Context) ([]models.Facility, bool) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("facility registry cache unavailable", map[string]interface{}{
				"key":   c.key,
				"error": err,
			})
		}
		return nil, false
	}

	var facilities []models.Facility
	if err := json.Unmarshal(raw, &facilities); err != nil {
		c.logger.Warn("discarding corrupt facility registry cache entry", map[string]interface{}{
			"key":   c.key,
			"error": err,
		})
		return nil, false
	}
	return facilities, true
}
