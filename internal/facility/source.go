// Package facility loads the hospital registry used by the locate worker and
// serves it as an immutable snapshot.
package facility

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"triage-workers/internal/common/config"
	"triage-workers/internal/common/logger"
	"triage-workers/internal/models"
)

// Source yields the facility list in registry order.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]models.Facility, error)
}

// Backends are the optional clients a configured source may need.
type Backends struct {
	DB            *sql.DB
	Elasticsearch *elasticsearch.Client
	Redis         redis.Cmdable
	Logger        logger.Logger
}

// BuildSource returns the source selected by cfg, wrapped in a Redis cache
// when cfg.CacheTTL is set.
func BuildSource(cfg config.RegistryConfig, b Backends) (Source, error) {
	var src Source
	switch cfg.Source {
	case config.RegistrySourceFile, "":
		src = NewFileSource(cfg.Path)
	case config.RegistrySourcePostgres:
		if b.DB == nil {
			return nil, fmt.Errorf("registry source %q needs a postgres connection", cfg.Source)
		}
		src = NewPostgresSource(b.DB, cfg.Table)
	case config.RegistrySourceElasticsearch:
		if b.Elasticsearch == nil {
			return nil, fmt.Errorf("registry source %q needs an elasticsearch client", cfg.Source)
		}
		src = NewElasticsearchSource(b.Elasticsearch, cfg.Index)
	default:
		return nil, fmt.Errorf("unknown registry source %q", cfg.Source)
	}

	if !cfg.CacheEnabled() {
		return src, nil
	}
	if b.Redis == nil {
		return nil, fmt.Errorf("registry cache needs a redis connection")
	}
	log := b.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return NewCachedSource(src, b.Redis, cfg.CacheKey, time.Duration(cfg.CacheTTL)*time.Second, log), nil
}
