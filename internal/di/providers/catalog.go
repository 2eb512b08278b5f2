package providers

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"

	"github.com/booklog/booklog-server/internal/catalog"
	"github.com/booklog/booklog-server/internal/config"
	"github.com/booklog/booklog-server/internal/cover"
	"github.com/booklog/booklog-server/internal/logger"
)

// CatalogHandle wraps the Google Books client and its optional Redis cache.
type CatalogHandle struct {
	*catalog.Client
	cache *catalog.RedisCache
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	if h.cache == nil {
		return nil
	}
	return h.cache.Close()
}

// ProvideCatalog provides the Google Books client. Responses are cached in
// Redis when an address is configured.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := catalog.Options{
		APIKey:        cfg.Catalog.APIKey,
		BaseURL:       cfg.Catalog.BaseURL,
		RatePerMinute: cfg.Catalog.RatePerMinute,
		Timeout:       cfg.Catalog.RequestTimeout,
		CacheTTL:      cfg.Catalog.CacheTTL,
	}

	var cache *catalog.RedisCache
	if cfg.Catalog.RedisAddr != "" {
		cache = catalog.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.Catalog.RedisAddr}))
		opts.Cache = cache
		log.Info("Catalog cache enabled", "redis_addr", cfg.Catalog.RedisAddr, "ttl", cfg.Catalog.CacheTTL)
	}

	client, err := catalog.New(context.Background(), opts, log.Logger)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}

	log.Info("Catalog client ready",
		"authenticated", cfg.Catalog.APIKey != "",
		"rate_per_minute", cfg.Catalog.RatePerMinute,
	)

	return &CatalogHandle{Client: client, cache: cache}, nil
}

// ProvideCoverHasher provides the cover BlurHash generator.
func ProvideCoverHasher(i do.Injector) (*cover.Hasher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return cover.NewHasher(&http.Client{Timeout: cfg.Catalog.RequestTimeout}, log.Logger), nil
}
