// Package catalog looks books up in the Google Books catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
	books "google.golang.org/api/books/v1"
	"google.golang.org/api/option"

	"github.com/booklog/booklog-server/internal/domain"
)

const (
	// MaxResults is the page size of Search.
	MaxResults = 20

	defaultRatePerMinute = 60
	defaultTimeout       = 30 * time.Second
	defaultCacheTTL      = 6 * time.Hour
)

// Options configures a Client.
type Options struct {
	APIKey        string        // optional; unauthenticated requests have a lower quota
	BaseURL       string        // empty uses the public endpoint
	RatePerMinute int           // outbound request budget
	Timeout       time.Duration // per request
	HTTPClient    *http.Client  // overrides the default transport; the API key is then not sent
	Cache         Cache         // optional response cache
	CacheTTL      time.Duration
}

// Client provides access to the Google Books API.
type Client struct {
	svc         *books.Service
	rateLimiter *rate.Limiter
	lookups     singleflight.Group
	cache       Cache
	cacheTTL    time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// New creates a catalog client.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = defaultRatePerMinute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	var clientOpts []option.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	default:
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}

	svc, err := books.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create books service: %w", err)
	}

	return &Client{
		svc:         svc,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 5),
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		timeout:     opts.Timeout,
		logger:      logger,
	}, nil
}

// wait blocks until rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}

// Search returns up to MaxResults volumes matching query. A query that is
// an ISBN is searched as isbn:<ISBN-13>.
func (c *Client) Search(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	q := searchQuery(query)
	if q == "" {
		return []domain.CatalogItem{}, nil
	}

	cacheKey := "catalog:search:" + strings.ToLower(q)
	var cached []domain.CatalogItem
	if c.fromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, &Error{Op: "search", Arg: q, Err: fmt.Errorf("%w: rate limit: %w", ErrNetwork, err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("searching catalog", "query", q)
	resp, err := c.svc.Volumes.List(q).MaxResults(MaxResults).Context(reqCtx).Do()
	if err != nil {
		return nil, classify("search", q, err)
	}

	items := make([]domain.CatalogItem, 0, len(resp.Items))
	for _, v := range resp.Items {
		if v == nil || v.Id == "" {
			continue
		}
		items = append(items, toItem(v))
	}

	c.logger.Debug("catalog search results", "query", q, "count", len(items))
	c.toCache(ctx, cacheKey, items)
	return items, nil
}

// GetByID looks a volume up. Concurrent lookups of the same id share one request.
func (c *Client) GetByID(ctx context.Context, volumeID string) (*domain.CatalogItem, error) {
	volumeID = strings.TrimSpace(volumeID)
	if volumeID == "" {
		return nil, &Error{Op: "get", Arg: volumeID, Err: ErrNotFound}
	}

	cacheKey := "catalog:volume:" + volumeID
	var cached domain.CatalogItem
	if c.fromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	v, err, shared := c.lookups.Do(volumeID, func() (any, error) {
		if err := c.wait(ctx); err != nil {
			return nil, &Error{Op: "get", Arg: volumeID, Err: fmt.Errorf("%w: rate limit: %w", ErrNetwork, err)}
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		vol, err := c.svc.Volumes.Get(volumeID).Context(reqCtx).Do()
		if err != nil {
			return nil, classify("get", volumeID, err)
		}
		if vol == nil || vol.Id == "" {
			return nil, &Error{Op: "get", Arg: volumeID, Err: ErrNotFound}
		}

		item := toItem(vol)
		c.toCache(ctx, cacheKey, item)
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("catalog lookup shared", "volume_id", volumeID)
	}

	item := v.(domain.CatalogItem)
	return &item, nil
}

func (c *Client) fromCache(ctx context.Context, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("catalog cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Client) toCache(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
