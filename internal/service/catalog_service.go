package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/booklog/booklog-server/internal/catalog"
	"github.com/booklog/booklog-server/internal/domain"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
)

// Catalog looks books up in the public catalog.
type Catalog interface {
	Search(ctx context.Context, query string) ([]domain.CatalogItem, error)
	GetByID(ctx context.Context, volumeID string) (*domain.CatalogItem, error)
}

// CatalogService exposes catalog lookups with domain errors.
type CatalogService struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(c Catalog, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CatalogService{catalog: c, logger: logger}
}

// Search returns up to catalog.MaxResults books.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domainerrors.Validation("search query is required")
	}
	items, err := s.catalog.Search(ctx, query)
	if err != nil {
		s.logger.Warn("catalog search failed", "query", query, "error", err)
		return nil, catalogError(err)
	}
	return items, nil
}

// Get returns one catalog volume.
func (s *CatalogService) Get(ctx context.Context, volumeID string) (*domain.CatalogItem, error) {
	item, err := s.catalog.GetByID(ctx, volumeID)
	if err != nil {
		return nil, catalogError(err)
	}
	return item, nil
}

// catalogError maps catalog failures onto domain errors. Transport and
// payload failures both read as an unavailable upstream.
func catalogError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return domainerrors.NotFound("book not found in catalog")
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, catalog.ErrDecode):
		return domainerrors.Unavailable("catalog returned an unreadable response", err)
	default:
		return domainerrors.Unavailable("catalog unavailable", err)
	}
}
