package api

import (
	"github.com/booklog/booklog-server/internal/service"
)

// IndexStatus reports on the shelf search index for health checks.
type IndexStatus interface {
	DocumentCount() (uint64, error)
}

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth       *service.AuthService
	User       *service.UserService
	Catalog    *service.CatalogService
	Library    *service.LibraryService
	Reading    *service.ReadingService
	Aggregator *service.Aggregator
	Stats      *service.StatsService
	Motivation *service.MotivationService
	Index      IndexStatus // nil when shelf search is disabled
}
