// Package di provides dependency injection configuration for the Booklog server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/booklog/booklog-server/internal/auth"
	"github.com/booklog/booklog-server/internal/config"
	"github.com/booklog/booklog-server/internal/cover"
	"github.com/booklog/booklog-server/internal/di/providers"
	"github.com/booklog/booklog-server/internal/logger"
	"github.com/booklog/booklog-server/internal/service"
	"github.com/booklog/booklog-server/internal/tracker"
	"github.com/booklog/booklog-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideCoverHasher)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideAggregator)
	do.Provide(injector, providers.ProvideReadingService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideMotivationService)

	// Session trackers
	do.Provide(injector, providers.ProvideTrackerManager)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*cover.Hasher](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.Aggregator](injector)
	_ = do.MustInvoke[*service.ReadingService](injector)
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*service.MotivationService](injector)
	_ = do.MustInvoke[*tracker.Manager](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the shelf index if it came up empty
	providers.TriggerShelfReindexIfNeeded(injector)

	return nil
}
