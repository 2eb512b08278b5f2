package providers

import (
	"github.com/samber/do/v2"

	"github.com/booklog/booklog-server/internal/auth"
	"github.com/booklog/booklog-server/internal/config"
	"github.com/booklog/booklog-server/internal/cover"
	"github.com/booklog/booklog-server/internal/logger"
	"github.com/booklog/booklog-server/internal/service"
	"github.com/booklog/booklog-server/internal/tracker"
	"github.com/booklog/booklog-server/internal/validation"
)

// ProvideAggregator provides the daily and weekly reading time aggregator.
func ProvideAggregator(i do.Injector) (*service.Aggregator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAggregator(storeHandle.Documents, cfg.Reading.Location, log.Logger), nil
}

// ProvideReadingService provides session reconciliation and completion bookkeeping.
func ProvideReadingService(i do.Injector) (*service.ReadingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	aggregator := do.MustInvoke[*service.Aggregator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReadingService(storeHandle.Documents, aggregator, log.Logger), nil
}

// ProvideStatsService provides lifetime statistics.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return service.NewStatsService(storeHandle.Documents), nil
}

// ProvideAuthService provides signup, login and token verification.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Documents, tokenService, v, log.Logger), nil
}

// ProvideUserService provides profile management.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Documents, v, log.Logger), nil
}

// ProvideCatalogService provides catalog lookups with domain errors.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(catalogHandle.Client, log.Logger), nil
}

// ProvideLibraryService provides the saved-books shelf.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	hasher := do.MustInvoke[*cover.Hasher](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(
		storeHandle.Documents,
		catalogHandle.Client,
		hasher,
		indexHandle.ShelfIndex,
		log.Logger,
	), nil
}

// ProvideMotivationService provides greetings and the quote of the day.
func ProvideMotivationService(i do.Injector) (*service.MotivationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	aggregator := do.MustInvoke[*service.Aggregator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMotivationService(storeHandle.Documents, aggregator, log.Logger), nil
}

// ProvideTrackerManager provides the per-user reading session trackers.
// On shutdown running sessions are paused, not ended.
func ProvideTrackerManager(i do.Injector) (*tracker.Manager, error) {
	reading := do.MustInvoke[*service.ReadingService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return tracker.NewManager(reading, log.Logger), nil
}
