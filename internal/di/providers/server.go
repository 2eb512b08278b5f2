package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/booklog/booklog-server/internal/api"
	"github.com/booklog/booklog-server/internal/config"
	"github.com/booklog/booklog-server/internal/logger"
	"github.com/booklog/booklog-server/internal/service"
	"github.com/booklog/booklog-server/internal/tracker"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(h.Server.Shutdown(ctx), h.api.Shutdown())
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	trackers := do.MustInvoke[*tracker.Manager](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		User:       do.MustInvoke[*service.UserService](i),
		Catalog:    do.MustInvoke[*service.CatalogService](i),
		Library:    do.MustInvoke[*service.LibraryService](i),
		Reading:    do.MustInvoke[*service.ReadingService](i),
		Aggregator: do.MustInvoke[*service.Aggregator](i),
		Stats:      do.MustInvoke[*service.StatsService](i),
		Motivation: do.MustInvoke[*service.MotivationService](i),
		Index:      indexHandle.ShelfIndex,
	}

	handler := api.NewServer(storeHandle.Documents, services, trackers, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
