package providers

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/samber/do/v2"

	"github.com/booklog/booklog-server/internal/config"
	"github.com/booklog/booklog-server/internal/logger"
	"github.com/booklog/booklog-server/internal/store"
	mongostore "github.com/booklog/booklog-server/internal/store/mongo"
)

// mongoConnectTimeout bounds the initial MongoDB connect and ping.
const mongoConnectTimeout = 15 * time.Second

// StoreHandle wraps the document store with shutdown capability.
type StoreHandle struct {
	store.Documents
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured document store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Store.Backend {
	case config.StoreMongo:
		ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
		defer cancel()

		docs, err := mongostore.New(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "backend", config.StoreMongo, "database", cfg.Store.MongoDatabase)
		return &StoreHandle{Documents: docs}, nil

	case config.StoreBadger:
		dbPath := filepath.Join(cfg.Metadata.BasePath, "db")
		docs, err := store.New(dbPath, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "backend", config.StoreBadger, "path", dbPath)
		return &StoreHandle{Documents: docs}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
