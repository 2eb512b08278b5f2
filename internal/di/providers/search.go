package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/booklog/booklog-server/internal/config"
	"github.com/booklog/booklog-server/internal/logger"
	"github.com/booklog/booklog-server/internal/search"
	"github.com/booklog/booklog-server/internal/service"
)

// SearchIndexHandle wraps the shelf index with shutdown capability.
type SearchIndexHandle struct {
	*search.ShelfIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve shelf index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.New(search.Options{
		DataPath: filepath.Join(cfg.Metadata.BasePath, "search"),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{ShelfIndex: index}, nil
}

// TriggerShelfReindexIfNeeded rebuilds the shelf index in the background
// when it is empty. A fresh or recreated index starts empty even though
// users already have books saved.
func TriggerShelfReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	library := do.MustInvoke[*service.LibraryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	go func() {
		n, err := library.ReindexShelves(context.Background())
		if err != nil {
			log.Error("Initial shelf reindex failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("Initial shelf reindex completed", "documents", n)
		}
	}()
}
