package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// ShelfIndex wraps a Bleve index of saved books.
//
// All methods are safe for concurrent use; Rebuild takes the write lock.
type ShelfIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Discarded when nil
}

// mappingVersion changes whenever buildIndexMapping does; a mismatch on
// startup recreates the index.
const mappingVersion = "1"

const batchSize = 500

// New opens the index under opts.DataPath, creating it when missing,
// unreadable or built with an older mapping.
func New(opts Options) (*ShelfIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "shelf.bleve")
	versionPath := filepath.Join(opts.DataPath, "shelf.version")

	var index bleve.Index
	needsRebuild := false

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("shelf index has no version file, rebuilding", "new_version", mappingVersion)
			needsRebuild = true
		case string(existing) != mappingVersion:
			logger.Info("shelf index mapping changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		default:
			var err error
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open shelf index, recreating", "path", indexPath, "error", err)
				needsRebuild = true
			}
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write shelf index version", "error", err)
		}
		logger.Info("created shelf index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened shelf index", "path", indexPath)
	}

	return &ShelfIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close closes the index.
func (s *ShelfIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Shutdown implements do.Shutdowner.
func (s *ShelfIndex) Shutdown() error {
	return s.Close()
}

// Index adds or replaces one saved book.
func (s *ShelfIndex) Index(doc *ShelfDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.index.Index(doc.ID(), doc.toMap()); err != nil {
		return fmt.Errorf("index %s: %w", doc.ID(), err)
	}
	return nil
}

// IndexBatch indexes documents in chunks of batchSize.
func (s *ShelfIndex) IndexBatch(docs []*ShelfDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID(), doc.toMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID(), err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Remove drops a user's book. Removing an unindexed book is not an error.
func (s *ShelfIndex) Remove(userID, bookID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(DocumentID(userID, bookID))
}

// DocumentCount returns the number of indexed books across all users.
func (s *ShelfIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document and recreates an empty index. Callers
// re-populate it with IndexBatch.
func (s *ShelfIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.logger.Info("rebuilt shelf index", "path", s.path)
	return nil
}
