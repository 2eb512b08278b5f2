package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/booklog/booklog-server/internal/domain"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/search"
	"github.com/booklog/booklog-server/internal/store"
)

// resolveConcurrency bounds parallel catalog lookups when listing a shelf.
const resolveConcurrency = 4

// CoverHasher computes placeholder hashes for cover images.
type CoverHasher interface {
	FromURL(ctx context.Context, url string) (string, error)
}

// ShelfIndex is the full-text index over saved books.
type ShelfIndex interface {
	Index(doc *search.ShelfDocument) error
	IndexBatch(docs []*search.ShelfDocument) error
	Remove(userID, bookID string) error
	Search(ctx context.Context, userID, text string, limit int) (*search.Result, error)
	Rebuild() error
}

// LibraryService manages the books a user saved.
type LibraryService struct {
	docs    store.Documents
	catalog Catalog
	covers  CoverHasher // optional
	index   ShelfIndex  // optional
	logger  *slog.Logger
}

// NewLibraryService creates a new library service. covers and index may be nil.
func NewLibraryService(docs store.Documents, c Catalog, covers CoverHasher, index ShelfIndex, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LibraryService{docs: docs, catalog: c, covers: covers, index: index, logger: logger}
}

// SaveBook adds a catalog volume to the user's shelf and records its
// metadata on the book document. Saving twice is harmless.
func (s *LibraryService) SaveBook(ctx context.Context, userID, volumeID string) (*domain.SavedBook, error) {
	volumeID = strings.TrimSpace(volumeID)
	if volumeID == "" {
		return nil, domainerrors.Validation("book id is required")
	}

	item, err := s.catalog.GetByID(ctx, volumeID)
	if err != nil {
		return nil, catalogError(err)
	}

	blurHash := s.coverHash(ctx, item)

	book := map[string]any{
		domain.FieldBookID:    item.ID,
		domain.FieldTitle:     item.Title,
		domain.FieldAuthors:   item.Authors,
		domain.FieldImageURL:  item.CoverURL(),
		domain.FieldTimestamp: store.ServerTimestamp(),
	}
	if item.PageCount != nil {
		book[domain.FieldPageCount] = *item.PageCount
	}
	if blurHash != "" {
		book[domain.FieldCoverBlurHash] = blurHash
	}

	userPath := store.UserPath(userID)
	bookPath := store.BookPath(userID, item.ID)
	err = s.docs.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		userDoc, err := tx.Get(userPath)
		if err != nil {
			return err
		}
		if !userDoc.Exists() {
			return domainerrors.NotFoundf("user %s not found", userID)
		}
		if err := tx.Set(userPath, map[string]any{
			domain.FieldSavedBooks: store.ArrayUnion(item.ID),
			domain.FieldUpdatedAt:  store.ServerTimestamp(),
		}, store.Merge()); err != nil {
			return err
		}
		return tx.Set(bookPath, book, store.Merge())
	})
	if err != nil {
		return nil, fmt.Errorf("save book: %w", err)
	}

	if s.index != nil {
		if err := s.index.Index(search.FromCatalogItem(userID, item)); err != nil {
			s.logger.Warn("failed to index saved book", "user_id", userID, "book_id", item.ID, "error", err)
		}
	}

	s.logger.Info("book saved", "user_id", userID, "book_id", item.ID)

	session, err := s.bookSession(ctx, userID, item.ID)
	if err != nil {
		return nil, err
	}
	return &domain.SavedBook{Book: *item, Session: session}, nil
}

// RemoveBook takes a book off the shelf. Its session document is kept.
func (s *LibraryService) RemoveBook(ctx context.Context, userID, bookID string) error {
	if bookID == "" {
		return domainerrors.Validation("book id is required")
	}

	err := s.docs.Update(ctx, store.UserPath(userID), map[string]any{
		domain.FieldSavedBooks: store.ArrayRemove(bookID),
		domain.FieldUpdatedAt:  store.ServerTimestamp(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("user %s not found", userID)
	}
	if err != nil {
		return fmt.Errorf("remove book: %w", err)
	}

	if s.index != nil {
		if err := s.index.Remove(userID, bookID); err != nil {
			s.logger.Warn("failed to unindex book", "user_id", userID, "book_id", bookID, "error", err)
		}
	}

	s.logger.Info("book removed", "user_id", userID, "book_id", bookID)
	return nil
}

// ListSavedBooks resolves every saved book through the catalog and joins it
// with the user's session document. A book the catalog cannot return is
// rebuilt from its stored metadata, or left out when there is none. Books
// are ordered by last activity, most recent first.
func (s *LibraryService) ListSavedBooks(ctx context.Context, userID string) ([]domain.SavedBook, error) {
	user, err := loadUser(ctx, s.docs, userID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.bookSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	resolved := make([]*domain.SavedBook, len(user.SavedBooks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for i, bookID := range user.SavedBooks {
		g.Go(func() error {
			session := sessions[bookID]

			item, err := s.catalog.GetByID(gctx, bookID)
			switch {
			case err == nil:
				resolved[i] = &domain.SavedBook{Book: *item, Session: session}
			case errors.Is(err, context.Canceled) && ctx.Err() != nil:
				return ctx.Err()
			case session != nil && session.Title != "":
				s.logger.Warn("catalog lookup failed, using stored metadata",
					"user_id", userID, "book_id", bookID, "error", err)
				resolved[i] = &domain.SavedBook{Book: storedItem(bookID, session), Session: session, Stale: true}
			default:
				s.logger.Warn("skipping unresolvable saved book", "user_id", userID, "book_id", bookID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.SavedBook, 0, len(resolved))
	for _, b := range resolved {
		if b != nil {
			out = append(out, *b)
		}
	}
	sortByActivity(out)
	return out, nil
}

// SearchShelf runs a full-text query over the user's saved books.
func (s *LibraryService) SearchShelf(ctx context.Context, userID, query string, limit int) (*search.Result, error) {
	if s.index == nil {
		return nil, domainerrors.Unavailable("shelf search is disabled", nil)
	}
	res, err := s.index.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search shelf: %w", err)
	}
	return res, nil
}

// ReindexShelves rebuilds the shelf index from the stored book metadata of
// every user. It returns the number of indexed books.
func (s *LibraryService) ReindexShelves(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}

	users, err := s.docs.List(ctx, "users")
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	var batch []*search.ShelfDocument
	for _, userDoc := range users {
		user, err := decodeUser(userDoc, userDoc.ID())
		if err != nil {
			return 0, err
		}
		if len(user.SavedBooks) == 0 {
			continue
		}
		sessions, err := s.bookSessions(ctx, userDoc.ID())
		if err != nil {
			return 0, err
		}
		for _, bookID := range user.SavedBooks {
			session := sessions[bookID]
			if session == nil || session.Title == "" {
				continue
			}
			item := storedItem(bookID, session)
			batch = append(batch, search.FromCatalogItem(userDoc.ID(), &item))
		}
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild shelf index: %w", err)
	}
	if err := s.index.IndexBatch(batch); err != nil {
		return 0, fmt.Errorf("index shelves: %w", err)
	}

	s.logger.Info("shelf index rebuilt", "users", len(users), "books", len(batch))
	return len(batch), nil
}

func (s *LibraryService) coverHash(ctx context.Context, item *domain.CatalogItem) string {
	if s.covers == nil || item.CoverURL() == "" {
		return ""
	}
	hash, err := s.covers.FromURL(ctx, item.CoverURL())
	if err != nil {
		s.logger.Warn("cover placeholder failed", "book_id", item.ID, "error", err)
		return ""
	}
	return hash
}

func (s *LibraryService) bookSession(ctx context.Context, userID, bookID string) (*domain.BookSession, error) {
	doc, err := s.docs.Get(ctx, store.BookPath(userID, bookID))
	if err != nil {
		return nil, fmt.Errorf("get book session: %w", err)
	}
	return decodeBookSession(doc)
}

// bookSessions returns the user's book documents keyed by book id.
func (s *LibraryService) bookSessions(ctx context.Context, userID string) (map[string]*domain.BookSession, error) {
	docs, err := s.docs.List(ctx, store.BooksCollection(userID))
	if err != nil {
		return nil, fmt.Errorf("list book sessions: %w", err)
	}
	out := make(map[string]*domain.BookSession, len(docs))
	for _, doc := range docs {
		session, err := decodeBookSession(doc)
		if err != nil {
			return nil, err
		}
		out[doc.ID()] = session
	}
	return out, nil
}

func decodeBookSession(doc *store.Document) (*domain.BookSession, error) {
	if !doc.Exists() {
		return nil, nil
	}
	var session domain.BookSession
	if err := doc.DataTo(&session); err != nil {
		return nil, fmt.Errorf("decode book session: %w", err)
	}
	if session.BookID == "" {
		session.BookID = doc.ID()
	}
	return &session, nil
}

// storedItem rebuilds a catalog record from metadata written at save time.
func storedItem(bookID string, session *domain.BookSession) domain.CatalogItem {
	return domain.CatalogItem{
		ID:        bookID,
		Title:     session.Title,
		Authors:   session.Authors,
		PageCount: session.PageCount,
		Thumbnail: session.ImageURL,
	}
}

// sortByActivity orders books by session timestamp, newest first; books
// without one go last, by title.
func sortByActivity(books []domain.SavedBook) {
	sort.SliceStable(books, func(i, j int) bool {
		ti, tj := activity(books[i]), activity(books[j])
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.After(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		return books[i].Book.Title < books[j].Book.Title
	})
}

func activity(b domain.SavedBook) *time.Time {
	if b.Session == nil {
		return nil
	}
	return b.Session.Timestamp
}
