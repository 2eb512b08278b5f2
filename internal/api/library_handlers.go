package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklog/booklog-server/internal/domain"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/library",
		Summary:     "List saved books",
		Description: "Returns the shelf, most recently read first, each book joined with its reading session",
		Tags:        []string{"Library"},
		Security:    bearer,
	}, s.handleListLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/search",
		Summary:     "Search saved books",
		Description: "Full-text search over the titles, authors and descriptions of the shelf",
		Tags:        []string{"Library"},
		Security:    bearer,
	}, s.handleSearchLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/library/{bookId}",
		Summary:     "Save a book",
		Description: "Adds a catalog volume to the shelf. Saving a saved book is a no-op.",
		Tags:        []string{"Library"},
		Security:    bearer,
	}, s.handleSaveBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/library/{bookId}",
		Summary:       "Remove a book",
		Description:   "Removes a book from the shelf. Its reading history is kept.",
		Tags:          []string{"Library"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/{bookId}/session",
		Summary:     "Get a book's reading session",
		Tags:        []string{"Library"},
		Security:    bearer,
	}, s.handleGetBookSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "completeBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/{bookId}/complete",
		Summary:     "Mark a book completed",
		Description: "Completes a book and applies the lifetime counters. Completing a completed book changes nothing.",
		Tags:        []string{"Library"},
		Security:    bearer,
	}, s.handleCompleteBook)
}

// === DTOs ===

// BookSessionResponse is the stored reading state of one book.
type BookSessionResponse struct {
	BookID        string     `json:"book_id" doc:"Catalog volume id"`
	Title         string     `json:"title,omitempty" doc:"Title stored when the book was saved"`
	Authors       []string   `json:"authors,omitempty" doc:"Authors stored when the book was saved"`
	ImageURL      string     `json:"image_url,omitempty" doc:"Cover URL"`
	CoverBlurHash string     `json:"cover_blur_hash,omitempty" doc:"BlurHash placeholder of the cover"`
	PageCount     *int       `json:"page_count,omitempty" doc:"Number of pages, absent when unknown"`
	Notes         *string    `json:"notes,omitempty" doc:"Notes of the last session"`
	BookmarkPage  int        `json:"bookmark_page" doc:"Last page read"`
	ReadingTime   int64      `json:"reading_time" doc:"Reading time in seconds"`
	SessionCount  int64      `json:"session_count" doc:"Finished sessions"`
	IsCompleted   bool       `json:"is_completed" doc:"Whether the book was completed"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" doc:"Last write"`
}

// SavedBookResponse is a shelf entry.
type SavedBookResponse struct {
	Book    BookResponse         `json:"book" doc:"Catalog record"`
	Session *BookSessionResponse `json:"session,omitempty" doc:"Reading state"`
	Stale   bool                 `json:"stale,omitempty" doc:"Catalog unreachable; book rebuilt from stored metadata"`
}

// LibraryResponse lists the shelf.
type LibraryResponse struct {
	Books []SavedBookResponse `json:"books" doc:"Saved books"`
}

// LibraryOutput wraps the shelf for Huma.
type LibraryOutput struct {
	Body LibraryResponse
}

// SavedBookOutput wraps one shelf entry for Huma.
type SavedBookOutput struct {
	Body SavedBookResponse
}

// BookIDInput names a book on the shelf.
type BookIDInput struct {
	BookID string `path:"bookId" maxLength:"64" doc:"Catalog volume id"`
}

// BookSessionOutput wraps a book session for Huma.
type BookSessionOutput struct {
	Body BookSessionResponse
}

// LibrarySearchInput contains the shelf query.
type LibrarySearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Words, a prefix or an ISBN; empty lists the shelf"`
	Limit int    `query:"limit" minimum:"0" maximum:"100" default:"20" doc:"Maximum hits"`
}

// LibrarySearchHit is one matching book.
type LibrarySearchHit struct {
	BookID     string            `json:"book_id" doc:"Catalog volume id"`
	Title      string            `json:"title" doc:"Title"`
	Authors    string            `json:"authors,omitempty" doc:"Authors"`
	Score      float64           `json:"score" doc:"Relevance"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Matched fragments by field"`
}

// LibrarySearchResponse contains the hits.
type LibrarySearchResponse struct {
	Query  string             `json:"query" doc:"The query searched"`
	Total  uint64             `json:"total" doc:"Total matches"`
	TookMs int64              `json:"took_ms" doc:"Search time in milliseconds"`
	Hits   []LibrarySearchHit `json:"hits" doc:"Matching books"`
}

// LibrarySearchOutput wraps the hits for Huma.
type LibrarySearchOutput struct {
	Body LibrarySearchResponse
}

// CompleteBookInput contains the completion request.
type CompleteBookInput struct {
	BookID string `path:"bookId" maxLength:"64" doc:"Catalog volume id"`
	Body   struct {
		Notes          *string `json:"notes,omitempty" maxLength:"10000" doc:"Notes to store with the book"`
		BookmarkPage   int     `json:"bookmark_page" minimum:"0" doc:"Final page"`
		ElapsedSeconds int     `json:"elapsed_seconds" minimum:"0" doc:"Reading time to record with the completion"`
	}
}

// CompleteBookResponse reports whether this call completed the book.
type CompleteBookResponse struct {
	Completed bool `json:"completed" doc:"False when the book was already completed"`
}

// CompleteBookOutput wraps the completion result for Huma.
type CompleteBookOutput struct {
	Body CompleteBookResponse
}

func bookSessionResponse(bookID string, b *domain.BookSession) *BookSessionResponse {
	if b == nil {
		return nil
	}
	if b.BookID != "" {
		bookID = b.BookID
	}
	return &BookSessionResponse{
		BookID:        bookID,
		Title:         b.Title,
		Authors:       b.Authors,
		ImageURL:      b.ImageURL,
		CoverBlurHash: b.CoverBlurHash,
		PageCount:     b.PageCount,
		Notes:         b.Notes,
		BookmarkPage:  b.BookmarkPage,
		ReadingTime:   b.ReadingTime,
		SessionCount:  b.SessionCount,
		IsCompleted:   b.IsCompleted,
		UpdatedAt:     b.Timestamp,
	}
}

func savedBookResponse(b *domain.SavedBook) SavedBookResponse {
	return SavedBookResponse{
		Book:    bookResponse(&b.Book),
		Session: bookSessionResponse(b.Book.ID, b.Session),
		Stale:   b.Stale,
	}
}

// === Handlers ===

func (s *Server) handleListLibrary(ctx context.Context, _ *struct{}) (*LibraryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	saved, err := s.services.Library.ListSavedBooks(ctx, userID)
	if err != nil {
		return nil, err
	}

	books := make([]SavedBookResponse, len(saved))
	for i := range saved {
		books[i] = savedBookResponse(&saved[i])
	}
	return &LibraryOutput{Body: LibraryResponse{Books: books}}, nil
}

func (s *Server) handleSearchLibrary(ctx context.Context, input *LibrarySearchInput) (*LibrarySearchOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Library.SearchShelf(ctx, userID, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}

	hits := make([]LibrarySearchHit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = LibrarySearchHit{
			BookID:     h.BookID,
			Title:      h.Title,
			Authors:    h.Authors,
			Score:      h.Score,
			Highlights: h.Highlights,
		}
	}
	return &LibrarySearchOutput{Body: LibrarySearchResponse{
		Query:  res.Query,
		Total:  res.Total,
		TookMs: res.TookMs,
		Hits:   hits,
	}}, nil
}

func (s *Server) handleSaveBook(ctx context.Context, input *BookIDInput) (*SavedBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	saved, err := s.services.Library.SaveBook(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &SavedBookOutput{Body: savedBookResponse(saved)}, nil
}

func (s *Server) handleRemoveBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Library.RemoveBook(ctx, userID, input.BookID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetBookSession(ctx context.Context, input *BookIDInput) (*BookSessionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.services.Reading.GetBookSession(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &BookSessionOutput{Body: *bookSessionResponse(input.BookID, session)}, nil
}

func (s *Server) handleCompleteBook(ctx context.Context, input *CompleteBookInput) (*CompleteBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	completed, err := s.services.Reading.CheckAndUpdateCompletionStatus(ctx, userID, input.BookID,
		input.Body.Notes, input.Body.BookmarkPage, input.Body.ElapsedSeconds)
	if err != nil {
		return nil, err
	}
	return &CompleteBookOutput{Body: CompleteBookResponse{Completed: completed}}, nil
}
