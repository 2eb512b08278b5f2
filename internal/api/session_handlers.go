package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/tracker"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Get the reading session",
		Description: "Returns the state of the caller's session tracker",
		Tags:        []string{"Session"},
		Security:    bearer,
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "selectSessionBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/select",
		Summary:     "Select a book",
		Description: "Chooses a saved book for the next session. Only allowed while idle.",
		Tags:        []string{"Session"},
		Security:    bearer,
	}, s.handleSelectBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "startSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/start",
		Summary:     "Start or resume reading",
		Tags:        []string{"Session"},
		Security:    bearer,
	}, s.handleStartSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "pauseSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/pause",
		Summary:     "Pause reading",
		Tags:        []string{"Session"},
		Security:    bearer,
	}, s.handlePauseSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/reset",
		Summary:     "Reset the elapsed time",
		Description: "Zeroes the elapsed time without ending the session",
		Tags:        []string{"Session"},
		Security:    bearer,
	}, s.handleResetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "endSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/end",
		Summary:     "End the session",
		Description: "Stops the session and saves the reading time, the bookmark and any notes",
		Tags:        []string{"Session"},
		Security:    bearer,
	}, s.handleEndSession)
}

// === DTOs ===

// SessionBookResponse is the book a session is read from.
type SessionBookResponse struct {
	ID           string `json:"id" doc:"Catalog volume id"`
	Title        string `json:"title,omitempty" doc:"Title"`
	PageCount    *int   `json:"page_count,omitempty" doc:"Number of pages, absent when unknown"`
	BookmarkPage int    `json:"bookmark_page" doc:"Page the session starts from"`
}

// SessionResponse is a tracker snapshot.
type SessionResponse struct {
	State          string               `json:"state" enum:"idle,running,paused,ended" doc:"Tracker state"`
	ElapsedSeconds int                  `json:"elapsed_seconds" doc:"Time read in this session"`
	Book           *SessionBookResponse `json:"book,omitempty" doc:"Selected book"`
	RunID          string               `json:"run_id,omitempty" doc:"Identifier of the current run"`
}

// SessionOutput wraps a snapshot for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// SelectBookInput names the book to read.
type SelectBookInput struct {
	Body struct {
		BookID string `json:"book_id" minLength:"1" maxLength:"64" doc:"Catalog volume id of a saved book"`
	}
}

// EndSessionInput contains what the reader reports at the end.
type EndSessionInput struct {
	Body struct {
		Notes             *string `json:"notes,omitempty" maxLength:"10000" doc:"Notes; omit to keep the stored notes"`
		FinalBookmarkPage int     `json:"final_bookmark_page" doc:"Page reached; clamped to the book"`
	}
}

// EndSessionResponse reports the finished session.
type EndSessionResponse struct {
	ElapsedSeconds    int  `json:"elapsed_seconds" doc:"Reading time of the session"`
	FinalBookmarkPage int  `json:"final_bookmark_page" doc:"Clamped final page"`
	PagesRead         int  `json:"pages_read" doc:"Pages credited to the lifetime counter"`
	Completed         bool `json:"completed" doc:"Whether this session finished the book"`
	DayRolledOver     bool `json:"day_rolled_over" doc:"Whether the daily counters started a new day"`
	Persisted         bool `json:"persisted" doc:"False when saving failed; the tracker is idle regardless"`
}

// EndSessionOutput wraps the end result for Huma.
type EndSessionOutput struct {
	Body EndSessionResponse
}

func sessionResponse(snap tracker.Snapshot) SessionResponse {
	resp := SessionResponse{
		State:          string(snap.State),
		ElapsedSeconds: snap.ElapsedSeconds,
		RunID:          snap.RunID,
	}
	if snap.Book != nil {
		resp.Book = &SessionBookResponse{
			ID:           snap.Book.ID,
			Title:        snap.Book.Title,
			PageCount:    snap.Book.PageCount,
			BookmarkPage: snap.Book.BookmarkPage,
		}
	}
	return resp
}

// trackerFor returns the caller's tracker.
func (s *Server) trackerFor(ctx context.Context) (*tracker.Tracker, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.trackers.For(userID), nil
}

// === Handlers ===

func (s *Server) handleGetSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	t, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(t.Snapshot())}, nil
}

func (s *Server) handleSelectBook(ctx context.Context, input *SelectBookInput) (*SessionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.sessionBook(ctx, userID, input.Body.BookID)
	if err != nil {
		return nil, err
	}

	t := s.trackers.For(userID)
	if err := t.SelectBook(book); err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(t.Snapshot())}, nil
}

// sessionBook resolves a saved book to what the tracker needs: the stored
// bookmark and page count, falling back to the catalog when the book was
// never persisted.
func (s *Server) sessionBook(ctx context.Context, userID, bookID string) (tracker.Book, error) {
	user, err := s.services.User.GetProfile(ctx, userID)
	if err != nil {
		return tracker.Book{}, err
	}
	if !user.HasSaved(bookID) {
		return tracker.Book{}, domainerrors.NotFoundf("book %s is not on your shelf", bookID)
	}

	session, err := s.services.Reading.GetBookSession(ctx, userID, bookID)
	switch {
	case err == nil && session.Title != "":
		return tracker.Book{
			ID:           bookID,
			Title:        session.Title,
			PageCount:    session.PageCount,
			BookmarkPage: session.BookmarkPage,
		}, nil
	case err != nil && !errors.Is(err, domainerrors.ErrNotFound):
		return tracker.Book{}, err
	}

	item, err := s.services.Catalog.Get(ctx, bookID)
	if err != nil {
		return tracker.Book{}, err
	}
	book := tracker.Book{ID: bookID, Title: item.Title, PageCount: item.PageCount}
	if session != nil {
		book.BookmarkPage = session.BookmarkPage
	}
	return book, nil
}

func (s *Server) handleStartSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	t, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.Start(); err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(t.Snapshot())}, nil
}

func (s *Server) handlePauseSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	t, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.Pause(); err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(t.Snapshot())}, nil
}

func (s *Server) handleResetSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	t, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}
	t.Reset()
	return &SessionOutput{Body: sessionResponse(t.Snapshot())}, nil
}

func (s *Server) handleEndSession(ctx context.Context, input *EndSessionInput) (*EndSessionOutput, error) {
	t, err := s.trackerFor(ctx)
	if err != nil {
		return nil, err
	}

	// The session is saved even if the client goes away mid-request.
	outcome, err := t.End(context.WithoutCancel(ctx), input.Body.Notes, input.Body.FinalBookmarkPage)
	if err != nil {
		return nil, err
	}

	return &EndSessionOutput{Body: EndSessionResponse{
		ElapsedSeconds:    outcome.Result.ElapsedSeconds,
		FinalBookmarkPage: outcome.Result.FinalBookmarkPage,
		PagesRead:         outcome.Reconciliation.PagesRead,
		Completed:         outcome.Reconciliation.Completed,
		DayRolledOver:     outcome.Reconciliation.DayRolledOver,
		Persisted:         outcome.Persisted,
	}}, nil
}
