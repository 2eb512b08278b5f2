package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/booklog/booklog-server/internal/domain"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/tracker"
)

// ReadingService persists finished reading sessions and book completion.
//
// Lifetime pages follow one contract: an ordinary session adds the pages
// advanced since the stored bookmark; the session that completes a book
// adds the final bookmark page instead.
type ReadingService struct {
	docs       store.Documents
	aggregator *Aggregator
	logger     *slog.Logger
}

var _ tracker.Reconciler = (*ReadingService)(nil)

// NewReadingService creates a new reading service.
func NewReadingService(docs store.Documents, aggregator *Aggregator, logger *slog.Logger) *ReadingService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReadingService{docs: docs, aggregator: aggregator, logger: logger}
}

// sessionWrite describes one session or completion to apply.
type sessionWrite struct {
	bookID         string
	pageCount      *int
	notes          *string
	bookmarkPage   int
	elapsedSeconds int

	// markComplete completes the book regardless of the bookmark and turns
	// the whole write into a no-op when it is already complete.
	markComplete bool
}

type sessionApplied struct {
	pagesRead int
	completed bool
	written   bool
}

// ReconcileSession implements tracker.Reconciler. The reading time goes to
// the daily counters first; the book and user documents are then updated
// in one transaction.
func (s *ReadingService) ReconcileSession(ctx context.Context, userID string, result tracker.SessionResult) (tracker.Reconciliation, error) {
	didReset, err := s.aggregator.RecordReadingTime(ctx, userID, result.ElapsedSeconds)
	if err != nil {
		return tracker.Reconciliation{}, err
	}

	applied, err := s.applySession(ctx, userID, sessionWrite{
		bookID:         result.Book.ID,
		pageCount:      result.Book.PageCount,
		notes:          result.Notes,
		bookmarkPage:   result.FinalBookmarkPage,
		elapsedSeconds: result.ElapsedSeconds,
	})
	if err != nil {
		return tracker.Reconciliation{DayRolledOver: didReset}, err
	}

	s.logger.Info("reading session saved",
		"user_id", userID,
		"book_id", result.Book.ID,
		"elapsed_seconds", result.ElapsedSeconds,
		"pages_read", applied.pagesRead,
		"completed", applied.completed,
	)

	return tracker.Reconciliation{
		PagesRead:     applied.pagesRead,
		Completed:     applied.completed,
		DayRolledOver: didReset,
	}, nil
}

// CheckAndUpdateCompletionStatus marks a book completed and applies the
// lifetime counters once. It reports whether this call did the transition;
// completing an already completed book changes nothing.
func (s *ReadingService) CheckAndUpdateCompletionStatus(
	ctx context.Context,
	userID, bookID string,
	notes *string,
	bookmarkPage, elapsedSeconds int,
) (bool, error) {
	if elapsedSeconds < 0 {
		return false, domainerrors.Validationf("reading time must not be negative, got %d", elapsedSeconds)
	}

	applied, err := s.applySession(ctx, userID, sessionWrite{
		bookID:         bookID,
		notes:          notes,
		bookmarkPage:   bookmarkPage,
		elapsedSeconds: elapsedSeconds,
		markComplete:   true,
	})
	if err != nil {
		return false, err
	}
	if !applied.written {
		s.logger.Info("book already completed", "user_id", userID, "book_id", bookID)
		return false, nil
	}

	if elapsedSeconds > 0 {
		if _, err := s.aggregator.RecordReadingTime(ctx, userID, elapsedSeconds); err != nil {
			return true, err
		}
	}

	s.logger.Info("book completed", "user_id", userID, "book_id", bookID, "pages_read", applied.pagesRead)
	return true, nil
}

// GetBookSession returns the stored session document of a book.
func (s *ReadingService) GetBookSession(ctx context.Context, userID, bookID string) (*domain.BookSession, error) {
	doc, err := s.docs.Get(ctx, store.BookPath(userID, bookID))
	if err != nil {
		return nil, fmt.Errorf("get book session: %w", err)
	}
	if !doc.Exists() {
		return nil, domainerrors.NotFoundf("no reading session for book %s", bookID)
	}

	var session domain.BookSession
	if err := doc.DataTo(&session); err != nil {
		return nil, fmt.Errorf("decode book session: %w", err)
	}
	if session.BookID == "" {
		session.BookID = bookID
	}
	return &session, nil
}

func (s *ReadingService) applySession(ctx context.Context, userID string, w sessionWrite) (sessionApplied, error) {
	if w.bookID == "" {
		return sessionApplied{}, domainerrors.Validation("book id is required")
	}
	userPath := store.UserPath(userID)
	bookPath := store.BookPath(userID, w.bookID)

	var applied sessionApplied
	err := s.docs.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		applied = sessionApplied{}

		userDoc, err := tx.Get(userPath)
		if err != nil {
			return err
		}
		if !userDoc.Exists() {
			return domainerrors.NotFoundf("user %s not found", userID)
		}
		bookDoc, err := tx.Get(bookPath)
		if err != nil {
			return err
		}

		alreadyCompleted := bookDoc.Bool(domain.FieldIsCompleted)
		if w.markComplete && alreadyCompleted {
			return nil
		}

		pageCount := w.pageCount
		if pageCount == nil && bookDoc.Int(domain.FieldPageCount) > 0 {
			n := int(bookDoc.Int(domain.FieldPageCount))
			pageCount = &n
		}
		final := domain.ClampPage(w.bookmarkPage, pageCount)
		previous := int(bookDoc.Int(domain.FieldBookmarkPage))

		book := map[string]any{
			domain.FieldBookmarkPage: final,
			domain.FieldReadingTime:  store.Increment(int64(w.elapsedSeconds)),
			domain.FieldSessionCount: store.Increment(1),
			domain.FieldTimestamp:    store.ServerTimestamp(),
		}
		if w.notes != nil {
			book[domain.FieldNotes] = *w.notes
		}
		stats := map[string]any{
			domain.FieldTotalSessions:    store.Increment(1),
			domain.FieldTotalReadingTime: store.Increment(int64(w.elapsedSeconds)),
			domain.FieldUpdatedAt:        store.ServerTimestamp(),
		}

		if !alreadyCompleted && (w.markComplete || domain.IsFinished(final, pageCount)) {
			book[domain.FieldIsCompleted] = true
			stats[domain.FieldTotalPagesRead] = store.Increment(int64(final))
			stats[domain.FieldTotalBooksCompleted] = store.Increment(1)
			applied.pagesRead = final
			applied.completed = true
		} else {
			if !bookDoc.Exists() {
				book[domain.FieldIsCompleted] = false
			}
			pagesRead := max(0, final-previous)
			stats[domain.FieldTotalPagesRead] = store.Increment(int64(pagesRead))
			applied.pagesRead = pagesRead
		}

		if err := tx.Set(bookPath, book, store.Merge()); err != nil {
			return err
		}
		if err := tx.Set(userPath, stats, store.Merge()); err != nil {
			return err
		}
		applied.written = true
		return nil
	})
	if err != nil {
		return sessionApplied{}, fmt.Errorf("save reading session: %w", err)
	}
	return applied, nil
}
