// Package tracker measures reading sessions.
//
// A Tracker is a small state machine owned by one user:
//
//	Idle -> Running <-> Paused -> Ended -> Idle
//
// While Running it adds one second of elapsed time per tick. End hands the
// finished session to a Reconciler, which persists it, and then returns the
// tracker to Idle with the selected book still in hand.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/booklog/booklog-server/internal/domain"
	"github.com/booklog/booklog-server/internal/id"
)

// TickInterval is the resolution of elapsed time.
const TickInterval = time.Second

// State of a tracker.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrNoBookSelected is returned by Start and End before SelectBook.
	ErrNoBookSelected = errors.New("no book selected")
)

// Book is the book a session is read from.
type Book struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	PageCount    *int   `json:"pageCount,omitempty"`
	BookmarkPage int    `json:"bookmarkPage"`
}

// SessionResult is what End hands to the Reconciler.
type SessionResult struct {
	RunID             string
	Book              Book
	ElapsedSeconds    int
	FinalBookmarkPage int // already clamped to [0, pageCount]
	Notes             *string
}

// Reconciliation reports what persisting a session changed.
type Reconciliation struct {
	PagesRead     int  `json:"pagesRead"`
	Completed     bool `json:"completed"`     // this session finished the book
	DayRolledOver bool `json:"dayRolledOver"` // the daily counters were reset first
}

// Reconciler persists finished sessions.
type Reconciler interface {
	ReconcileSession(ctx context.Context, userID string, result SessionResult) (Reconciliation, error)
}

// Outcome is returned by End. Persisted is false when the Reconciler
// failed; the tracker has moved on regardless.
type Outcome struct {
	Result         SessionResult
	Reconciliation Reconciliation
	Persisted      bool
}

// Snapshot is a point-in-time view of a tracker.
type Snapshot struct {
	State          State  `json:"state"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Book           *Book  `json:"book,omitempty"`
	RunID          string `json:"runId,omitempty"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	userID     string
	clock      Clock
	reconciler Reconciler
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	book    *Book
	elapsed int
	runID   string
	// open is set by SelectBook and Start and cleared by End, so a
	// repeated End does not record a second empty session.
	open bool

	// Set while Running.
	stop chan struct{}
	done chan struct{}
}

// New creates an idle tracker for userID.
func New(userID string, reconciler Reconciler, clock Clock, logger *slog.Logger) *Tracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		userID:     userID,
		clock:      clock,
		reconciler: reconciler,
		logger:     logger.With("user_id", userID),
		state:      StateIdle,
	}
}

// SelectBook chooses the book for the next session. Only valid while Idle.
func (t *Tracker) SelectBook(book Book) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return ErrInvalidTransition
	}
	book.BookmarkPage = domain.ClampPage(book.BookmarkPage, book.PageCount)
	t.book = &book
	t.elapsed = 0
	t.runID = ""
	t.open = true
	return nil
}

// Start begins or resumes counting. Starting a running tracker is a no-op.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateRunning:
		return nil
	case StateEnded:
		return ErrInvalidTransition
	}
	if t.book == nil {
		return ErrNoBookSelected
	}

	if t.runID == "" {
		t.runID = id.NewRunID()
	}
	t.state = StateRunning
	t.open = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.clock.NewTicker(TickInterval), t.stop, t.done)

	t.logger.Debug("reading session running", "book_id", t.book.ID, "run_id", t.runID)
	return nil
}

// Pause stops counting and keeps the elapsed time.
func (t *Tracker) Pause() error {
	t.mu.Lock()
	if t.state != StateRunning {
		state := t.state
		t.mu.Unlock()
		if state == StatePaused {
			return nil
		}
		return ErrInvalidTransition
	}
	stop, done := t.detachLocked()
	t.state = StatePaused
	t.mu.Unlock()

	waitStopped(stop, done)
	return nil
}

// Reset zeroes the elapsed time. The state and the persisted data are untouched.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.elapsed = 0
	t.mu.Unlock()
}

// End finishes the session: it stops counting, clamps finalBookmarkPage,
// hands the result to the Reconciler and returns to Idle. A Reconciler
// error is logged and reported through Outcome.Persisted. Ending again
// requires a SelectBook or Start in between.
func (t *Tracker) End(ctx context.Context, notes *string, finalBookmarkPage int) (Outcome, error) {
	t.mu.Lock()
	if t.book == nil {
		t.mu.Unlock()
		return Outcome{}, ErrNoBookSelected
	}
	if t.state == StateEnded || !t.open {
		t.mu.Unlock()
		return Outcome{}, ErrInvalidTransition
	}

	stop, done := t.detachLocked()
	t.state = StateEnded
	book := *t.book
	result := SessionResult{
		RunID:             t.runID,
		Book:              book,
		ElapsedSeconds:    t.elapsed,
		FinalBookmarkPage: domain.ClampPage(finalBookmarkPage, book.PageCount),
		Notes:             notes,
	}
	t.mu.Unlock()

	waitStopped(stop, done)

	outcome := Outcome{Result: result}
	rec, err := t.reconciler.ReconcileSession(ctx, t.userID, result)
	if err != nil {
		t.logger.Warn("failed to persist reading session",
			"error", err,
			"book_id", book.ID,
			"elapsed_seconds", result.ElapsedSeconds,
		)
	} else {
		outcome.Reconciliation = rec
		outcome.Persisted = true
	}

	t.mu.Lock()
	t.state = StateIdle
	t.elapsed = 0
	t.runID = ""
	t.open = false
	t.book.BookmarkPage = result.FinalBookmarkPage
	t.mu.Unlock()

	return outcome, nil
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{State: t.state, ElapsedSeconds: t.elapsed, RunID: t.runID}
	if t.book != nil {
		b := *t.book
		snap.Book = &b
	}
	return snap
}

// Stop halts the ticker without changing anything else. Used on shutdown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop, done := t.detachLocked()
	if t.state == StateRunning {
		t.state = StatePaused
	}
	t.mu.Unlock()

	waitStopped(stop, done)
}

// detachLocked disowns the ticker goroutine. Ticks it delivers afterwards
// are ignored because t.stop no longer matches.
func (t *Tracker) detachLocked() (chan struct{}, chan struct{}) {
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	return stop, done
}

func waitStopped(stop, done chan struct{}) {
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (t *Tracker) run(ticker Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.mu.Lock()
			if t.stop == stop {
				t.elapsed++
			}
			t.mu.Unlock()
		}
	}
}
