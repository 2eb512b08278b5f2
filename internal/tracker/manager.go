package tracker

import (
	"log/slog"
	"sync"
)

// Manager owns one Tracker per user, created on first use.
type Manager struct {
	reconciler Reconciler
	clock      Clock
	logger     *slog.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the system clock. Tests use it to drive ticks.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// NewManager creates a Manager whose trackers persist through reconciler.
func NewManager(reconciler Reconciler, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		reconciler: reconciler,
		clock:      SystemClock{},
		logger:     logger,
		trackers:   make(map[string]*Tracker),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// For returns the tracker of userID.
func (m *Manager) For(userID string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trackers[userID]
	if !ok {
		t = New(userID, m.reconciler, m.clock, m.logger)
		m.trackers[userID] = t
	}
	return t
}

// Active returns the number of trackers currently running.
func (m *Manager) Active() int {
	m.mu.Lock()
	trackers := make([]*Tracker, 0, len(m.trackers))
	for _, t := range m.trackers {
		trackers = append(trackers, t)
	}
	m.mu.Unlock()

	n := 0
	for _, t := range trackers {
		if t.Snapshot().State == StateRunning {
			n++
		}
	}
	return n
}

// Shutdown stops every ticker. Running sessions are left paused, not ended.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.trackers {
		t.Stop()
	}
	m.logger.Info("Reading trackers stopped", "count", len(m.trackers))
	return nil
}
