package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/booklog/booklog-server/internal/domain"
	"github.com/booklog/booklog-server/internal/store"
)

// setupTestStore opens a Badger document store in a temp dir.
func setupTestStore(t *testing.T) store.Documents {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// createTestUser writes a fresh user aggregate the way signup does.
func createTestUser(t *testing.T, docs store.Documents, userID string) {
	t.Helper()

	err := docs.Set(context.Background(), store.UserPath(userID), map[string]any{
		domain.FieldUserID:     userID,
		domain.FieldEmail:      userID + "@example.com",
		domain.FieldNickname:   userID,
		domain.FieldSavedBooks: []string{},
	})
	require.NoError(t, err)
}

// fixedClock returns a settable clock.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func loadTestUser(t *testing.T, docs store.Documents, userID string) *domain.User {
	t.Helper()

	user, err := loadUser(context.Background(), docs, userID)
	require.NoError(t, err)
	return user
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func minutesOf(days []domain.DayMinutes) []int {
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = d.Minutes
	}
	return out
}
