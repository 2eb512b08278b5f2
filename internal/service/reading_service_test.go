package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/tracker"
)

func setupReadingService(t *testing.T) (*ReadingService, store.Documents) {
	t.Helper()

	docs := setupTestStore(t)
	createTestUser(t, docs, "user-1")

	agg := NewAggregator(docs, time.UTC, nil)
	agg.now = (&fixedClock{t: time.Date(2025, time.January, 5, 10, 0, 0, 0, time.UTC)}).now
	return NewReadingService(docs, agg, nil), docs
}

func setBookmark(t *testing.T, docs store.Documents, bookID string, page int) {
	t.Helper()
	require.NoError(t, docs.Set(context.Background(), store.BookPath("user-1", bookID), map[string]any{
		"bookmarkPage": page,
		"isCompleted":  false,
	}, store.Merge()))
}

func sessionResult(bookID string, pageCount *int, final, elapsed int) tracker.SessionResult {
	return tracker.SessionResult{
		Book:              tracker.Book{ID: bookID, PageCount: pageCount},
		FinalBookmarkPage: final,
		ElapsedSeconds:    elapsed,
	}
}

func TestReconcileSession_OrdinarySessionAddsDelta(t *testing.T) {
	svc, docs := setupReadingService(t)
	ctx := context.Background()
	setBookmark(t, docs, "b1", 50)

	result := sessionResult("b1", intPtr(300), 80, 900)
	result.Notes = strPtr("chapter 4")
	rec, err := svc.ReconcileSession(ctx, "user-1", result)
	require.NoError(t, err)

	assert.Equal(t, 30, rec.PagesRead)
	assert.False(t, rec.Completed)

	user := loadTestUser(t, docs, "user-1")
	assert.Equal(t, int64(30), user.TotalPagesRead)
	assert.Equal(t, int64(1), user.TotalSessions)
	assert.Equal(t, int64(900), user.TotalReadingTime)
	assert.Equal(t, int64(0), user.TotalBooksCompleted)
	assert.Equal(t, 15, user.DailyMinutesRead)

	session, err := svc.GetBookSession(ctx, "user-1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 80, session.BookmarkPage)
	assert.False(t, session.IsCompleted)
	assert.Equal(t, int64(1), session.SessionCount)
	assert.Equal(t, int64(900), session.ReadingTime)
	require.NotNil(t, session.Notes)
	assert.Equal(t, "chapter 4", *session.Notes)
	assert.NotNil(t, session.Timestamp)
}

func TestReconcileSession_CompletingSessionAddsFinalPage(t *testing.T) {
	svc, docs := setupReadingService(t)
	ctx := context.Background()
	setBookmark(t, docs, "b1", 290)

	rec, err := svc.ReconcileSession(ctx, "user-1", sessionResult("b1", intPtr(300), 300, 120))
	require.NoError(t, err)

	assert.True(t, rec.Completed)
	assert.Equal(t, 300, rec.PagesRead)

	user := loadTestUser(t, docs, "user-1")
	assert.Equal(t, int64(300), user.TotalPagesRead)
	assert.Equal(t, int64(1), user.TotalBooksCompleted)

	session, err := svc.GetBookSession(ctx, "user-1", "b1")
	require.NoError(t, err)
	assert.True(t, session.IsCompleted)
}

func TestReconcileSession_BackwardsBookmarkReadsNothing(t *testing.T) {
	svc, docs := setupReadingService(t)
	setBookmark(t, docs, "b1", 120)

	rec, err := svc.ReconcileSession(context.Background(), "user-1", sessionResult("b1", intPtr(300), 100, 60))
	require.NoError(t, err)

	assert.Equal(t, 0, rec.PagesRead)
	user := loadTestUser(t, docs, "user-1")
	assert.Equal(t, int64(0), user.TotalPagesRead)
	assert.Equal(t, int64(1), user.TotalSessions)
}

func TestReconcileSession_CompletedBookIsNotCountedTwice(t *testing.T) {
	svc, docs := setupReadingService(t)
	ctx := context.Background()

	_, err := svc.ReconcileSession(ctx, "user-1", sessionResult("b1", intPtr(300), 300, 60))
	require.NoError(t, err)
	rec, err := svc.ReconcileSession(ctx, "user-1", sessionResult("b1", intPtr(300), 300, 60))
	require.NoError(t, err)

	assert.False(t, rec.Completed)
	user := loadTestUser(t, docs, "user-1")
	assert.Equal(t, int64(1), user.TotalBooksCompleted)
	assert.Equal(t, int64(300), user.TotalPagesRead, "second session advanced zero pages")
	assert.Equal(t, int64(2), user.TotalSessions)

	session, err := svc.GetBookSession(ctx, "user-1", "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), session.SessionCount)
	assert.Equal(t, int64(120), session.ReadingTime)
}

func TestReconcileSession_UnknownPageCountNeverCompletes(t *testing.T) {
	svc, docs := setupReadingService(t)

	rec, err := svc.ReconcileSession(context.Background(), "user-1", sessionResult("b1", nil, 5000, 60))
	require.NoError(t, err)

	assert.False(t, rec.Completed)
	assert.Equal(t, 5000, rec.PagesRead)
	assert.Equal(t, int64(0), loadTestUser(t, docs, "user-1").TotalBooksCompleted)
}

func TestReconcileSession_UsesStoredPageCount(t *testing.T) {
	svc, docs := setupReadingService(t)
	require.NoError(t, docs.Set(context.Background(), store.BookPath("user-1", "b1"), map[string]any{
		"pageCount":    200,
		"bookmarkPage": 150,
	}))

	rec, err := svc.ReconcileSession(context.Background(), "user-1", sessionResult("b1", nil, 250, 60))
	require.NoError(t, err)

	assert.True(t, rec.Completed)
	assert.Equal(t, 200, rec.PagesRead, "bookmark clamped to stored page count")
}

func TestReconcileSession_KeepsNotesWhenNil(t *testing.T) {
	svc, docs := setupReadingService(t)
	ctx := context.Background()
	require.NoError(t, docs.Set(ctx, store.BookPath("user-1", "b1"), map[string]any{"notes": "keep me"}))

	_, err := svc.ReconcileSession(ctx, "user-1", sessionResult("b1", intPtr(300), 10, 60))
	require.NoError(t, err)

	session, err := svc.GetBookSession(ctx, "user-1", "b1")
	require.NoError(t, err)
	require.NotNil(t, session.Notes)
	assert.Equal(t, "keep me", *session.Notes)
}

func TestCheckAndUpdateCompletionStatus_Idempotent(t *testing.T) {
	svc, docs := setupReadingService(t)
	ctx := context.Background()
	setBookmark(t, docs, "b1", 250)

	done, err := svc.CheckAndUpdateCompletionStatus(ctx, "user-1", "b1", strPtr("finished"), 300, 300)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = svc.CheckAndUpdateCompletionStatus(ctx, "user-1", "b1", strPtr("again"), 300, 300)
	require.NoError(t, err)
	assert.False(t, done)

	user := loadTestUser(t, docs, "user-1")
	assert.Equal(t, int64(1), user.TotalBooksCompleted)
	assert.Equal(t, int64(300), user.TotalPagesRead)
	assert.Equal(t, int64(1), user.TotalSessions)
	assert.Equal(t, int64(300), user.TotalReadingTime)
	assert.Equal(t, 5, user.DailyMinutesRead)

	session, err := svc.GetBookSession(ctx, "user-1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "finished", *session.Notes)
}

func TestCheckAndUpdateCompletionStatus_ConcurrentCallsCountOnce(t *testing.T) {
	svc, docs := setupReadingService(t)
	ctx := context.Background()

	const callers = 8
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := svc.CheckAndUpdateCompletionStatus(ctx, "user-1", "b1", nil, 300, 0)
			assert.NoError(t, err)
			if done {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transitions)
	user := loadTestUser(t, docs, "user-1")
	assert.Equal(t, int64(1), user.TotalBooksCompleted)
	assert.Equal(t, int64(300), user.TotalPagesRead)
}

func TestCheckAndUpdateCompletionStatus_UnknownUser(t *testing.T) {
	svc, _ := setupReadingService(t)

	_, err := svc.CheckAndUpdateCompletionStatus(context.Background(), "ghost", "b1", nil, 10, 0)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestGetBookSession_Missing(t *testing.T) {
	svc, _ := setupReadingService(t)

	_, err := svc.GetBookSession(context.Background(), "user-1", "nope")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestTrackerEndToEnd(t *testing.T) {
	svc, docs := setupReadingService(t)
	setBookmark(t, docs, "b1", 50)

	tr := tracker.New("user-1", svc, nil, nil)
	require.NoError(t, tr.SelectBook(tracker.Book{ID: "b1", PageCount: intPtr(300), BookmarkPage: 50}))

	out, err := tr.End(context.Background(), strPtr("short"), 80)
	require.NoError(t, err)

	assert.True(t, out.Persisted)
	assert.Equal(t, 30, out.Reconciliation.PagesRead)
	assert.Equal(t, int64(30), loadTestUser(t, docs, "user-1").TotalPagesRead)
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0m 0s"},
		{59, "0m 59s"},
		{61, "1m 1s"},
		{3600, "1h 0m 0s"},
		{3725, "1h 2m 5s"},
		{-5, "0m 0s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.seconds))
	}
}

func TestStatsService_GetUserStatistics(t *testing.T) {
	svc, docs := setupReadingService(t)
	_, err := svc.ReconcileSession(context.Background(), "user-1", sessionResult("b1", intPtr(300), 40, 3725))
	require.NoError(t, err)

	stats, err := NewStatsService(docs).GetUserStatistics(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.TotalSessions)
	assert.Equal(t, int64(40), stats.TotalPagesRead)
	assert.Equal(t, "1h 2m 5s", stats.FormattedReadingTime)
}
