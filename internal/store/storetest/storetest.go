// Package storetest holds behavior tests shared by every store.Documents backend.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklog/booklog-server/internal/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Documents

type profile struct {
	UserID     string         `json:"userId"`
	Nickname   string         `json:"nickname"`
	SavedBooks []string       `json:"savedBooks"`
	Goal       *int           `json:"readingGoal,omitempty"`
	DailyTimes map[string]int `json:"dailyTimes"`
	Sessions   int            `json:"totalSessions"`
}

// Run exercises the Documents contract against a backend.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Documents)
	}{
		{"GetMissing", testGetMissing},
		{"SetAndDecode", testSetAndDecode},
		{"SetReplaceVersusMerge", testSetReplaceVersusMerge},
		{"UpdateMissing", testUpdateMissing},
		{"UpdateNestedPath", testUpdateNestedPath},
		{"IncrementConcurrent", testIncrementConcurrent},
		{"ArrayUnionRemove", testArrayUnionRemove},
		{"ServerTimestamp", testServerTimestamp},
		{"ListDirectChildren", testListDirectChildren},
		{"TransactionSerializable", testTransactionSerializable},
		{"TransactionRollback", testTransactionRollback},
		{"Delete", testDelete},
		{"InvalidPath", testInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func testGetMissing(t *testing.T, s store.Documents) {
	doc, err := s.Get(context.Background(), "users/nobody")
	require.NoError(t, err)
	assert.False(t, doc.Exists())
	assert.Equal(t, "nobody", doc.ID())
	assert.Empty(t, doc.Data())
}

func testSetAndDecode(t *testing.T, s store.Documents) {
	ctx := context.Background()
	goal := 30

	err := s.Set(ctx, "users/u1", map[string]any{
		"userId":      "u1",
		"nickname":    "efe",
		"savedBooks":  []string{},
		"readingGoal": goal,
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	require.True(t, doc.Exists())

	var p profile
	require.NoError(t, doc.DataTo(&p))
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "efe", p.Nickname)
	require.NotNil(t, p.Goal)
	assert.Equal(t, 30, *p.Goal)
	assert.Equal(t, int64(30), doc.Int("readingGoal"))
	assert.Equal(t, "efe", doc.String("nickname"))
}

func testSetReplaceVersusMerge(t *testing.T, s store.Documents) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{
		"nickname":   "efe",
		"dailyTimes": map[string]any{"2025-01-01": 10},
	}))

	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{
		"readingGoal": 20,
		"dailyTimes":  map[string]any{"2025-01-02": 5},
	}, store.Merge()))

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	var p profile
	require.NoError(t, doc.DataTo(&p))
	assert.Equal(t, "efe", p.Nickname, "merge keeps untouched fields")
	assert.Equal(t, map[string]int{"2025-01-01": 10, "2025-01-02": 5}, p.DailyTimes, "merge deep-merges maps")

	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"nickname": "new"}))
	doc, err = s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.String("nickname"))
	assert.Nil(t, doc.Data()["readingGoal"], "replace drops other fields")
}

func testUpdateMissing(t *testing.T, s store.Documents) {
	err := s.Update(context.Background(), "users/ghost", map[string]any{"readingGoal": 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testUpdateNestedPath(t *testing.T, s store.Documents) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"dailyTimes": map[string]any{"2025-01-01": 10}}))

	require.NoError(t, s.Update(ctx, "users/u1", map[string]any{"dailyTimes.2025-01-02": 7}))

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	var p profile
	require.NoError(t, doc.DataTo(&p))
	assert.Equal(t, map[string]int{"2025-01-01": 10, "2025-01-02": 7}, p.DailyTimes)
}

func testIncrementConcurrent(t *testing.T, s store.Documents) {
	ctx := context.Background()
	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Set(ctx, "users/u1", map[string]any{
				"totalSessions":    store.Increment(1),
				"totalReadingTime": store.Increment(60),
			}, store.Merge())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, int64(writers), doc.Int("totalSessions"))
	assert.Equal(t, int64(writers*60), doc.Int("totalReadingTime"))
}

func testArrayUnionRemove(t *testing.T, s store.Documents) {
	ctx := context.Background()
	path := "users/u1"

	require.NoError(t, s.Set(ctx, path, map[string]any{"savedBooks": store.ArrayUnion("a", "b")}, store.Merge()))
	require.NoError(t, s.Set(ctx, path, map[string]any{"savedBooks": store.ArrayUnion("b", "c")}, store.Merge()))
	require.NoError(t, s.Update(ctx, path, map[string]any{"savedBooks": store.ArrayRemove("a", "zzz")}))

	doc, err := s.Get(ctx, path)
	require.NoError(t, err)
	var p profile
	require.NoError(t, doc.DataTo(&p))
	assert.ElementsMatch(t, []string{"b", "c"}, p.SavedBooks)
}

func testServerTimestamp(t *testing.T, s store.Documents) {
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	require.NoError(t, s.Set(ctx, "users/u1/books/b1", map[string]any{"timestamp": store.ServerTimestamp()}, store.Merge()))

	doc, err := s.Get(ctx, "users/u1/books/b1")
	require.NoError(t, err)
	ts, ok := doc.Time("timestamp")
	require.True(t, ok)
	assert.True(t, ts.After(before))
	assert.True(t, ts.Before(time.Now().Add(time.Second)))
}

func testListDirectChildren(t *testing.T, s store.Documents) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"nickname": "efe"}))
	require.NoError(t, s.Set(ctx, "users/u1/books/b2", map[string]any{"bookmarkPage": 2}))
	require.NoError(t, s.Set(ctx, "users/u1/books/b1", map[string]any{"bookmarkPage": 1}))
	require.NoError(t, s.Set(ctx, "users/u2/books/b9", map[string]any{"bookmarkPage": 9}))

	docs, err := s.List(ctx, "users/u1/books")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b1", docs[0].ID())
	assert.Equal(t, "b2", docs[1].ID())
	assert.Equal(t, int64(1), docs[0].Int("bookmarkPage"))

	users, err := s.List(ctx, "users")
	require.NoError(t, err)
	require.Len(t, users, 1, "subcollection documents are not children of users")
}

// testTransactionSerializable performs read-then-write without transforms;
// only serializable transactions keep every increment.
func testTransactionSerializable(t *testing.T, s store.Documents) {
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
				doc, err := tx.Get("users/u1")
				if err != nil {
					return err
				}
				return tx.Set("users/u1", map[string]any{"totalSessions": doc.Int("totalSessions") + 1}, store.Merge())
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, int64(writers), doc.Int("totalSessions"))
}

func testTransactionRollback(t *testing.T, s store.Documents) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		if err := tx.Set("users/u1", map[string]any{"nickname": "ghost"}); err != nil {
			return err
		}
		doc, err := tx.Get("users/u1")
		if err != nil {
			return err
		}
		assert.Equal(t, "ghost", doc.String("nickname"), "reads see pending writes")
		return boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.False(t, doc.Exists())
}

func testDelete(t *testing.T, s store.Documents) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"nickname": "efe"}))
	require.NoError(t, s.Delete(ctx, "users/u1"))
	require.NoError(t, s.Delete(ctx, "users/u1"))

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.False(t, doc.Exists())
}

func testInvalidPath(t *testing.T, s store.Documents) {
	ctx := context.Background()

	_, err := s.Get(ctx, "users")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	err = s.Set(ctx, "users//books/b1", map[string]any{"x": 1})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = s.List(ctx, "users/u1")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
