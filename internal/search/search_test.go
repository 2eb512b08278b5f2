package search

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklog/booklog-server/internal/domain"
)

// setupTestIndex creates a temporary shelf index for testing.
func setupTestIndex(t *testing.T) (*ShelfIndex, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "shelf-test-*")
	require.NoError(t, err)

	index, err := New(Options{DataPath: tmpDir})
	require.NoError(t, err)

	cleanup := func() {
		_ = index.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return index, cleanup
}

func seedShelf(t *testing.T, index *ShelfIndex) {
	t.Helper()
	require.NoError(t, index.IndexBatch([]*ShelfDocument{
		{UserID: "u1", BookID: "hobbit", Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}, Categories: []string{"Fantasy"}},
		{UserID: "u1", BookID: "dune", Title: "Dune", Authors: []string{"Frank Herbert"}, Description: "A desert planet and its spice.", ISBN13: "9780306406157"},
		{UserID: "u1", BookID: "emma", Title: "Emma", Authors: []string{"Jane Austen"}},
		{UserID: "u2", BookID: "hobbit", Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}},
	}))
}

func hitIDs(res *Result) []string {
	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.BookID
	}
	return ids
}

func TestNew_EmptyIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNew_ReopensExistingIndex(t *testing.T) {
	tmpDir := t.TempDir()

	index, err := New(Options{DataPath: tmpDir})
	require.NoError(t, err)
	require.NoError(t, index.Index(&ShelfDocument{UserID: "u1", BookID: "b1", Title: "Persuasion"}))
	require.NoError(t, index.Close())

	index, err = New(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestNew_RebuildsOnMappingChange(t *testing.T) {
	tmpDir := t.TempDir()

	index, err := New(Options{DataPath: tmpDir})
	require.NoError(t, err)
	require.NoError(t, index.Index(&ShelfDocument{UserID: "u1", BookID: "b1", Title: "Persuasion"}))
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(tmpDir+"/shelf.version", []byte("0"), 0o644))

	index, err = New(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearch_ScopedToOwner(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedShelf(t, index)

	res, err := index.Search(context.Background(), "u2", "hobbit", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hobbit"}, hitIDs(res))

	res, err = index.Search(context.Background(), "u2", "dune", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Hits, "other users' books never match")
}

func TestSearch_MatchesTitleAndAuthor(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedShelf(t, index)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"title", "hobbit", "hobbit"},
		{"author", "austen", "emma"},
		{"description", "spice", "dune"},
		{"typo", "hobit", "hobbit"},
		{"prefix", "dun", "dune"},
		{"category", "fantasy", "hobbit"},
		{"isbn", "0-306-40615-2", "dune"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(context.Background(), "u1", tt.query, 0)
			require.NoError(t, err)
			require.NotEmpty(t, res.Hits)
			assert.Equal(t, tt.want, res.Hits[0].BookID)
		})
	}
}

func TestSearch_EmptyQueryListsShelf(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedShelf(t, index)

	res, err := index.Search(context.Background(), "u1", "  ", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hobbit", "dune", "emma"}, hitIDs(res))
	assert.Equal(t, uint64(3), res.Total)
}

func TestSearch_StoredFields(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedShelf(t, index)

	res, err := index.Search(context.Background(), "u1", "emma", 1)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Emma", res.Hits[0].Title)
	assert.Equal(t, "Jane Austen", res.Hits[0].Authors)
	assert.NotEmpty(t, res.Hits[0].Highlights)
}

func TestRemove(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedShelf(t, index)

	require.NoError(t, index.Remove("u1", "hobbit"))
	require.NoError(t, index.Remove("u1", "never-indexed"))

	res, err := index.Search(context.Background(), "u1", "hobbit", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = index.Search(context.Background(), "u2", "hobbit", 0)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)
}

func TestRebuild(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedShelf(t, index)

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestFromCatalogItem(t *testing.T) {
	pages := 320
	item := &domain.CatalogItem{
		ID:         "vol1",
		Title:      "Café Stories",
		Authors:    []string{"A", "B"},
		Snippet:    "short",
		PageCount:  &pages,
		Categories: []string{"Fiction"},
		ISBN13:     "9780306406157",
	}

	doc := FromCatalogItem("u1", item)
	assert.Equal(t, "u1/vol1", doc.ID())

	m := doc.toMap()
	assert.Equal(t, "Café Stories", m["title"], "titles are NFC-normalized")
	assert.Equal(t, "A, B", m["authors"])
	assert.Equal(t, "short", m["description"])
	assert.Equal(t, []string{"fiction"}, m["categories"])
	assert.NotContains(t, m, "subtitle")
}
