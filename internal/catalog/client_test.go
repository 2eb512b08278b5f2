package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumeJSON = `{
  "kind": "books#volume",
  "id": "zyTCAlFPjgYC",
  "volumeInfo": {
    "title": "The Google Story",
    "authors": ["David A. Vise", "Mark Malseed"],
    "publisher": "Random House",
    "publishedDate": "2005-11-15",
    "description": "<p>Here is the <b>story</b> behind one of the most remarkable companies.</p>",
    "industryIdentifiers": [
      {"type": "ISBN_10", "identifier": "055380457X"},
      {"type": "ISBN_13", "identifier": "9780553804577"}
    ],
    "pageCount": 207,
    "categories": ["Browsers (Computer programs)"],
    "averageRating": 3.5,
    "ratingsCount": 136,
    "language": "en",
    "imageLinks": {
      "smallThumbnail": "http://books.google.com/books?id=zyTCAlFPjgYC&zoom=5",
      "thumbnail": "http://books.google.com/books?id=zyTCAlFPjgYC&zoom=1"
    }
  },
  "searchInfo": {"textSnippet": "The &quot;Google&quot; story<br>in <b>full</b>"}
}`

type fakeBooks struct {
	server   *httptest.Server
	searches atomic.Int32
	gets     atomic.Int32
	lastQ    atomic.Value
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeBooks(t *testing.T) *fakeBooks {
	t.Helper()
	f := &fakeBooks{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.handler != nil && f.handler(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/books/v1/volumes":
			f.searches.Add(1)
			f.lastQ.Store(r.URL.Query().Get("q"))
			assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
			fmt.Fprintf(w, `{"kind":"books#volumes","totalItems":1,"items":[%s]}`, volumeJSON)
		case r.URL.Path == "/books/v1/volumes/zyTCAlFPjgYC":
			f.gets.Add(1)
			fmt.Fprint(w, volumeJSON)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"The volume ID could not be found."}}`)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeBooks, cache Cache) *Client {
	t.Helper()
	c, err := New(context.Background(), Options{
		BaseURL:       f.server.URL + "/",
		HTTPClient:    f.server.Client(),
		RatePerMinute: 6000,
		Timeout:       5 * time.Second,
		Cache:         cache,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestClient_Search(t *testing.T) {
	f := newFakeBooks(t)
	c := newTestClient(t, f, nil)

	items, err := c.Search(context.Background(), "google story")
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "google story", f.lastQ.Load())
	assert.Equal(t, "zyTCAlFPjgYC", item.ID)
	assert.Equal(t, "The Google Story", item.Title)
	assert.Equal(t, []string{"David A. Vise", "Mark Malseed"}, item.Authors)
	require.NotNil(t, item.PageCount)
	assert.Equal(t, 207, *item.PageCount)
	assert.Equal(t, "9780553804577", item.ISBN13)
	assert.Equal(t, "055380457X", item.Identifiers["ISBN_10"])
	assert.True(t, strings.HasPrefix(item.Thumbnail, "https://"))
	assert.Equal(t, "Here is the **story** behind one of the most remarkable companies.", item.Description)
	assert.Equal(t, `The "Google" story in full`, item.Snippet)
}

func TestClient_SearchRewritesISBN(t *testing.T) {
	f := newFakeBooks(t)
	c := newTestClient(t, f, nil)

	_, err := c.Search(context.Background(), "0-306-40615-2")
	require.NoError(t, err)

	assert.Equal(t, "isbn:9780306406157", f.lastQ.Load())
}

func TestClient_SearchEmptyQuery(t *testing.T) {
	f := newFakeBooks(t)
	c := newTestClient(t, f, nil)

	items, err := c.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(0), f.searches.Load())
}

func TestClient_GetByID(t *testing.T) {
	f := newFakeBooks(t)
	c := newTestClient(t, f, nil)

	item, err := c.GetByID(context.Background(), "zyTCAlFPjgYC")
	require.NoError(t, err)
	assert.Equal(t, "The Google Story", item.Title)
}

func TestClient_GetByIDNotFound(t *testing.T) {
	f := newFakeBooks(t)
	c := newTestClient(t, f, nil)

	_, err := c.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "get", cerr.Op)
	assert.Equal(t, "missing", cerr.Arg)
}

func TestClient_ServerErrorIsNetwork(t *testing.T) {
	f := newFakeBooks(t)
	f.handler = func(w http.ResponseWriter, _ *http.Request) bool {
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	}
	c := newTestClient(t, f, nil)

	_, err := c.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClient_MalformedPayloadIsDecode(t *testing.T) {
	f := newFakeBooks(t)
	f.handler = func(w http.ResponseWriter, _ *http.Request) bool {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [ {"id": `)
		return true
	}
	c := newTestClient(t, f, nil)

	_, err := c.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestClient_UnreachableIsNetwork(t *testing.T) {
	f := newFakeBooks(t)
	c := newTestClient(t, f, nil)
	f.server.Close()

	_, err := c.GetByID(context.Background(), "zyTCAlFPjgYC")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClient_GetByIDSharesConcurrentLookups(t *testing.T) {
	f := newFakeBooks(t)
	release := make(chan struct{})
	f.handler = func(_ http.ResponseWriter, r *http.Request) bool {
		if strings.HasPrefix(r.URL.Path, "/books/v1/volumes/") {
			<-release
		}
		return false
	}
	c := newTestClient(t, f, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := c.GetByID(context.Background(), "zyTCAlFPjgYC")
			assert.NoError(t, err)
			assert.Equal(t, "zyTCAlFPjgYC", item.ID)
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), f.gets.Load())
}

func TestClient_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFakeBooks(t)
	c := newTestClient(t, f, NewRedisCache(rdb))
	ctx := context.Background()

	first, err := c.Search(ctx, "Google Story")
	require.NoError(t, err)
	second, err := c.Search(ctx, "google story")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.searches.Load())
	assert.True(t, mr.Exists("booklog:catalog:search:google story"))

	_, err = c.GetByID(ctx, "zyTCAlFPjgYC")
	require.NoError(t, err)
	_, err = c.GetByID(ctx, "zyTCAlFPjgYC")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.gets.Load())
}

func TestClient_CacheFailureFallsBackToNetwork(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	f := newFakeBooks(t)
	c := newTestClient(t, f, NewRedisCache(rdb))

	items, err := c.Search(context.Background(), "google")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
