package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklog/booklog-server/internal/auth"
	"github.com/booklog/booklog-server/internal/catalog"
	"github.com/booklog/booklog-server/internal/domain"
	"github.com/booklog/booklog-server/internal/search"
	"github.com/booklog/booklog-server/internal/service"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/tracker"
	"github.com/booklog/booklog-server/internal/validation"
)

// testEnvelope mirrors the response envelope for decoding.
type testEnvelope[T any] struct {
	V       int  `json:"v"`
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	return env
}

// requireError checks an error envelope.
func requireError(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, resp.Code, "body: %s", resp.Body.String())
	env := decodeEnvelope[json.RawMessage](t, resp)
	assert.Equal(t, 1, env.V)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
}

// fakeCatalog serves a fixed set of volumes.
type fakeCatalog struct {
	mu    sync.Mutex
	items map[string]domain.CatalogItem
	down  bool
}

func (c *fakeCatalog) Search(_ context.Context, query string) ([]domain.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, &catalog.Error{Op: "search", Arg: query, Err: catalog.ErrNetwork}
	}
	out := []domain.CatalogItem{}
	for _, it := range c.items {
		out = append(out, it)
	}
	return out, nil
}

func (c *fakeCatalog) GetByID(_ context.Context, id string) (*domain.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, &catalog.Error{Op: "get", Arg: id, Err: catalog.ErrNetwork}
	}
	it, ok := c.items[id]
	if !ok {
		return nil, &catalog.Error{Op: "get", Arg: id, Err: catalog.ErrNotFound}
	}
	return &it, nil
}

func (c *fakeCatalog) setDown(down bool) {
	c.mu.Lock()
	c.down = down
	c.mu.Unlock()
}

// manualClock hands out tickers the test drives by hand.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

func (c *manualClock) NewTicker(time.Duration) tracker.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, mt)
	return mt
}

func (c *manualClock) tick(t *testing.T, n int) {
	t.Helper()
	c.mu.Lock()
	require.NotEmpty(t, c.tickers)
	mt := c.tickers[len(c.tickers)-1]
	c.mu.Unlock()

	for range n {
		select {
		case mt.ch <- time.Now():
		case <-time.After(time.Second):
			t.Fatal("ticker not consumed")
		}
	}
}

func intPtr(i int) *int { return &i }

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api     humatest.TestAPI
	catalog *fakeCatalog
	clock   *manualClock
	docs    store.Documents
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	docs, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	index, err := search.New(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	key := make([]byte, auth.KeySize)
	copy(key, "test-secret-key-for-testing-only")
	tokens, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	cat := &fakeCatalog{items: map[string]domain.CatalogItem{
		"dune":   {ID: "dune", Title: "Dune", Authors: []string{"Frank Herbert"}, PageCount: intPtr(412)},
		"emma":   {ID: "emma", Title: "Emma", Authors: []string{"Jane Austen"}, PageCount: intPtr(474)},
		"hobbit": {ID: "hobbit", Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}},
	}}
	clock := &manualClock{}
	v := validation.New()

	aggregator := service.NewAggregator(docs, time.UTC, nil)
	reading := service.NewReadingService(docs, aggregator, nil)
	services := &Services{
		Auth:       service.NewAuthService(docs, tokens, v, nil),
		User:       service.NewUserService(docs, v, nil),
		Catalog:    service.NewCatalogService(cat, nil),
		Library:    service.NewLibraryService(docs, cat, nil, index, nil),
		Reading:    reading,
		Aggregator: aggregator,
		Stats:      service.NewStatsService(docs),
		Motivation: service.NewMotivationService(docs, aggregator, nil),
		Index:      index,
	}
	trackers := tracker.NewManager(reading, nil, tracker.WithClock(clock))
	t.Cleanup(func() { _ = trackers.Shutdown() })

	s := NewServer(docs, services, trackers, nil)
	t.Cleanup(func() { _ = s.Shutdown() })

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		catalog: cat,
		clock:   clock,
		docs:    docs,
	}
}

// signup creates an account and returns its bearer header and user id.
func (ts *testServer) signup(t *testing.T, email, nickname string) (authHeader, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":    email,
		"password": "correct horse battery",
		"nickname": nickname,
	})
	require.Equal(t, http.StatusCreated, resp.Code, "signup failed: %s", resp.Body.String())

	env := decodeEnvelope[AuthResponse](t, resp)
	require.True(t, env.Success)
	require.NotEmpty(t, env.Data.AccessToken)
	return "Authorization: Bearer " + env.Data.AccessToken, env.Data.User.ID
}

// saveBook puts a catalog volume on the caller's shelf.
func (ts *testServer) saveBook(t *testing.T, authHeader, bookID string) {
	t.Helper()
	resp := ts.api.Put("/api/v1/library/"+bookID, authHeader)
	require.Equal(t, http.StatusOK, resp.Code, "save failed: %s", resp.Body.String())
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/nope")
	requireError(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestServer_RequiresAuthentication(t *testing.T) {
	ts := setupTestServer(t)

	paths := []string{"/api/v1/me", "/api/v1/library", "/api/v1/session", "/api/v1/stats", "/api/v1/motivation"}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			requireError(t, ts.api.Get(p), http.StatusUnauthorized, "UNAUTHORIZED")
		})
	}
}

func TestServer_RejectsBadToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/me", "Authorization: Bearer v4.local.garbage")
	requireError(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/library", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}
