// Package api provides the HTTP API server and handlers for Booklog.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/booklog/booklog-server/internal/http/response"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/tracker"
)

const (
	// APIVersion is reported in the OpenAPI document.
	APIVersion = "1.0.0"

	authPathPrefix = "/api/v1/auth/"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	docs            store.Documents
	services        *Services
	trackers        *tracker.Manager
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(docs store.Documents, services *Services, trackers *tracker.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		docs:            docs,
		services:        services,
		trackers:        trackers,
		router:          chi.NewRouter(),
		logger:          logger,
		authRateLimiter: NewRateLimiter(20, time.Minute, 10),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Booklog API", APIVersion)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler(logger)

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown releases background resources held by the server.
func (s *Server) Shutdown() error {
	s.authRateLimiter.Stop()
	return nil
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Compress(5))
	s.router.Use(RateLimitMiddleware(s.authRateLimiter, authPathPrefix, s.logger))
	s.router.Use(authMiddleware(s.services.Auth))

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "Method not allowed", s.logger)
	})
}

// setupRoutes registers every huma operation.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerMeRoutes()
	s.registerCatalogRoutes()
	s.registerLibraryRoutes()
	s.registerSessionRoutes()
	s.registerStatsRoutes()
	s.registerMotivationRoutes()
}

// bearer is the security requirement of authenticated operations.
var bearer = []map[string][]string{{"bearer": {}}}
