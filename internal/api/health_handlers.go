package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	// healthProbePath is read to prove the store answers. It never exists.
	healthProbePath = "health/probe"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"search":   s.checkSearchIndex(),
		"trackers": s.checkTrackers(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch {
		case c.Status == statusUnhealthy:
			overall = statusUnhealthy
		case c.Status == statusDegraded && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkDatabase verifies the document store answers a read.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.docs == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}

	start := time.Now()
	_, err := s.docs.Get(ctx, healthProbePath)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "database read failed",
		}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.services == nil || s.services.Index == nil {
		return ComponentHealth{Status: statusDegraded, Message: "shelf search not configured"}
	}

	start := time.Now()
	count, err := s.services.Index.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: fmt.Sprintf("%d shelved books indexed", count),
	}
}

// checkTrackers reports how many reading sessions are running.
func (s *Server) checkTrackers() ComponentHealth {
	if s.trackers == nil {
		return ComponentHealth{Status: statusDegraded, Message: "session trackers not configured"}
	}

	switch n := s.trackers.Active(); n {
	case 1:
		return ComponentHealth{Status: statusHealthy, Message: "1 running session"}
	default:
		return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d running sessions", n)}
	}
}
