package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerMotivationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMotivation",
		Method:      http.MethodGet,
		Path:        "/api/v1/motivation",
		Summary:     "Get today's motivation",
		Description: "Returns a greeting and the quote of the day. The quote changes once per calendar day.",
		Tags:        []string{"Motivation"},
		Security:    bearer,
	}, s.handleGetMotivation)
}

// MotivationResponse is the home screen header.
type MotivationResponse struct {
	Greeting string `json:"greeting" doc:"Greeting with the user's nickname"`
	Quote    string `json:"quote" doc:"Quote of the day"`
	Date     string `json:"date" doc:"Calendar day the quote belongs to"`
}

// MotivationOutput wraps the motivation for Huma.
type MotivationOutput struct {
	Body MotivationResponse
}

func (s *Server) handleGetMotivation(ctx context.Context, _ *struct{}) (*MotivationOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.services.Motivation.DailyMotivation(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MotivationOutput{Body: MotivationResponse{
		Greeting: m.Greeting,
		Quote:    m.Quote,
		Date:     m.Date,
	}}, nil
}
