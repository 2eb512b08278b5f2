package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklog/booklog-server/internal/domain"
)

func (s *Server) registerMeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMe",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Get my profile",
		Description: "Returns the authenticated user's profile and lifetime counters",
		Tags:        []string{"Profile"},
		Security:    bearer,
	}, s.handleGetMe)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMe",
		Method:      http.MethodPatch,
		Path:        "/api/v1/me",
		Summary:     "Update my profile",
		Description: "Changes the nickname used in greetings",
		Tags:        []string{"Profile"},
		Security:    bearer,
	}, s.handleUpdateMe)

	huma.Register(s.api, huma.Operation{
		OperationID: "setReadingGoal",
		Method:      http.MethodPut,
		Path:        "/api/v1/me/goal",
		Summary:     "Set daily reading goal",
		Description: "Sets the daily reading goal in minutes",
		Tags:        []string{"Profile"},
		Security:    bearer,
	}, s.handleSetReadingGoal)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearReadingGoal",
		Method:      http.MethodDelete,
		Path:        "/api/v1/me/goal",
		Summary:     "Clear daily reading goal",
		Tags:        []string{"Profile"},
		Security:    bearer,
	}, s.handleClearReadingGoal)
}

// === DTOs ===

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                  string    `json:"id" doc:"User ID"`
	Email               string    `json:"email" doc:"User email"`
	Nickname            string    `json:"nickname" doc:"Name used in greetings"`
	SavedBooks          []string  `json:"saved_books" doc:"Catalog volume ids on the shelf"`
	ReadingGoal         *int      `json:"reading_goal,omitempty" doc:"Daily goal in minutes"`
	TotalSessions       int64     `json:"total_sessions" doc:"Finished reading sessions"`
	TotalReadingTime    int64     `json:"total_reading_time" doc:"Lifetime reading time in seconds"`
	TotalPagesRead      int64     `json:"total_pages_read" doc:"Lifetime pages read"`
	TotalBooksCompleted int64     `json:"total_books_completed" doc:"Books completed"`
	CreatedAt           time.Time `json:"created_at" doc:"Creation timestamp"`
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body UserResponse
}

// UpdateMeInput contains the profile update.
type UpdateMeInput struct {
	Body struct {
		Nickname string `json:"nickname" minLength:"1" maxLength:"160" doc:"New nickname"`
	}
}

// SetReadingGoalInput contains the new goal.
type SetReadingGoalInput struct {
	Body struct {
		Minutes int `json:"minutes" minimum:"1" maximum:"1440" doc:"Daily goal in minutes"`
	}
}

func userResponse(u *domain.User) UserResponse {
	saved := u.SavedBooks
	if saved == nil {
		saved = []string{}
	}
	return UserResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Nickname:            u.Nickname,
		SavedBooks:          saved,
		ReadingGoal:         u.ReadingGoal,
		TotalSessions:       u.TotalSessions,
		TotalReadingTime:    u.TotalReadingTime,
		TotalPagesRead:      u.TotalPagesRead,
		TotalBooksCompleted: u.TotalBooksCompleted,
		CreatedAt:           u.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleGetMe(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.User.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: userResponse(user)}, nil
}

func (s *Server) handleUpdateMe(ctx context.Context, input *UpdateMeInput) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.User.UpdateNickname(ctx, userID, input.Body.Nickname)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: userResponse(user)}, nil
}

func (s *Server) handleSetReadingGoal(ctx context.Context, input *SetReadingGoalInput) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.User.SetReadingGoal(ctx, userID, input.Body.Minutes)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: userResponse(user)}, nil
}

func (s *Server) handleClearReadingGoal(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.User.ClearReadingGoal(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: userResponse(user)}, nil
}
