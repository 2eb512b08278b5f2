package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklog/booklog-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Create an account",
		Description:   "Creates a user with an empty shelf and returns an access token",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSignup)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns an access token",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)
}

// === DTOs ===

// SignupRequest is the request body for account creation.
type SignupRequest struct {
	Email    string `json:"email" maxLength:"254" doc:"Email address"`
	Password string `json:"password" minLength:"8" maxLength:"1024" doc:"Password"`
	Nickname string `json:"nickname,omitempty" maxLength:"160" doc:"Name used in greetings"`
}

// SignupInput wraps the signup request for Huma.
type SignupInput struct {
	Body SignupRequest
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" maxLength:"254" doc:"User email"`
	Password string `json:"password" maxLength:"1024" doc:"User password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// AuthResponse contains the access token and the user.
type AuthResponse struct {
	AccessToken string       `json:"access_token" doc:"PASETO access token"`
	TokenType   string       `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresAt   time.Time    `json:"expires_at" doc:"Token expiry"`
	ExpiresIn   int          `json:"expires_in" doc:"Token expiry in seconds"`
	User        UserResponse `json:"user" doc:"Authenticated user"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// === Handlers ===

func (s *Server) handleSignup(ctx context.Context, input *SignupInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Signup(ctx, service.SignupRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Nickname: input.Body.Nickname,
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: authResponse(resp)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: authResponse(resp)}, nil
}

func authResponse(resp *service.AuthResponse) AuthResponse {
	return AuthResponse{
		AccessToken: resp.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   resp.ExpiresAt,
		ExpiresIn:   int(time.Until(resp.ExpiresAt).Seconds()),
		User:        userResponse(resp.User),
	}
}
