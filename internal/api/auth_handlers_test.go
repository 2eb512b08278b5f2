package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup_ReturnsTokenAndUser(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":    "Reader@Example.com",
		"password": "correct horse battery",
		"nickname": "Efe",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	env := decodeEnvelope[AuthResponse](t, resp)
	assert.Equal(t, 1, env.V)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, "Bearer", env.Data.TokenType)
	assert.Greater(t, env.Data.ExpiresIn, 0)
	assert.Equal(t, "reader@example.com", env.Data.User.Email)
	assert.Equal(t, "Efe", env.Data.User.Nickname)
	assert.Empty(t, env.Data.User.SavedBooks)
	assert.NotContains(t, resp.Body.String(), "passwordHash")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.signup(t, "reader@example.com", "Efe")

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":    "READER@example.com",
		"password": "another password",
	})
	requireError(t, resp, http.StatusConflict, "ALREADY_EXISTS")
}

func TestSignup_InvalidEmail(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":    "not-an-email",
		"password": "correct horse battery",
	})
	requireError(t, resp, http.StatusBadRequest, "VALIDATION")
}

func TestSignup_ShortPasswordRejectedBySchema(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":    "reader@example.com",
		"password": "short",
	})
	requireError(t, resp, http.StatusUnprocessableEntity, "VALIDATION")

	env := decodeEnvelope[map[string]any](t, resp)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "body.password")
}

func TestLogin(t *testing.T) {
	ts := setupTestServer(t)
	ts.signup(t, "reader@example.com", "Efe")

	t.Run("valid credentials", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "reader@example.com",
			"password": "correct horse battery",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		env := decodeEnvelope[AuthResponse](t, resp)
		token := env.Data.AccessToken
		require.NotEmpty(t, token)

		me := ts.api.Get("/api/v1/me", "Authorization: Bearer "+token)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, "Efe", decodeEnvelope[UserResponse](t, me).Data.Nickname)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "reader@example.com",
			"password": "wrong horse battery",
		})
		requireError(t, resp, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "correct horse battery",
		})
		requireError(t, resp, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	})
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	ts := setupTestServer(t)

	var last int
	for range 12 {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "whatever it is",
		})
		last = resp.Code
		if last == http.StatusTooManyRequests {
			requireError(t, resp, http.StatusTooManyRequests, "RATE_LIMITED")
			break
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestMe_UpdateNicknameAndGoal(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signup(t, "reader@example.com", "Efe")

	resp := ts.api.Patch("/api/v1/me", authHeader, map[string]any{"nickname": "  Deniz "})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Deniz", decodeEnvelope[UserResponse](t, resp).Data.Nickname)

	resp = ts.api.Put("/api/v1/me/goal", authHeader, map[string]any{"minutes": 30})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	goal := decodeEnvelope[UserResponse](t, resp).Data.ReadingGoal
	require.NotNil(t, goal)
	assert.Equal(t, 30, *goal)

	resp = ts.api.Put("/api/v1/me/goal", authHeader, map[string]any{"minutes": 0})
	requireError(t, resp, http.StatusUnprocessableEntity, "VALIDATION")

	resp = ts.api.Delete("/api/v1/me/goal", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Nil(t, decodeEnvelope[UserResponse](t, resp).Data.ReadingGoal)
}
