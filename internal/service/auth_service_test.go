package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklog/booklog-server/internal/auth"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/validation"
)

func setupAuth(t *testing.T) (*AuthService, store.Documents) {
	t.Helper()

	docs := setupTestStore(t)
	tokens, err := auth.NewTokenService(make([]byte, auth.KeySize), time.Hour)
	require.NoError(t, err)
	return NewAuthService(docs, tokens, validation.New(), nil), docs
}

func TestSignup_CreatesAggregate(t *testing.T) {
	svc, docs := setupAuth(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Email: "  Reader@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, strings.HasPrefix(resp.User.ID, "user-"))

	user := loadTestUser(t, docs, resp.User.ID)
	assert.Equal(t, "reader@example.com", user.Email)
	assert.Equal(t, "reader", user.Nickname)
	assert.Empty(t, user.SavedBooks)
	assert.NotNil(t, user.SavedBooks)
	assert.Nil(t, user.ReadingGoal)
	assert.False(t, user.CreatedAt.IsZero())
	assert.True(t, auth.VerifyPassword(user.PasswordHash, "password123"))
}

func TestSignup_ExplicitNickname(t *testing.T) {
	svc, _ := setupAuth(t)

	resp, err := svc.Signup(context.Background(), SignupRequest{Email: "a@example.com", Password: "password123", Nickname: " Efe "})
	require.NoError(t, err)
	assert.Equal(t, "Efe", resp.User.Nickname)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: "reader@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupRequest{Email: "READER@example.com", Password: "password456"})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestSignup_ConcurrentSameEmail(t *testing.T) {
	svc, docs := setupAuth(t)
	ctx := context.Background()

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Signup(ctx, SignupRequest{Email: "race@example.com", Password: "password123"})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
		}
	}
	assert.Equal(t, 1, succeeded)

	users, err := docs.List(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Signup(context.Background(), SignupRequest{Email: "not-an-email", Password: "password123"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Signup(context.Background(), SignupRequest{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestLogin(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, SignupRequest{Email: "reader@example.com", Password: "password123"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Email: "Reader@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, resp.User.ID)

	user, claims, err := svc.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, user.ID)
	assert.Equal(t, "reader@example.com", claims.Email)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: "reader@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestVerifyAccessToken_Rejects(t *testing.T) {
	svc, docs := setupAuth(t)
	ctx := context.Background()

	_, _, err := svc.VerifyAccessToken(ctx, "garbage")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	resp, err := svc.Signup(ctx, SignupRequest{Email: "reader@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, docs.Delete(ctx, store.UserPath(resp.User.ID)))

	_, _, err = svc.VerifyAccessToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestEmailPath_SingleSegment(t *testing.T) {
	assert.NoError(t, store.ValidatePath(emailPath("odd/local@example.com")))
}
