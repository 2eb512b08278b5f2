package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/booklog/booklog-server/internal/auth"
	"github.com/booklog/booklog-server/internal/domain"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/id"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/validation"
)

// emailsCollection maps normalized emails to user ids.
const emailsCollection = "emails"

// dummyHash is verified against when an email is unknown so that failed
// logins take the same time either way.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("booklog-timing-equalizer")
	return h
})

// SignupRequest creates an account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Nickname string `json:"nickname,omitempty" validate:"omitempty,nickname"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

// AuthResponse is returned by Signup and Login.
type AuthResponse struct {
	User        *domain.User
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService creates accounts and verifies credentials.
type AuthService struct {
	docs      store.Documents
	tokens    *auth.TokenService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(docs store.Documents, tokens *auth.TokenService, v *validation.Validator, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{docs: docs, tokens: tokens, validator: v, logger: logger}
}

// Signup creates the user aggregate with an empty shelf and no goal. The
// nickname defaults to the local part of the email.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Nickname = normalizeNickname(req.Nickname)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.NewUserID()
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname, _, _ = strings.Cut(req.Email, "@")
	}

	emailPath := emailPath(req.Email)
	userPath := store.UserPath(userID)
	err = s.docs.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		existing, err := tx.Get(emailPath)
		if err != nil {
			return err
		}
		if existing.Exists() {
			return domainerrors.AlreadyExists("email already in use")
		}
		if err := tx.Set(emailPath, map[string]any{domain.FieldUserID: userID}); err != nil {
			return err
		}
		return tx.Set(userPath, map[string]any{
			domain.FieldUserID:       userID,
			domain.FieldEmail:        req.Email,
			domain.FieldNickname:     nickname,
			domain.FieldPasswordHash: passwordHash,
			domain.FieldSavedBooks:   []string{},
			domain.FieldCreatedAt:    store.ServerTimestamp(),
			domain.FieldUpdatedAt:    store.ServerTimestamp(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	user, err := loadUser(ctx, s.docs, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "user_id", userID)
	return s.issue(user)
}

// Login checks the password and issues a new access token. Unknown emails
// and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	invalid := domainerrors.InvalidCredentials("invalid email or password")

	emailDoc, err := s.docs.Get(ctx, emailPath(req.Email))
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !emailDoc.Exists() {
		auth.VerifyPassword(dummyHash(), req.Password)
		return nil, invalid
	}

	user, err := loadUser(ctx, s.docs, emailDoc.String(domain.FieldUserID))
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.logger.Info("login rejected", "user_id", user.ID)
		return nil, invalid
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, req.Password)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return s.issue(user)
}

// VerifyAccessToken validates a token and returns its user.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := loadUser(ctx, s.docs, claims.UserID)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil, domainerrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	token, expires, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token, ExpiresAt: expires}, nil
}

func (s *AuthService) rehash(ctx context.Context, userID, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.docs.Update(ctx, store.UserPath(userID), map[string]any{domain.FieldPasswordHash: hash})
	}
	if err != nil {
		s.logger.Warn("failed to upgrade password hash", "user_id", userID, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailPath escapes the email so it is a single path segment.
func emailPath(email string) string {
	return emailsCollection + "/" + url.PathEscape(email)
}
