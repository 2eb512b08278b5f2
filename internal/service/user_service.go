package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/booklog/booklog-server/internal/domain"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/store"
	"github.com/booklog/booklog-server/internal/validation"
)

// Reading goal bounds in minutes per day.
const (
	MinReadingGoal = 1
	MaxReadingGoal = 24 * 60
)

// UserService reads and edits a user's profile.
type UserService struct {
	docs      store.Documents
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(docs store.Documents, v *validation.Validator, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserService{docs: docs, validator: v, logger: logger}
}

// GetProfile returns the user aggregate.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return loadUser(ctx, s.docs, userID)
}

// UpdateNickname changes the display name.
func (s *UserService) UpdateNickname(ctx context.Context, userID, nickname string) (*domain.User, error) {
	nickname = normalizeNickname(nickname)
	if err := s.validator.Var("nickname", nickname, "required,nickname"); err != nil {
		return nil, err
	}

	if err := s.update(ctx, userID, map[string]any{domain.FieldNickname: nickname}); err != nil {
		return nil, err
	}
	s.logger.Info("nickname updated", "user_id", userID)
	return loadUser(ctx, s.docs, userID)
}

// SetReadingGoal sets the daily goal in minutes.
func (s *UserService) SetReadingGoal(ctx context.Context, userID string, minutes int) (*domain.User, error) {
	if minutes < MinReadingGoal || minutes > MaxReadingGoal {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"minutes": fmt.Sprintf("must be between %d and %d", MinReadingGoal, MaxReadingGoal),
		})
	}

	if err := s.update(ctx, userID, map[string]any{domain.FieldReadingGoal: minutes}); err != nil {
		return nil, err
	}
	s.logger.Info("reading goal set", "user_id", userID, "minutes", minutes)
	return loadUser(ctx, s.docs, userID)
}

// ClearReadingGoal removes the goal.
func (s *UserService) ClearReadingGoal(ctx context.Context, userID string) (*domain.User, error) {
	if err := s.update(ctx, userID, map[string]any{domain.FieldReadingGoal: store.DeleteField()}); err != nil {
		return nil, err
	}
	return loadUser(ctx, s.docs, userID)
}

func (s *UserService) update(ctx context.Context, userID string, fields map[string]any) error {
	fields[domain.FieldUpdatedAt] = store.ServerTimestamp()
	err := s.docs.Update(ctx, store.UserPath(userID), fields)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("user %s not found", userID)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// normalizeNickname trims and NFC-normalizes a nickname so visually equal
// names are stored identically.
func normalizeNickname(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
