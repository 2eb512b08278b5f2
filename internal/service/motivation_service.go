package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/booklog/booklog-server/internal/domain"
	"github.com/booklog/booklog-server/internal/store"
)

// Motivation is the home screen header.
type Motivation struct {
	Greeting string `json:"greeting"`
	Quote    string `json:"quote"`
	Date     string `json:"date"`
}

// MotivationService picks the quote of the day and a greeting.
type MotivationService struct {
	docs   store.Documents
	days   *Aggregator
	pick   func(n int) int
	logger *slog.Logger
}

// NewMotivationService creates a new motivation service. Days follow the
// aggregator's calendar.
func NewMotivationService(docs store.Documents, days *Aggregator, logger *slog.Logger) *MotivationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MotivationService{docs: docs, days: days, pick: rand.IntN, logger: logger}
}

// DailyMotivation returns the user's quote for today, choosing and storing
// a new one on the first call of each day.
func (s *MotivationService) DailyMotivation(ctx context.Context, userID string) (*Motivation, error) {
	today := s.days.Today()
	path := store.UserPath(userID)

	var quote string
	err := s.docs.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		doc, err := tx.Get(path)
		if err != nil {
			return err
		}
		user, err := decodeUser(doc, userID)
		if err != nil {
			return err
		}

		if user.MotivationDate == today && user.DailyMotivation != "" {
			quote = user.DailyMotivation
			return nil
		}

		quote = s.choose(motivationQuotes, fallbackQuote)
		return tx.Set(path, map[string]any{
			domain.FieldMotivationDate:  today,
			domain.FieldDailyMotivation: quote,
		}, store.Merge())
	})
	if err != nil {
		return nil, fmt.Errorf("daily motivation: %w", err)
	}

	user, err := loadUser(ctx, s.docs, userID)
	if err != nil {
		return nil, err
	}

	return &Motivation{
		Greeting: s.WelcomeMessage(user.Nickname),
		Quote:    quote,
		Date:     today,
	}, nil
}

// WelcomeMessage returns a random greeting addressed to nickname.
func (s *MotivationService) WelcomeMessage(nickname string) string {
	if nickname == "" {
		nickname = "Guest"
	}
	return s.choose(welcomeGreetings, "Welcome,") + " " + nickname + "!"
}

func (s *MotivationService) choose(options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	return options[s.pick(len(options))]
}
