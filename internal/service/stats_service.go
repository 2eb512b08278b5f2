package service

import (
	"context"
	"fmt"

	"github.com/booklog/booklog-server/internal/domain"
	"github.com/booklog/booklog-server/internal/store"
)

// StatsService presents the lifetime counters of a user.
type StatsService struct {
	docs store.Documents
}

// NewStatsService creates a new statistics service.
func NewStatsService(docs store.Documents) *StatsService {
	return &StatsService{docs: docs}
}

// GetUserStatistics returns the lifetime counters with a display form of
// the total reading time.
func (s *StatsService) GetUserStatistics(ctx context.Context, userID string) (*domain.UserStatistics, error) {
	user, err := loadUser(ctx, s.docs, userID)
	if err != nil {
		return nil, err
	}
	return &domain.UserStatistics{
		TotalSessions:        user.TotalSessions,
		TotalReadingTime:     user.TotalReadingTime,
		TotalPagesRead:       user.TotalPagesRead,
		TotalBooksCompleted:  user.TotalBooksCompleted,
		FormattedReadingTime: FormatTime(user.TotalReadingTime),
	}, nil
}

// FormatTime renders seconds as "1h 2m 3s", dropping the hours when zero.
func FormatTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}
