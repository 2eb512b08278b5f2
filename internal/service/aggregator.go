package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/booklog/booklog-server/internal/domain"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/store"
)

// WeekLength is the number of days returned by GetWeeklyMinutes.
const WeekLength = 7

// Aggregator keeps the per-day reading counters of a user.
//
// The counters (dailyMinutesRead, dailySeconds) describe lastResetDate only.
// RecordReadingTime rolls them over on the first write of a new calendar
// day, archiving the finished day into dailyTimes. Reads never roll over.
type Aggregator struct {
	docs   store.Documents
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewAggregator creates an Aggregator. Calendar days are evaluated in loc.
func NewAggregator(docs store.Documents, loc *time.Location, logger *slog.Logger) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{docs: docs, loc: loc, now: time.Now, logger: logger}
}

// Today returns the current calendar date as stored in lastResetDate.
func (a *Aggregator) Today() string {
	return domain.DateKey(a.now().In(a.loc))
}

// RecordReadingTime adds seconds to today's counters and reports whether
// the counters were reset first because the stored day was not today.
func (a *Aggregator) RecordReadingTime(ctx context.Context, userID string, seconds int) (bool, error) {
	if seconds < 0 {
		return false, domainerrors.Validationf("reading time must not be negative, got %d", seconds)
	}

	path := store.UserPath(userID)
	today := a.Today()
	var didReset bool

	err := a.docs.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
		didReset = false

		doc, err := tx.Get(path)
		if err != nil {
			return err
		}
		if !doc.Exists() {
			return domainerrors.NotFoundf("user %s not found", userID)
		}

		secs := doc.Int(domain.FieldDailySeconds)
		mins := doc.Int(domain.FieldDailyMinutesRead)
		last := doc.String(domain.FieldLastResetDate)

		fields := map[string]any{}
		if last != today {
			// Day keys sort chronologically. A stored day after today comes
			// from a clock or time zone change and is reset without archiving.
			if last != "" && last < today {
				if _, archived := doc.Map(domain.FieldDailyTimes)[last]; !archived {
					fields[domain.FieldDailyTimes+"."+last] = mins
				}
			}
			secs, mins = 0, 0
			didReset = true
		}

		secs += int64(seconds)
		mins += secs / 60
		secs %= 60

		fields[domain.FieldDailySeconds] = secs
		fields[domain.FieldDailyMinutesRead] = mins
		fields[domain.FieldLastResetDate] = today
		fields[domain.FieldUpdatedAt] = store.ServerTimestamp()
		return tx.Set(path, fields, store.Merge())
	})
	if err != nil {
		return false, fmt.Errorf("record reading time: %w", err)
	}

	if didReset {
		a.logger.Debug("daily reading counters rolled over", "user_id", userID, "date", today)
	}
	return didReset, nil
}

// GetDailyProgress returns the stored daily minutes and goal without a
// rollover check: after midnight it reports the previous day until the next
// write. Use RefreshDailyProgress when that matters.
func (a *Aggregator) GetDailyProgress(ctx context.Context, userID string) (*domain.DailyProgress, error) {
	user, err := loadUser(ctx, a.docs, userID)
	if err != nil {
		return nil, err
	}
	return &domain.DailyProgress{MinutesRead: user.DailyMinutesRead, Goal: user.ReadingGoal}, nil
}

// RefreshDailyProgress forces rollover evaluation with a zero-second write
// and then reads the progress.
func (a *Aggregator) RefreshDailyProgress(ctx context.Context, userID string) (*domain.DailyProgress, error) {
	if _, err := a.RecordReadingTime(ctx, userID, 0); err != nil {
		return nil, err
	}
	return a.GetDailyProgress(ctx, userID)
}

// GetWeeklyMinutes returns the minutes of the seven days ending today,
// oldest first. Only archived days count, so today is 0 until it rolls over.
func (a *Aggregator) GetWeeklyMinutes(ctx context.Context, userID string) ([]domain.DayMinutes, error) {
	user, err := loadUser(ctx, a.docs, userID)
	if err != nil {
		return nil, err
	}

	days := domain.LastDays(a.now().In(a.loc), WeekLength)
	out := make([]domain.DayMinutes, len(days))
	for i, day := range days {
		key := domain.DateKey(day)
		out[i] = domain.DayMinutes{
			Date:    key,
			Weekday: domain.WeekdayLabel(day),
			Minutes: user.DailyTimes[key],
		}
	}
	return out, nil
}
