package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklog/booklog-server/internal/domain"
)

func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recordReadingTime",
		Method:      http.MethodPost,
		Path:        "/api/v1/stats/reading-time",
		Summary:     "Record reading time",
		Description: "Adds seconds to today's reading time. Zero seconds only applies a pending day rollover.",
		Tags:        []string{"Stats"},
		Security:    bearer,
	}, s.handleRecordReadingTime)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get lifetime statistics",
		Tags:        []string{"Stats"},
		Security:    bearer,
	}, s.handleGetStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDailyProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats/daily",
		Summary:     "Get today's progress",
		Description: "Returns today's minutes against the goal. Without refresh the stored value may still describe the previous day.",
		Tags:        []string{"Stats"},
		Security:    bearer,
	}, s.handleGetDailyProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "getWeeklyMinutes",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats/weekly",
		Summary:     "Get the last seven days",
		Description: "Returns the minutes of the seven days ending today, oldest first",
		Tags:        []string{"Stats"},
		Security:    bearer,
	}, s.handleGetWeeklyMinutes)
}

// === DTOs ===

// RecordReadingTimeInput contains the time to add.
type RecordReadingTimeInput struct {
	Body struct {
		Seconds int `json:"seconds" minimum:"0" maximum:"86400" doc:"Seconds read"`
	}
}

// RecordReadingTimeResponse reports the rollover.
type RecordReadingTimeResponse struct {
	DayRolledOver bool `json:"day_rolled_over" doc:"Whether the daily counters started a new day"`
}

// RecordReadingTimeOutput wraps the result for Huma.
type RecordReadingTimeOutput struct {
	Body RecordReadingTimeResponse
}

// StatsResponse contains the lifetime counters.
type StatsResponse struct {
	TotalSessions        int64  `json:"total_sessions" doc:"Finished reading sessions"`
	TotalReadingTime     int64  `json:"total_reading_time" doc:"Reading time in seconds"`
	TotalPagesRead       int64  `json:"total_pages_read" doc:"Pages read"`
	TotalBooksCompleted  int64  `json:"total_books_completed" doc:"Books completed"`
	FormattedReadingTime string `json:"formatted_reading_time" doc:"Reading time as 1h 2m 3s"`
}

// StatsOutput wraps the counters for Huma.
type StatsOutput struct {
	Body StatsResponse
}

// DailyProgressInput selects stale or refreshed progress.
type DailyProgressInput struct {
	Refresh bool `query:"refresh" doc:"Apply a pending day rollover before reading"`
}

// DailyProgressResponse is today's progress.
type DailyProgressResponse struct {
	MinutesRead int  `json:"minutes_read" doc:"Minutes read today"`
	Goal        *int `json:"goal,omitempty" doc:"Daily goal in minutes"`
}

// DailyProgressOutput wraps the progress for Huma.
type DailyProgressOutput struct {
	Body DailyProgressResponse
}

// DayMinutesResponse is one day of the week chart.
type DayMinutesResponse struct {
	Date    string `json:"date" doc:"Calendar day (YYYY-MM-DD)"`
	Weekday string `json:"weekday" doc:"Short weekday label"`
	Minutes int    `json:"minutes" doc:"Minutes read"`
}

// WeeklyResponse lists seven days.
type WeeklyResponse struct {
	Days []DayMinutesResponse `json:"days" doc:"Seven days, oldest first"`
}

// WeeklyOutput wraps the week for Huma.
type WeeklyOutput struct {
	Body WeeklyResponse
}

// === Handlers ===

func (s *Server) handleRecordReadingTime(ctx context.Context, input *RecordReadingTimeInput) (*RecordReadingTimeOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	didReset, err := s.services.Aggregator.RecordReadingTime(ctx, userID, input.Body.Seconds)
	if err != nil {
		return nil, err
	}
	return &RecordReadingTimeOutput{Body: RecordReadingTimeResponse{DayRolledOver: didReset}}, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Stats.GetUserStatistics(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: StatsResponse{
		TotalSessions:        stats.TotalSessions,
		TotalReadingTime:     stats.TotalReadingTime,
		TotalPagesRead:       stats.TotalPagesRead,
		TotalBooksCompleted:  stats.TotalBooksCompleted,
		FormattedReadingTime: stats.FormattedReadingTime,
	}}, nil
}

func (s *Server) handleGetDailyProgress(ctx context.Context, input *DailyProgressInput) (*DailyProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	var progress *domain.DailyProgress
	if input.Refresh {
		progress, err = s.services.Aggregator.RefreshDailyProgress(ctx, userID)
	} else {
		progress, err = s.services.Aggregator.GetDailyProgress(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &DailyProgressOutput{Body: DailyProgressResponse{
		MinutesRead: progress.MinutesRead,
		Goal:        progress.Goal,
	}}, nil
}

func (s *Server) handleGetWeeklyMinutes(ctx context.Context, _ *struct{}) (*WeeklyOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	week, err := s.services.Aggregator.GetWeeklyMinutes(ctx, userID)
	if err != nil {
		return nil, err
	}

	days := make([]DayMinutesResponse, len(week))
	for i, d := range week {
		days[i] = DayMinutesResponse{Date: d.Date, Weekday: d.Weekday, Minutes: d.Minutes}
	}
	return &WeeklyOutput{Body: WeeklyResponse{Days: days}}, nil
}
