package domain

// UserStatistics are the lifetime counters shown on the statistics screen.
type UserStatistics struct {
	TotalSessions        int64  `json:"totalSessions"`
	TotalReadingTime     int64  `json:"totalReadingTime"`
	TotalPagesRead       int64  `json:"totalPagesRead"`
	TotalBooksCompleted  int64  `json:"totalBooksCompleted"`
	FormattedReadingTime string `json:"formattedReadingTime"`
}

// DailyProgress is today's reading time against the goal.
type DailyProgress struct {
	MinutesRead int  `json:"minutesRead"`
	Goal        *int `json:"goal,omitempty"`
}

// DayMinutes is one bar of the weekly chart.
type DayMinutes struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Minutes int    `json:"minutes"`
}
