package domain

import "time"

// DateLayout is the ISO calendar date used for lastResetDate and dailyTimes keys.
const DateLayout = "2006-01-02"

// DateKey formats t as a calendar date in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekdayLabel is the abbreviated weekday name ("Mon").
func WeekdayLabel(t time.Time) string {
	return t.Format("Mon")
}

// LastDays returns the n calendar days ending with today, oldest first.
func LastDays(today time.Time, n int) []time.Time {
	days := make([]time.Time, n)
	for i := range n {
		days[i] = today.AddDate(0, 0, i-(n-1))
	}
	return days
}
