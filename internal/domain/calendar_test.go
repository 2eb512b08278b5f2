package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLastDays(t *testing.T) {
	today := time.Date(2025, time.March, 2, 15, 0, 0, 0, time.UTC)

	days := LastDays(today, 7)

	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = DateKey(d)
	}
	assert.Equal(t, []string{
		"2025-02-24", "2025-02-25", "2025-02-26", "2025-02-27",
		"2025-02-28", "2025-03-01", "2025-03-02",
	}, keys)
	assert.Equal(t, "Mon", WeekdayLabel(days[0]))
	assert.Equal(t, "Sun", WeekdayLabel(days[6]))
}

func TestLastDays_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	today := time.Date(2025, time.March, 31, 0, 30, 0, 0, loc)

	days := LastDays(today, 3)

	assert.Equal(t, "2025-03-29", DateKey(days[0]))
	assert.Equal(t, "2025-03-30", DateKey(days[1]))
	assert.Equal(t, "2025-03-31", DateKey(days[2]))
}
