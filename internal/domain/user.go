package domain

import "time"

// Field names of the user document. Services write through these so that
// partial updates and reads agree on the stored layout.
const (
	FieldUserID              = "userId"
	FieldEmail               = "email"
	FieldNickname            = "nickname"
	FieldPasswordHash        = "passwordHash"
	FieldSavedBooks          = "savedBooks"
	FieldReadingGoal         = "readingGoal"
	FieldDailySeconds        = "dailySeconds"
	FieldDailyMinutesRead    = "dailyMinutesRead"
	FieldLastResetDate       = "lastResetDate"
	FieldDailyTimes          = "dailyTimes"
	FieldTotalSessions       = "totalSessions"
	FieldTotalReadingTime    = "totalReadingTime"
	FieldTotalPagesRead      = "totalPagesRead"
	FieldTotalBooksCompleted = "totalBooksCompleted"
	FieldMotivationDate      = "motivationDate"
	FieldDailyMotivation     = "dailyMotivation"
	FieldCreatedAt           = "createdAt"
	FieldUpdatedAt           = "updatedAt"
)

// User is the per-user aggregate document (users/{userId}).
//
// DailySeconds and DailyMinutesRead describe LastResetDate only; the first
// write on a later day folds them into DailyTimes and starts over.
// DailySeconds is always in [0, 60).
type User struct {
	ID           string `json:"userId"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
	PasswordHash string `json:"passwordHash,omitempty"` // Never returned by the API

	// SavedBooks is a set of catalog volume ids.
	SavedBooks []string `json:"savedBooks"`

	// ReadingGoal is the daily target in minutes; nil until the user sets one.
	ReadingGoal *int `json:"readingGoal,omitempty"`

	DailySeconds     int            `json:"dailySeconds"`
	DailyMinutesRead int            `json:"dailyMinutesRead"`
	LastResetDate    string         `json:"lastResetDate,omitempty"`
	DailyTimes       map[string]int `json:"dailyTimes,omitempty"` // date -> minutes, finished days only

	// Lifetime counters. They never decrease.
	TotalSessions       int64 `json:"totalSessions"`
	TotalReadingTime    int64 `json:"totalReadingTime"` // seconds
	TotalPagesRead      int64 `json:"totalPagesRead"`
	TotalBooksCompleted int64 `json:"totalBooksCompleted"`

	MotivationDate  string `json:"motivationDate,omitempty"`
	DailyMotivation string `json:"dailyMotivation,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasSaved reports whether bookID is on the user's shelf.
func (u *User) HasSaved(bookID string) bool {
	for _, id := range u.SavedBooks {
		if id == bookID {
			return true
		}
	}
	return false
}
