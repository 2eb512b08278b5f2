package domain

import "time"

// Field names of the per-book document.
const (
	FieldBookID        = "id"
	FieldTitle         = "title"
	FieldAuthors       = "authors"
	FieldImageURL      = "imageUrl"
	FieldPageCount     = "pageCount"
	FieldCoverBlurHash = "coverBlurHash"
	FieldNotes         = "notes"
	FieldBookmarkPage  = "bookmarkPage"
	FieldReadingTime   = "readingTime"
	FieldSessionCount  = "sessionCount"
	FieldIsCompleted   = "isCompleted"
	FieldTimestamp     = "timestamp"
)

// BookSession is the per-(user, book) document (users/{userId}/books/{bookId}).
// It is created lazily by the first save or finished session and is kept
// when the book is removed from the shelf.
type BookSession struct {
	// Shelf metadata, written when the book is saved.
	BookID        string   `json:"id,omitempty"`
	Title         string   `json:"title,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	PageCount     *int     `json:"pageCount,omitempty"`
	CoverBlurHash string   `json:"coverBlurHash,omitempty"`

	Notes        *string `json:"notes"`
	BookmarkPage int     `json:"bookmarkPage"`
	ReadingTime  int64   `json:"readingTime"` // seconds
	SessionCount int64   `json:"sessionCount"`

	// IsCompleted goes from false to true at most once.
	IsCompleted bool `json:"isCompleted"`

	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ClampPage bounds page to [0, pageCount]. An unknown page count (nil or 0)
// only bounds from below.
func ClampPage(page int, pageCount *int) int {
	if page < 0 {
		page = 0
	}
	if pageCount != nil && *pageCount > 0 && page > *pageCount {
		page = *pageCount
	}
	return page
}

// IsFinished reports whether page reaches the end of a book. Books with an
// unknown page count are never finished.
func IsFinished(page int, pageCount *int) bool {
	return pageCount != nil && *pageCount > 0 && page >= *pageCount
}
