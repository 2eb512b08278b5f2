package domain

// SavedBook is a shelf entry: the catalog record joined with the user's
// session document for it. Session is nil until the book was saved or read.
type SavedBook struct {
	Book    CatalogItem  `json:"book"`
	Session *BookSession `json:"session,omitempty"`

	// Stale is set when the catalog could not be reached and Book was
	// rebuilt from the metadata stored at save time.
	Stale bool `json:"stale,omitempty"`
}
