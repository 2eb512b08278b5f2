package domain

// CatalogItem is a book as returned by the public catalog.
type CatalogItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Description   string   `json:"description,omitempty"` // Markdown
	Snippet       string   `json:"snippet,omitempty"`     // plain text
	PageCount     *int     `json:"pageCount,omitempty"`   // nil when unknown
	Categories    []string `json:"categories,omitempty"`
	Language      string   `json:"language,omitempty"`

	AverageRating float64 `json:"averageRating,omitempty"`
	RatingsCount  int64   `json:"ratingsCount,omitempty"`

	Thumbnail      string `json:"thumbnail,omitempty"`
	SmallThumbnail string `json:"smallThumbnail,omitempty"`

	// Identifiers maps identifier type (ISBN_10, ISBN_13, OTHER) to value.
	Identifiers map[string]string `json:"identifiers,omitempty"`
	ISBN13      string            `json:"isbn13,omitempty"`
}

// CoverURL returns the best available cover image.
func (c *CatalogItem) CoverURL() string {
	if c.Thumbnail != "" {
		return c.Thumbnail
	}
	return c.SmallThumbnail
}
