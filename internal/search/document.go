// Package search is the full-text index over users' shelves. Every saved
// book is one document scoped to its owner, so a query only ever sees the
// caller's books.
package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/booklog/booklog-server/internal/domain"
)

// ShelfDocument is one saved book in the index.
type ShelfDocument struct {
	UserID      string
	BookID      string
	Title       string
	Subtitle    string
	Authors     []string
	Publisher   string
	Description string
	Categories  []string
	ISBN13      string
}

// DocumentID is the index key of a user's book.
func DocumentID(userID, bookID string) string {
	return userID + "/" + bookID
}

// ID returns the index key.
func (d *ShelfDocument) ID() string {
	return DocumentID(d.UserID, d.BookID)
}

// FromCatalogItem builds the document for a book the user saved.
func FromCatalogItem(userID string, item *domain.CatalogItem) *ShelfDocument {
	return &ShelfDocument{
		UserID:      userID,
		BookID:      item.ID,
		Title:       item.Title,
		Subtitle:    item.Subtitle,
		Authors:     item.Authors,
		Publisher:   item.Publisher,
		Description: item.Snippet,
		Categories:  item.Categories,
		ISBN13:      item.ISBN13,
	}
}

// toMap converts the document to the field names of the index mapping.
// Text is NFC-normalized so composed and decomposed accents match.
func (d *ShelfDocument) toMap() map[string]any {
	m := map[string]any{
		"user_id": d.UserID,
		"book_id": d.BookID,
		"title":   normalizeText(d.Title),
	}
	if d.Subtitle != "" {
		m["subtitle"] = normalizeText(d.Subtitle)
	}
	if len(d.Authors) > 0 {
		m["authors"] = normalizeText(strings.Join(d.Authors, ", "))
	}
	if d.Publisher != "" {
		m["publisher"] = normalizeText(d.Publisher)
	}
	if d.Description != "" {
		m["description"] = normalizeText(d.Description)
	}
	if len(d.Categories) > 0 {
		cats := make([]string, len(d.Categories))
		for i, c := range d.Categories {
			cats[i] = strings.ToLower(normalizeText(c))
		}
		m["categories"] = cats
	}
	if d.ISBN13 != "" {
		m["isbn13"] = d.ISBN13
	}
	return m
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
