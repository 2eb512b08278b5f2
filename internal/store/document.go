package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Document is a snapshot of one stored document. A snapshot of a missing
// document has Exists() == false and behaves as an empty document.
type Document struct {
	Path string
	data map[string]any
}

// NewDocument wraps raw field data. Backends use it to build snapshots.
func NewDocument(path string, data map[string]any) *Document {
	return &Document{Path: path, data: data}
}

// Exists reports whether the document was found.
func (d *Document) Exists() bool {
	return d != nil && d.data != nil
}

// ID returns the last path segment.
func (d *Document) ID() string {
	return d.Path[strings.LastIndexByte(d.Path, '/')+1:]
}

// Data returns the raw fields. The map must not be modified.
func (d *Document) Data() map[string]any {
	if !d.Exists() {
		return map[string]any{}
	}
	return d.data
}

// DataTo decodes the document into v using its JSON field tags.
// A missing document leaves v untouched.
func (d *Document) DataTo(v any) error {
	if !d.Exists() {
		return nil
	}
	raw, err := json.Marshal(d.data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.Path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Path, err)
	}
	return nil
}

// Int returns an integer field, 0 when absent or not numeric.
func (d *Document) Int(field string) int64 {
	n, err := toInt64(d.Data()[field])
	if err != nil {
		return 0
	}
	return n
}

// String returns a string field, "" when absent.
func (d *Document) String(field string) string {
	s, _ := d.Data()[field].(string)
	return s
}

// Bool returns a boolean field, false when absent.
func (d *Document) Bool(field string) bool {
	b, _ := d.Data()[field].(bool)
	return b
}

// Time returns a timestamp field written by ServerTimestamp.
func (d *Document) Time(field string) (time.Time, bool) {
	switch v := d.Data()[field].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t, err == nil
	case interface{ Time() time.Time }:
		return v.Time(), true
	}
	return time.Time{}, false
}

// Map returns a nested map field, nil when absent.
func (d *Document) Map(field string) map[string]any {
	m, _ := d.Data()[field].(map[string]any)
	return m
}

// Paths.

// UserPath is the path of a user's aggregate document.
func UserPath(userID string) string {
	return "users/" + userID
}

// BooksCollection is the collection path of a user's per-book documents.
func BooksCollection(userID string) string {
	return UserPath(userID) + "/books"
}

// BookPath is the path of one per-book session document.
func BookPath(userID, bookID string) string {
	return BooksCollection(userID) + "/" + bookID
}

// ValidatePath checks that path names a document: an even number of
// non-empty segments.
func ValidatePath(path string) error {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 0 {
		return ErrInvalidInput.WithCause(fmt.Errorf("%q is not a document path", path))
	}
	for _, s := range segs {
		if s == "" {
			return ErrInvalidInput.WithCause(fmt.Errorf("%q has an empty segment", path))
		}
	}
	return nil
}

// ValidateCollection checks that path names a collection: an odd number of
// non-empty segments.
func ValidateCollection(path string) error {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 1 {
		return ErrInvalidInput.WithCause(fmt.Errorf("%q is not a collection path", path))
	}
	for _, s := range segs {
		if s == "" {
			return ErrInvalidInput.WithCause(fmt.Errorf("%q has an empty segment", path))
		}
	}
	return nil
}
