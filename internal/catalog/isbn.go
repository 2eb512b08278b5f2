package catalog

import (
	"strings"

	"github.com/moraes/isbn"
)

// NormalizeISBN returns the ISBN-13 form of s when s is a valid ISBN-10 or
// ISBN-13, ignoring hyphens and spaces.
func NormalizeISBN(s string) (string, bool) {
	s = strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s)))

	switch len(s) {
	case 13:
		if isbn.Validate13(s) {
			return s, true
		}
	case 10:
		if !isbn.Validate10(s) {
			return "", false
		}
		isbn13, err := isbn.To13(s)
		if err != nil {
			return "", false
		}
		return isbn13, true
	}
	return "", false
}

// searchQuery turns a bare ISBN into an isbn: query; other text passes through.
func searchQuery(q string) string {
	if isbn13, ok := NormalizeISBN(q); ok {
		return "isbn:" + isbn13
	}
	return strings.TrimSpace(q)
}
