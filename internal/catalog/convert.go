package catalog

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	books "google.golang.org/api/books/v1"

	"github.com/booklog/booklog-server/internal/domain"
)

// toItem converts a books API volume into a catalog item.
func toItem(v *books.Volume) domain.CatalogItem {
	item := domain.CatalogItem{ID: v.Id}

	if info := v.VolumeInfo; info != nil {
		item.Title = info.Title
		item.Subtitle = info.Subtitle
		item.Authors = info.Authors
		item.Publisher = info.Publisher
		item.PublishedDate = info.PublishedDate
		item.Description = htmlToMarkdown(info.Description)
		item.Categories = info.Categories
		item.Language = info.Language
		item.AverageRating = info.AverageRating
		item.RatingsCount = info.RatingsCount

		if info.PageCount > 0 {
			n := int(info.PageCount)
			item.PageCount = &n
		}
		if info.ImageLinks != nil {
			item.Thumbnail = secureURL(info.ImageLinks.Thumbnail)
			item.SmallThumbnail = secureURL(info.ImageLinks.SmallThumbnail)
		}

		for _, id := range info.IndustryIdentifiers {
			if id == nil || id.Identifier == "" {
				continue
			}
			if item.Identifiers == nil {
				item.Identifiers = make(map[string]string)
			}
			value := id.Identifier
			if id.Type == "ISBN_10" || id.Type == "ISBN_13" {
				if isbn13, ok := NormalizeISBN(value); ok {
					if item.ISBN13 == "" || id.Type == "ISBN_13" {
						item.ISBN13 = isbn13
					}
				}
				value = strings.ReplaceAll(value, "-", "")
			}
			item.Identifiers[id.Type] = value
		}
	}

	if v.SearchInfo != nil {
		item.Snippet = stripHTML(v.SearchInfo.TextSnippet)
	}
	return item
}

// secureURL upgrades the http image links the API returns.
func secureURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// htmlToMarkdown converts an HTML description to Markdown. Plain text is
// returned unchanged, as is the input when conversion fails.
func htmlToMarkdown(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}

// stripHTML returns the text content of an HTML fragment with entities
// decoded and whitespace collapsed.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
	}

	var buf strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(buf.String()), " ")
}
