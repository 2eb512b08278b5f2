package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/booklog/booklog-server/internal/catalog"
)

// DefaultLimit caps results when the caller passes no limit.
const DefaultLimit = 20

// Hit is one matching book.
type Hit struct {
	BookID     string            `json:"bookId"`
	Title      string            `json:"title"`
	Authors    string            `json:"authors,omitempty"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Result is a page of hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"tookMs"`
	Hits   []Hit  `json:"hits"`
}

// Search finds books on userID's shelf matching text. An empty query lists
// the whole shelf.
func (s *ShelfIndex) Search(ctx context.Context, userID, text string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(userID, text), limit, 0, false)
	req.Fields = []string{"book_id", "title", "authors"}
	if text != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("authors")
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query:  text,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		hit.BookID, _ = h.Fields["book_id"].(string)
		hit.Title, _ = h.Fields["title"].(string)
		hit.Authors, _ = h.Fields["authors"].(string)
		if hit.BookID == "" {
			hit.BookID = h.ID[strings.LastIndexByte(h.ID, '/')+1:]
		}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string, len(h.Fragments))
			for field, frags := range h.Fragments {
				if len(frags) > 0 {
					hit.Highlights[field] = frags[0]
				}
			}
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// buildQuery restricts everything to the owner. Title matches rank above
// author matches, which rank above description matches; a fuzzy title
// query tolerates one typo and a prefix query serves type-ahead.
func buildQuery(userID, text string) query.Query {
	owner := bleve.NewTermQuery(userID)
	owner.SetField("user_id")

	text = normalizeText(text)
	if text == "" {
		return owner
	}

	if code, ok := catalog.NormalizeISBN(text); ok {
		q := bleve.NewTermQuery(code)
		q.SetField("isbn13")
		return bleve.NewConjunctionQuery(owner, q)
	}

	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	title.SetBoost(3.0)

	subtitle := bleve.NewMatchQuery(text)
	subtitle.SetField("subtitle")
	subtitle.SetBoost(1.5)

	authors := bleve.NewMatchQuery(text)
	authors.SetField("authors")
	authors.SetBoost(2.0)

	description := bleve.NewMatchQuery(text)
	description.SetField("description")
	description.SetBoost(0.5)

	category := bleve.NewTermQuery(strings.ToLower(text))
	category.SetField("categories")

	fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
	fuzzy.SetField("title")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.8)

	textQueries := []query.Query{title, subtitle, authors, description, category, fuzzy}
	if len(text) >= 2 {
		prefix := bleve.NewPrefixQuery(strings.ToLower(text))
		prefix.SetField("title")
		prefix.SetBoost(0.5)
		textQueries = append(textQueries, prefix)
	}

	return bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery(textQueries...))
}
