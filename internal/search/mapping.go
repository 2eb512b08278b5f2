package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for shelf documents.
//
// Titles and authors are stored so hits can be rendered without a catalog
// round trip. Owner and identifier fields use the keyword analyzer and only
// ever match exactly.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	text := func(name string, analyzer string, store bool) {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzer
		fm.Store = store
		fm.IncludeTermVectors = store
		docMapping.AddFieldMappingsAt(name, fm)
	}

	text("title", en.AnalyzerName, true)
	text("subtitle", en.AnalyzerName, true)
	text("authors", en.AnalyzerName, true)
	text("description", en.AnalyzerName, false)

	// Publisher names are not stemmed.
	text("publisher", simple.Name, false)

	text("user_id", keyword.Name, false)
	text("book_id", keyword.Name, true)
	text("isbn13", keyword.Name, false)
	text("categories", keyword.Name, false)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
