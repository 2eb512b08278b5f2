package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklog/booklog-server/internal/domain"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/search",
		Summary:     "Search the book catalog",
		Description: "Searches Google Books by title, author or ISBN",
		Tags:        []string{"Catalog"},
		Security:    bearer,
	}, s.handleSearchCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalogVolume",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/volumes/{id}",
		Summary:     "Get a catalog volume",
		Tags:        []string{"Catalog"},
		Security:    bearer,
	}, s.handleGetCatalogVolume)
}

// === DTOs ===

// BookResponse is a catalog record.
type BookResponse struct {
	ID             string   `json:"id" doc:"Catalog volume id"`
	Title          string   `json:"title" doc:"Title"`
	Subtitle       string   `json:"subtitle,omitempty" doc:"Subtitle"`
	Authors        []string `json:"authors,omitempty" doc:"Authors"`
	Publisher      string   `json:"publisher,omitempty" doc:"Publisher"`
	PublishedDate  string   `json:"published_date,omitempty" doc:"Publication date as given by the catalog"`
	Description    string   `json:"description,omitempty" doc:"Description in Markdown"`
	PageCount      *int     `json:"page_count,omitempty" doc:"Number of pages, absent when unknown"`
	Categories     []string `json:"categories,omitempty" doc:"Categories"`
	Language       string   `json:"language,omitempty" doc:"Language code"`
	AverageRating  float64  `json:"average_rating,omitempty" doc:"Average rating"`
	RatingsCount   int64    `json:"ratings_count,omitempty" doc:"Number of ratings"`
	Thumbnail      string   `json:"thumbnail,omitempty" doc:"Cover image URL"`
	SmallThumbnail string   `json:"small_thumbnail,omitempty" doc:"Small cover image URL"`
	ISBN13         string   `json:"isbn13,omitempty" doc:"ISBN-13"`
}

// CatalogSearchInput contains the search query.
type CatalogSearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Title, author or ISBN"`
}

// CatalogSearchResponse lists matching volumes.
type CatalogSearchResponse struct {
	Query string         `json:"query" doc:"The query searched"`
	Books []BookResponse `json:"books" doc:"Matching volumes"`
}

// CatalogSearchOutput wraps the search response for Huma.
type CatalogSearchOutput struct {
	Body CatalogSearchResponse
}

// CatalogVolumeInput names a volume.
type CatalogVolumeInput struct {
	ID string `path:"id" maxLength:"64" doc:"Catalog volume id"`
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body BookResponse
}

func bookResponse(b *domain.CatalogItem) BookResponse {
	return BookResponse{
		ID:             b.ID,
		Title:          b.Title,
		Subtitle:       b.Subtitle,
		Authors:        b.Authors,
		Publisher:      b.Publisher,
		PublishedDate:  b.PublishedDate,
		Description:    b.Description,
		PageCount:      b.PageCount,
		Categories:     b.Categories,
		Language:       b.Language,
		AverageRating:  b.AverageRating,
		RatingsCount:   b.RatingsCount,
		Thumbnail:      b.Thumbnail,
		SmallThumbnail: b.SmallThumbnail,
		ISBN13:         b.ISBN13,
	}
}

// === Handlers ===

func (s *Server) handleSearchCatalog(ctx context.Context, input *CatalogSearchInput) (*CatalogSearchOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	items, err := s.services.Catalog.Search(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	books := make([]BookResponse, len(items))
	for i := range items {
		books[i] = bookResponse(&items[i])
	}
	return &CatalogSearchOutput{Body: CatalogSearchResponse{Query: input.Query, Books: books}}, nil
}

func (s *Server) handleGetCatalogVolume(ctx context.Context, input *CatalogVolumeInput) (*BookOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	item, err := s.services.Catalog.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: bookResponse(item)}, nil
}
