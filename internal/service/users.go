package service

import (
	"context"
	"fmt"

	"github.com/booklog/booklog-server/internal/domain"
	domainerrors "github.com/booklog/booklog-server/internal/errors"
	"github.com/booklog/booklog-server/internal/store"
)

// loadUser reads and decodes the user aggregate.
func loadUser(ctx context.Context, docs store.Documents, userID string) (*domain.User, error) {
	doc, err := docs.Get(ctx, store.UserPath(userID))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return decodeUser(doc, userID)
}

func decodeUser(doc *store.Document, userID string) (*domain.User, error) {
	if !doc.Exists() {
		return nil, domainerrors.NotFoundf("user %s not found", userID)
	}
	var user domain.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}
