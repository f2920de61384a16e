// package services defines interface Catalog for interacting with the remote release catalog
package services

import (
	"context"

	"github.com/desertthunder/librix/internal/models"
)

// Catalog defines the remote operations the synchronizer depends on.
type Catalog interface {
	// FetchPage retrieves one page of the release catalog.
	// Pages are 1-based; a page past the end returns an empty slice.
	FetchPage(ctx context.Context, page, pageSize int) ([]models.ReleaseRecord, error)

	// FetchFavorites retrieves the signed-in user's favorite releases.
	FetchFavorites(ctx context.Context) ([]models.FavoriteItem, error)

	// FetchCurrentUser retrieves the signed-in user's identity.
	FetchCurrentUser(ctx context.Context) (*models.User, error)

	// Authorized reports whether the client carries a session.
	Authorized() bool
}

// envelope is the response wrapper shared by every catalog query.
type envelope[T any] struct {
	Status bool      `json:"status"`
	Data   T         `json:"data"`
	Error  *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type itemsPage[T any] struct {
	Items []T `json:"items"`
}
