package repository

import (
	"context"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/session"
	"github.com/utafrali/TourGo/pkg/pagination"
)

// TourFilter narrows a tour listing.
type TourFilter struct {
	// FeaturedOnly limits the listing to featured tours.
	FeaturedOnly bool
	Page         int
	PerPage      int
}

// Params returns the filter's page selection with defaults applied.
func (f TourFilter) Params() pagination.Params {
	return pagination.Params{Page: f.Page, PerPage: f.PerPage}.Normalize()
}

// TourRepository is a source of tours and their seed reviews.
type TourRepository interface {
	// GetByID returns the tour with its reviews, or a NotFound error.
	GetByID(ctx context.Context, id string) (*domain.Tour, error)

	// List returns one page of tours matching the filter and the total count.
	List(ctx context.Context, filter TourFilter) ([]domain.Tour, int, error)
}

// ReviewStore persists submitted reviews.
type ReviewStore interface {
	// Append adds a review to the end of a tour's review list.
	Append(ctx context.Context, tourID string, review domain.Review) error
}

// SessionRepository defines the interface for viewing session persistence.
type SessionRepository interface {
	// Get retrieves a session by ID, or a NotFound error.
	Get(ctx context.Context, id string) (*session.Session, error)

	// Save persists a session unconditionally.
	Save(ctx context.Context, s *session.Session) error

	// SaveIfVersion persists s only if the stored copy still has version
	// expected. It reports false when another writer got there first.
	SaveIfVersion(ctx context.Context, s *session.Session, expected int) (bool, error)

	// Delete removes a session. An unknown id is a NotFound error.
	Delete(ctx context.Context, id string) error
}
