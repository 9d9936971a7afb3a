// Package review implements submission of a candidate review into a tour's
// review collection.
package review

import (
	"time"

	apperrors "github.com/utafrali/TourGo/pkg/errors"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/rating"
)

// Validate checks that a candidate can become a Review. It returns an
// InvalidInput error describing the first problem found.
func Validate(c domain.Candidate) error {
	if !domain.ValidRating(c.Rating) {
		return apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if !c.HasContent() {
		return apperrors.InvalidInput("review content must not be empty")
	}
	return nil
}

// Submit appends the candidate to current as a new Review stamped with now
// and returns the new collection together with its recomputed summary.
//
// current is never modified. Submit does not validate; callers run Validate
// first. Submitting the same candidate twice appends two reviews.
func Submit(current domain.Collection, c domain.Candidate, now time.Time) (domain.Collection, rating.Summary) {
	next := make(domain.Collection, len(current), len(current)+1)
	copy(next, current)
	next = append(next, domain.Review{
		Author:    authorOf(c),
		Rating:    c.Rating,
		Content:   c.Content,
		Timestamp: now.UTC(),
	})

	return next, rating.Aggregate(next)
}

func authorOf(c domain.Candidate) string {
	if c.Author == "" {
		return domain.GuestAuthor
	}
	return c.Author
}
