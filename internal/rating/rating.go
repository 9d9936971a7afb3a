// Package rating computes aggregate figures over a tour's reviews.
package rating

import (
	"math"

	"github.com/utafrali/TourGo/internal/domain"
)

// Summary holds the derived rating figures for a review collection. It is
// always recomputed from the reviews and never stored.
type Summary struct {
	// TotalRating is the sum of all ratings, not the number of reviews.
	TotalRating   int     `json:"total_rating"`
	AverageRating float64 `json:"avg_rating"`
	ReviewCount   int     `json:"review_count"`
}

// Rated reports whether the collection carries any rating at all. Callers
// show "Not rated" when it is false.
func (s Summary) Rated() bool {
	return s.TotalRating != 0
}

// Aggregate returns the total and the one-decimal average rating of reviews.
// The average rounds halves away from zero on the float quotient, so 87/20
// gives 4.4. An empty collection yields the zero Summary.
func Aggregate(reviews []domain.Review) Summary {
	if len(reviews) == 0 {
		return Summary{}
	}

	total := 0
	for _, r := range reviews {
		total += r.Rating
	}

	return Summary{
		TotalRating:   total,
		AverageRating: round1(float64(total) / float64(len(reviews))),
		ReviewCount:   len(reviews),
	}
}

// round1 rounds to one decimal place, halves away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
