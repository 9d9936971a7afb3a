package domain

import (
	"strings"
	"time"
)

// GuestAuthor is recorded as the author of reviews submitted without an
// authenticated identity.
const GuestAuthor = "Guest"

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a single visitor rating and comment for a tour.
type Review struct {
	Author    string    `json:"username"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"date"`
}

// Collection is the ordered, append-only list of reviews shown for a tour.
type Collection []Review

// Clone returns a copy that shares no backing array with c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Candidate is a review the visitor has not submitted yet.
type Candidate struct {
	Rating  int
	Content string
	// Author is the authenticated username; empty for guests.
	Author string
}

// ValidRating reports whether r lies within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// HasContent reports whether the candidate carries non-blank text.
func (c Candidate) HasContent() bool {
	return strings.TrimSpace(c.Content) != ""
}
