// Package session holds the per-visitor state of a tour details view: the
// tour being viewed, its review collection and the review being composed.
package session

import (
	"time"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/rating"
	"github.com/utafrali/TourGo/internal/review"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
)

// Session is the state of one visitor viewing one tour.
type Session struct {
	ID       string            `json:"id"`
	TourID   string            `json:"tour_id"`
	Username string            `json:"username,omitempty"`
	Reviews  domain.Collection `json:"reviews"`

	// PendingRating is the selected star rating; 0 means none selected.
	PendingRating int    `json:"pending_rating"`
	PendingText   string `json:"pending_text"`
	Submitting    bool   `json:"submitting"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a session for tourID seeded with a copy of the tour's reviews.
func New(id, tourID, username string, seed domain.Collection, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        id,
		TourID:    tourID,
		Username:  username,
		Reviews:   seed.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Summary is the aggregate rating of the session's current reviews.
func (s *Session) Summary() rating.Summary {
	return rating.Aggregate(s.Reviews)
}

// Reset points the session at tourID, replaces the collection with a copy of
// seed and discards whatever review was being composed.
func (s *Session) Reset(tourID string, seed domain.Collection) {
	s.TourID = tourID
	s.Reviews = seed.Clone()
	s.clearPending()
}

// SelectRating sets the pending star rating. Zero clears the selection.
func (s *Session) SelectRating(r int) error {
	if r != 0 && !domain.ValidRating(r) {
		return apperrors.InvalidInput("rating must be between 1 and 5")
	}
	s.PendingRating = r
	return nil
}

// SetText replaces the pending review text.
func (s *Session) SetText(text string) {
	s.PendingText = text
}

// CanSubmit reports whether the submit action is enabled.
func (s *Session) CanSubmit() bool {
	return s.PendingRating != 0 && !s.Submitting
}

// Candidate returns the review currently being composed.
func (s *Session) Candidate() domain.Candidate {
	return domain.Candidate{
		Rating:  s.PendingRating,
		Content: s.PendingText,
		Author:  s.Username,
	}
}

// BeginSubmit marks the session as submitting. It fails with a Conflict when
// no rating is selected or a submission is already in flight, and with
// InvalidInput when the pending text is blank.
func (s *Session) BeginSubmit() error {
	if s.Submitting {
		return apperrors.Conflict("a review submission is already in progress")
	}
	if s.PendingRating == 0 {
		return apperrors.Conflict("select a rating before submitting")
	}
	if err := review.Validate(s.Candidate()); err != nil {
		return err
	}
	s.Submitting = true
	return nil
}

// CompleteSubmit appends the pending review to the collection and clears the
// pending state. It must follow a successful BeginSubmit.
func (s *Session) CompleteSubmit(now time.Time) (domain.Review, rating.Summary, error) {
	if !s.Submitting {
		return domain.Review{}, rating.Summary{}, apperrors.Conflict("no review submission in progress")
	}

	next, summary := review.Submit(s.Reviews, s.Candidate(), now)
	s.Reviews = next
	s.clearPending()

	return next[len(next)-1], summary, nil
}

// AbortSubmit leaves the submitting state without touching the collection or
// the pending values.
func (s *Session) AbortSubmit() {
	s.Submitting = false
}

// Touch bumps the version and the update and expiry times.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.Version++
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

func (s *Session) clearPending() {
	s.PendingRating = 0
	s.PendingText = ""
	s.Submitting = false
}
