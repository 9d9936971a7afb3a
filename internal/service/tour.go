package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/rating"
	"github.com/utafrali/TourGo/internal/repository"
	"github.com/utafrali/TourGo/internal/review"
	"github.com/utafrali/TourGo/internal/session"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/logger"
)

var reviewsSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tour_reviews_submitted_total",
		Help: "Reviews accepted by viewing sessions, by star rating",
	},
	[]string{"rating"},
)

// SubmitInput carries optional overrides applied to the session's pending
// review right before it is submitted.
type SubmitInput struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Content *string `json:"content,omitempty"`
}

// TourView is a tour with its aggregate rating.
type TourView struct {
	domain.Tour
	Summary rating.Summary `json:"summary"`
}

// SessionView is what a client renders for a viewing session.
type SessionView struct {
	ID            string            `json:"id"`
	Tour          *domain.Tour      `json:"tour,omitempty"`
	TourID        string            `json:"tour_id"`
	Username      string            `json:"username,omitempty"`
	Reviews       domain.Collection `json:"reviews"`
	Summary       rating.Summary    `json:"summary"`
	PendingRating int               `json:"pending_rating"`
	PendingText   string            `json:"pending_text"`
	Submitting    bool              `json:"submitting"`
	CanSubmit     bool              `json:"can_submit"`
	Version       int               `json:"version"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	Review  domain.Review     `json:"review"`
	Summary rating.Summary    `json:"summary"`
	Reviews domain.Collection `json:"reviews"`
}

// ReviewDispatcher hands accepted reviews to the persistence sinks without
// blocking the caller.
type ReviewDispatcher interface {
	Dispatch(ctx context.Context, tourID string, review domain.Review)
}

// Notifier pushes session views to live subscribers.
type Notifier interface {
	Publish(sessionID string, view *SessionView)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, string, domain.Review) {}

type noopNotifier struct{}

func (noopNotifier) Publish(string, *SessionView) {}

// TourService implements tour lookups and the review flow of viewing sessions.
type TourService struct {
	tours      repository.TourRepository
	sessions   repository.SessionRepository
	store      repository.ReviewStore
	dispatcher ReviewDispatcher
	notifier   Notifier
	logger     *slog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// NewTourService creates a new tour service. store, dispatcher and notifier
// are optional.
func NewTourService(
	tours repository.TourRepository,
	sessions repository.SessionRepository,
	store repository.ReviewStore,
	dispatcher ReviewDispatcher,
	notifier Notifier,
	logger *slog.Logger,
	sessionTTL time.Duration,
) *TourService {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &TourService{
		tours:      tours,
		sessions:   sessions,
		store:      store,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetTour returns a tour with its rating summary.
func (s *TourService) GetTour(ctx context.Context, id string) (*TourView, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("tour id is required")
	}

	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}

	return &TourView{Tour: *tour, Summary: rating.Aggregate(tour.Reviews)}, nil
}

// ListTours returns one page of tours with their summaries and the total count.
func (s *TourService) ListTours(ctx context.Context, filter repository.TourFilter) ([]TourView, int, error) {
	tours, total, err := s.tours.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list tours: %w", err)
	}

	views := make([]TourView, 0, len(tours))
	for _, t := range tours {
		views = append(views, TourView{Tour: t, Summary: rating.Aggregate(t.Reviews)})
	}
	return views, total, nil
}

// OpenSession starts a viewing session for tourID seeded with the tour's
// reviews. An empty username submits as the guest author.
func (s *TourService) OpenSession(ctx context.Context, tourID, username string) (*SessionView, error) {
	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	sess := session.New(uuid.New().String(), tour.ID, username, tour.Reviews, s.now(), s.sessionTTL)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "viewing session opened",
		slog.String("session_id", sess.ID),
		slog.String("tour_id", tour.ID),
	)

	return s.view(sess, tour), nil
}

// GetSession returns the current view of a session.
func (s *TourService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s.view(sess, s.lookupTour(ctx, sess.TourID)), nil
}

// SwitchTour points the session at another tour. The review collection is
// reseeded and the pending review discarded. Switching to the current tour
// changes nothing.
func (s *TourService) SwitchTour(ctx context.Context, id, tourID string) (*SessionView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.TourID == tourID {
		return s.view(sess, s.lookupTour(ctx, tourID)), nil
	}

	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("switch tour: %w", err)
	}

	expected := sess.Version
	sess.Reset(tour.ID, tour.Reviews)
	if err := s.save(ctx, sess, expected); err != nil {
		return nil, err
	}

	view := s.view(sess, tour)
	s.notifier.Publish(sess.ID, view)
	return view, nil
}

// SelectRating sets the session's pending star rating. Zero clears it.
func (s *TourService) SelectRating(ctx context.Context, id string, r int) (*SessionView, error) {
	return s.update(ctx, id, func(sess *session.Session) error {
		return sess.SelectRating(r)
	})
}

// SetText replaces the session's pending review text.
func (s *TourService) SetText(ctx context.Context, id, text string) (*SessionView, error) {
	return s.update(ctx, id, func(sess *session.Session) error {
		sess.SetText(text)
		return nil
	})
}

// SubmitReview appends the session's pending review to its collection and
// returns the new summary. Accepted reviews are handed to the sinks
// asynchronously; sink failures never fail the submission.
func (s *TourService) SubmitReview(ctx context.Context, id string, input SubmitInput) (*SubmitResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	expected := sess.Version
	ctx = logger.WithSessionID(ctx, sess.ID)

	if input.Rating != nil {
		if err := sess.SelectRating(*input.Rating); err != nil {
			return nil, err
		}
	}
	if input.Content != nil {
		sess.SetText(*input.Content)
	}

	if err := sess.BeginSubmit(); err != nil {
		return nil, err
	}
	rev, summary, err := sess.CompleteSubmit(s.now())
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, sess, expected); err != nil {
		return nil, err
	}

	reviewsSubmitted.WithLabelValues(strconv.Itoa(rev.Rating)).Inc()
	s.dispatcher.Dispatch(ctx, sess.TourID, rev)
	s.notifier.Publish(sess.ID, s.view(sess, s.lookupTour(ctx, sess.TourID)))

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("tour_id", sess.TourID),
		slog.String("username", rev.Author),
		slog.Int("rating", rev.Rating),
		slog.Int("total_rating", summary.TotalRating),
	)

	return &SubmitResult{Review: rev, Summary: summary, Reviews: sess.Reviews}, nil
}

// CloseSession discards a session.
func (s *TourService) CloseSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.InfoContext(ctx, "viewing session closed", slog.String("session_id", id))
	return nil
}

// PersistReview stores a review sent to the persistence endpoint. A missing
// author is stored as the guest author and a missing date as now.
func (s *TourService) PersistReview(ctx context.Context, tourID string, rev domain.Review) (*domain.Review, error) {
	if s.store == nil {
		return nil, apperrors.ServiceUnavailable("review persistence is not configured")
	}

	if err := review.Validate(domain.Candidate{Rating: rev.Rating, Content: rev.Content}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rev.Author) == "" {
		rev.Author = domain.GuestAuthor
	}
	if rev.Timestamp.IsZero() {
		rev.Timestamp = s.now()
	}
	rev.Timestamp = rev.Timestamp.UTC()

	if err := s.store.Append(ctx, tourID, rev); err != nil {
		return nil, fmt.Errorf("persist review: %w", err)
	}

	s.logger.InfoContext(ctx, "review persisted",
		slog.String("tour_id", tourID),
		slog.String("username", rev.Author),
	)

	return &rev, nil
}

// update loads a session, applies fn and saves it under optimistic locking.
func (s *TourService) update(ctx context.Context, id string, fn func(*session.Session) error) (*SessionView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	expected := sess.Version
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess, expected); err != nil {
		return nil, err
	}

	return s.view(sess, s.lookupTour(ctx, sess.TourID)), nil
}

func (s *TourService) save(ctx context.Context, sess *session.Session, expected int) error {
	sess.Touch(s.now(), s.sessionTTL)

	ok, err := s.sessions.SaveIfVersion(ctx, sess, expected)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if !ok {
		return apperrors.Conflict("session was modified concurrently, please retry")
	}
	return nil
}

// lookupTour returns the session's tour, or nil when it has left the source
// since the session was opened.
func (s *TourService) lookupTour(ctx context.Context, tourID string) *domain.Tour {
	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		s.logger.WarnContext(ctx, "tour of session unavailable",
			slog.String("tour_id", tourID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return tour
}

func (s *TourService) view(sess *session.Session, tour *domain.Tour) *SessionView {
	var details *domain.Tour
	if tour != nil {
		t := *tour
		t.Reviews = nil
		details = &t
	}

	return &SessionView{
		ID:            sess.ID,
		Tour:          details,
		TourID:        sess.TourID,
		Username:      sess.Username,
		Reviews:       sess.Reviews,
		Summary:       sess.Summary(),
		PendingRating: sess.PendingRating,
		PendingText:   sess.PendingText,
		Submitting:    sess.Submitting,
		CanSubmit:     sess.CanSubmit(),
		Version:       sess.Version,
		ExpiresAt:     sess.ExpiresAt,
	}
}
