package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/TourGo/internal/auth"
	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/service"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/httputil"
	"github.com/utafrali/TourGo/pkg/middleware"
	"github.com/utafrali/TourGo/pkg/validator"
)

// ReviewHandler serves the review persistence endpoint.
type ReviewHandler struct {
	service *service.TourService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.TourService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// PersistReviewRequest is the JSON body accepted by the persistence endpoint.
// It mirrors the review wire format.
type PersistReviewRequest struct {
	Username string     `json:"username" validate:"max=100"`
	Rating   int        `json:"rating" validate:"required,min=1,max=5"`
	Content  string     `json:"content" validate:"required,notblank,max=5000"`
	Date     *time.Time `json:"date"`
}

// PersistReview handles POST /api/v1/review/{tourId}
// When authentication is enabled only service tokens may write.
func (h *ReviewHandler) PersistReview(w http.ResponseWriter, r *http.Request) {
	if id := middleware.IdentityFromContext(r.Context()); id != nil && id.Role != auth.RoleService {
		httputil.WriteError(w, r, apperrors.Forbidden("service token required"), h.logger)
		return
	}

	var req PersistReviewRequest
	if err := validator.Decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rev := domain.Review{
		Author:  req.Username,
		Rating:  req.Rating,
		Content: req.Content,
	}
	if req.Date != nil {
		rev.Timestamp = *req.Date
	}

	stored, err := h.service.PersistReview(r.Context(), chi.URLParam(r, "tourId"), rev)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, stored)
}
