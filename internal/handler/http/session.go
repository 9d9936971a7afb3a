package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/TourGo/internal/handler/ws"
	"github.com/utafrali/TourGo/internal/service"
	"github.com/utafrali/TourGo/pkg/httputil"
	"github.com/utafrali/TourGo/pkg/middleware"
	"github.com/utafrali/TourGo/pkg/validator"
)

// SessionHandler handles HTTP requests for viewing session endpoints.
type SessionHandler struct {
	service *service.TourService
	hub     *ws.Hub
	logger  *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(svc *service.TourService, hub *ws.Hub, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		hub:     hub,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SwitchTourRequest is the JSON request body for pointing a session at another tour.
type SwitchTourRequest struct {
	TourID string `json:"tour_id" validate:"required"`
}

// SelectRatingRequest is the JSON request body for selecting a star rating.
// A rating of 0 clears the selection.
type SelectRatingRequest struct {
	Rating *int `json:"rating" validate:"required,min=0,max=5"`
}

// SetTextRequest is the JSON request body for replacing the pending review text.
type SetTextRequest struct {
	Content string `json:"content" validate:"max=5000"`
}

// --- Handlers ---

// OpenSession handles POST /api/v1/tours/{tourId}/sessions
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())

	view, err := h.service.OpenSession(r.Context(), chi.URLParam(r, "tourId"), username)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, view)
}

// GetSession handles GET /api/v1/sessions/{sessionId}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// StreamSession handles GET /api/v1/sessions/{sessionId}/ws
// It upgrades to a websocket that receives the session view after every change.
func (h *SessionHandler) StreamSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.hub.Serve(w, r, id, view)
}

// SwitchTour handles PUT /api/v1/sessions/{sessionId}/tour
func (h *SessionHandler) SwitchTour(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req SwitchTourRequest
	if err := validator.Decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.SwitchTour(r.Context(), id, req.TourID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// SelectRating handles PUT /api/v1/sessions/{sessionId}/rating
func (h *SessionHandler) SelectRating(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req SelectRatingRequest
	if err := validator.Decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.SelectRating(r.Context(), id, *req.Rating)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// SetText handles PUT /api/v1/sessions/{sessionId}/text
func (h *SessionHandler) SetText(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req SetTextRequest
	if err := validator.Decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.SetText(r.Context(), id, req.Content)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// SubmitReview handles POST /api/v1/sessions/{sessionId}/reviews
// The body is optional; rating and content override the pending values.
func (h *SessionHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var input service.SubmitInput
	if r.ContentLength != 0 {
		if err := validator.Decode(w, r, &input); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	result, err := h.service.SubmitReview(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, result)
}

// CloseSession handles DELETE /api/v1/sessions/{sessionId}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.service.CloseSession(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessionID reads the session id path parameter. Malformed ids are rejected
// with 400 before any lookup.
func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := httputil.ParseUUID("session id", chi.URLParam(r, "sessionId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return "", false
	}
	return id.String(), true
}
