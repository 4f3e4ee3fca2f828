package booking

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/auth"
	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/venue"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type QuoteRequest struct {
	VenueID  uuid.UUID   `json:"venueId" validate:"required"`
	CourtIDs []uuid.UUID `json:"courtIds" validate:"required,min=1,max=20"`
	Duration int         `json:"duration"`
}

// List handles the caller's bookings
// @Summary      My bookings
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page (default 1)"
// @Param        limit query int false "Page size (default 10, max 50)"
// @Success      200 {object} ListResult
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /bookings [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "Authentication required", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	page, limit := httputil.PageParams(r, defaultPageSize, maxPageSize)
	result, err := h.service.List(r.Context(), userID, page, limit)
	if err != nil {
		logger.Error("failed to list bookings", "user_id", userID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "Failed to fetch bookings", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, result, http.StatusOK)
}

// Quote handles booking price calculation
// @Summary      Price a booking
// @Description  Sums price per hour times duration over the selected courts. Duration is clamped to 1..8 hours.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request body QuoteRequest true "Selection"
// @Success      200 {object} Quote
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /bookings/quote [post]
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	req, err := httputil.DecodeAndValidate[QuoteRequest](r)
	if err != nil {
		httputil.RespondDecodeError(w, err)
		return
	}

	var viewer venue.Viewer
	if id, ok := auth.GetUserIDFromContext(r.Context()); ok {
		viewer.UserID = id
	}
	if role, ok := auth.GetRoleFromContext(r.Context()); ok {
		viewer.Role = role
	}

	quote, err := h.service.Quote(r.Context(), QuoteInput{
		VenueID:  req.VenueID,
		CourtIDs: req.CourtIDs,
		Duration: req.Duration,
	}, viewer)
	if err != nil {
		switch {
		case errors.Is(err, ErrVenueNotFound):
			httputil.RespondErrorWithCode(w, "Venue not found or access denied", httputil.CodeVenueNotFound, http.StatusNotFound)
		case errors.Is(err, ErrCourtNotFound):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeCourtNotFound, http.StatusNotFound)
		default:
			logger.Error("failed to quote booking", "venue_id", req.VenueID, "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, quote, http.StatusOK)
}
