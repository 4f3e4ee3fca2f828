package venue

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/auth"
	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/logging"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// Handler serves the venue endpoints
type Handler struct {
	service           *Service
	maxPhotoBytes     int64
	maxMultipartBytes int64
}

func NewHandler(service *Service, maxPhotoBytes, maxMultipartBytes int64) *Handler {
	return &Handler{
		service:           service,
		maxPhotoBytes:     maxPhotoBytes,
		maxMultipartBytes: maxMultipartBytes,
	}
}

// UploadResponse is returned after a venue was submitted
type UploadResponse struct {
	Message    string    `json:"message"`
	FacilityID uuid.UUID `json:"facilityId"`
	Status     Status    `json:"status"`
}

// StatusRequest is an admin decision on a venue
type StatusRequest struct {
	Status  Status `json:"status" validate:"required,oneof=approved rejected"`
	Comment string `json:"comment" validate:"max=1000"`
}

type uploadForm struct {
	Name         string   `json:"name" validate:"required"`
	Address      string   `json:"address" validate:"required"`
	City         string   `json:"city" validate:"required"`
	SportTypes   []string `json:"sportTypes" validate:"min=1"`
	ContactEmail string   `json:"contactEmail" validate:"omitempty,email"`
}

func viewerFrom(r *http.Request) Viewer {
	var v Viewer
	if id, ok := auth.GetUserIDFromContext(r.Context()); ok {
		v.UserID = id
	}
	if role, ok := auth.GetRoleFromContext(r.Context()); ok {
		v.Role = role
	}
	return v
}

// List handles venue browsing
// @Summary      List venues
// @Description  Approved venues, plus the caller's own pending venues. Admins see all.
// @Tags         venues
// @Produce      json
// @Param        sport query string false "Sport name contains"
// @Param        city  query string false "City contains"
// @Param        page  query int false "Page (default 1)"
// @Param        limit query int false "Page size (default 10, max 50)"
// @Success      200 {object} ListResult
// @Failure      500 {object} httputil.ErrorResponse
// @Router       /venues [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	page, limit := httputil.PageParams(r, defaultPageSize, maxPageSize)
	filter := ListFilter{
		Sport: strings.TrimSpace(r.URL.Query().Get("sport")),
		City:  strings.TrimSpace(r.URL.Query().Get("city")),
		Page:  page,
		Limit: limit,
	}

	result, err := h.service.List(r.Context(), filter, viewerFrom(r))
	if err != nil {
		logger.Error("failed to list venues", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Failed to fetch venues", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, result, http.StatusOK)
}

// Get handles a single venue
// @Summary      Venue detail
// @Tags         venues
// @Produce      json
// @Param        id path string true "Venue ID"
// @Success      200 {object} Detail
// @Failure      404 {object} httputil.ErrorResponse "Not found or not visible"
// @Router       /venues/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "Venue not found or access denied", httputil.CodeVenueNotFound, http.StatusNotFound)
		return
	}

	detail, err := h.service.Get(r.Context(), id, viewerFrom(r))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "Venue not found or access denied", httputil.CodeVenueNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get venue", "venue_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "Failed to fetch venue details", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, detail, http.StatusOK)
}

// Upload handles venue submission by facility owners
// @Summary      Upload venue
// @Description  Multipart form. sportTypes and amenities are JSON arrays; photos are files of at most 5MB.
// @Tags         venues
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      201 {object} UploadResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /venues/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "Unauthorized. Only facility owners can upload venues.", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(h.maxMultipartBytes); err != nil {
		logger.Warn("invalid multipart body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in, details := readUploadForm(r)
	if len(details) > 0 {
		httputil.RespondValidationError(w, details)
		return
	}

	form := uploadForm{
		Name:         in.Name,
		Address:      in.Address,
		City:         in.City,
		SportTypes:   in.Sports,
		ContactEmail: in.ContactEmail,
	}
	if err := httputil.ValidateStruct(form); err != nil {
		httputil.RespondDecodeError(w, err)
		return
	}

	for _, fh := range r.MultipartForm.File["photos"] {
		photo, err := h.readPhoto(fh)
		if err != nil {
			if errors.Is(err, ErrPhotoTooLarge) {
				logger.Warn("photo too large", "filename", fh.Filename, "size", fh.Size)
				httputil.RespondErrorWithCode(w, "Photo size must be less than 5MB", httputil.CodePhotoTooLarge, http.StatusBadRequest)
				return
			}
			logger.Error("failed to read photo", "error", err.Error())
			httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		in.Photos = append(in.Photos, photo)
	}

	facilityID, err := h.service.Upload(r.Context(), ownerID, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			httputil.RespondErrorWithCode(w, "Missing required fields", httputil.CodeValidationFailed, http.StatusBadRequest)
		case errors.Is(err, ErrPhotoTooLarge):
			httputil.RespondErrorWithCode(w, "Photo size must be less than 5MB", httputil.CodePhotoTooLarge, http.StatusBadRequest)
		default:
			logger.Error("venue upload failed", "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, UploadResponse{
		Message:    "Venue uploaded successfully",
		FacilityID: facilityID,
		Status:     StatusPending,
	}, http.StatusCreated)
}

// UpdateStatus handles an admin approval decision
// @Summary      Review venue
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Venue ID"
// @Param        request body StatusRequest true "Decision"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /admin/venues/{id}/status [patch]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "venue not found", httputil.CodeVenueNotFound, http.StatusNotFound)
		return
	}

	req, err := httputil.DecodeAndValidate[StatusRequest](r)
	if err != nil {
		httputil.RespondDecodeError(w, err)
		return
	}

	if err := h.service.Review(r.Context(), id, req.Status, req.Comment); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "venue not found", httputil.CodeVenueNotFound, http.StatusNotFound)
		case errors.Is(err, ErrInvalidStatus):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidStatus, http.StatusBadRequest)
		default:
			logger.Error("failed to update venue status", "venue_id", id, "error", err.Error())
			httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("venue reviewed", "venue_id", id, "status", req.Status)
	httputil.RespondJSON(w, map[string]string{"message": "Venue status updated", "status": string(req.Status)}, http.StatusOK)
}

// readUploadForm collects the text fields. JSON array fields that do not
// parse are reported as field errors.
func readUploadForm(r *http.Request) (UploadInput, []httputil.FieldError) {
	var details []httputil.FieldError

	in := UploadInput{
		Name:         strings.TrimSpace(r.FormValue("name")),
		Description:  r.FormValue("description"),
		Address:      strings.TrimSpace(r.FormValue("address")),
		City:         strings.TrimSpace(r.FormValue("city")),
		ContactPhone: r.FormValue("contactPhone"),
		ContactEmail: strings.TrimSpace(r.FormValue("contactEmail")),
	}

	var err error
	if in.Sports, err = jsonList(r.FormValue("sportTypes")); err != nil {
		details = append(details, httputil.FieldError{Field: "sportTypes", Message: "must be a JSON array of strings"})
	}
	if in.Amenities, err = jsonList(r.FormValue("amenities")); err != nil {
		details = append(details, httputil.FieldError{Field: "amenities", Message: "must be a JSON array of strings"})
	}

	// An unparsable price falls back to the default court price
	if price, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("pricePerHour")), 64); err == nil {
		in.PricePerHour = price
	}

	return in, details
}

func jsonList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return cleanNames(out), nil
}

func (h *Handler) readPhoto(fh *multipart.FileHeader) (UploadPhoto, error) {
	if fh.Size > h.maxPhotoBytes {
		return UploadPhoto{}, ErrPhotoTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return UploadPhoto{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxPhotoBytes+1))
	if err != nil {
		return UploadPhoto{}, err
	}
	if int64(len(data)) > h.maxPhotoBytes {
		return UploadPhoto{}, ErrPhotoTooLarge
	}

	return UploadPhoto{ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}
