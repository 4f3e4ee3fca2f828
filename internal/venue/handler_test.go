package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcourt/quickcourt-api/internal/auth"
	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/user"
)

func newTestHandler(store Store) *Handler {
	return NewHandler(newTestService(store), testMaxPhoto, 32<<20)
}

func asUser(r *http.Request, id uuid.UUID, role user.Role) *http.Request {
	ctx := context.WithValue(r.Context(), auth.UserIDContextKey, id)
	ctx = context.WithValue(ctx, auth.UserRoleContextKey, role)
	return r.WithContext(ctx)
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type uploadPart struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...uploadPart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + f.field + `"; filename="` + f.filename + `"`}
		h["Content-Type"] = []string{f.contentType}
		pw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/venues/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validUploadFields() map[string]string {
	return map[string]string{
		"name":         "Smash Arena",
		"description":  "Indoor courts",
		"address":      "12 MG Road",
		"city":         "Pune",
		"sportTypes":   `["Badminton","Tennis"]`,
		"amenities":    `["Parking"]`,
		"pricePerHour": "650",
		"contactEmail": "desk@smash.example",
	}
}

func TestHandler_List(t *testing.T) {
	store := newMemStore(facility(uuid.New(), StatusApproved), facility(uuid.New(), StatusPending))
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/venues?city=pun&limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[ListResult](t, rec)
	assert.Len(t, body.Venues, 1)
	assert.Equal(t, maxPageSize, body.Pagination.Limit)
	assert.Equal(t, 1, body.Pagination.Total)
}

func TestHandler_Get(t *testing.T) {
	owner := uuid.New()
	pending := facility(owner, StatusPending)
	h := newTestHandler(newMemStore(pending))

	t.Run("bad id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "not-a-uuid"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, httputil.CodeVenueNotFound, decode[httputil.ErrorResponse](t, rec).Code)
	})

	t.Run("hidden from anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), pending.ID.String()))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Venue not found or access denied", decode[httputil.ErrorResponse](t, rec).Error)
	})

	t.Run("visible to owner", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withID(httptest.NewRequest(http.MethodGet, "/", nil), pending.ID.String())
		h.Get(rec, asUser(req, owner, user.RoleFacilityOwner))
		require.Equal(t, http.StatusOK, rec.Code)
		d := decode[Detail](t, rec)
		assert.Equal(t, pending.ID, d.ID)
		assert.True(t, d.IsOwner)
		assert.Equal(t, StatusPending, d.Status)
	})
}

func TestHandler_Upload(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store)
	owner := uuid.New()

	req := multipartRequest(t, validUploadFields(),
		uploadPart{field: "photos", filename: "court.png", contentType: "image/png", data: []byte{0x89, 'P', 'N', 'G'}},
	)
	rec := httptest.NewRecorder()
	h.Upload(rec, asUser(req, owner, user.RoleFacilityOwner))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, "Venue uploaded successfully", resp.Message)
	assert.Equal(t, StatusPending, resp.Status)

	require.Len(t, store.created, 1)
	sub := store.created[0]
	assert.Equal(t, resp.FacilityID, sub.Facility.ID)
	assert.Equal(t, []string{"Badminton", "Tennis"}, sub.Sports)
	assert.Equal(t, []string{"Parking"}, sub.Amenities)
	assert.Equal(t, 650.0, sub.CourtPrice)
	require.Len(t, sub.Photos, 1)
	assert.True(t, strings.HasPrefix(sub.Photos[0].PhotoURL, "data:image/png;base64,"))
}

func TestHandler_UploadRejections(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name     string
		fields   func(map[string]string)
		files    []uploadPart
		wantCode string
	}{
		{
			name:     "missing sports",
			fields:   func(f map[string]string) { delete(f, "sportTypes") },
			wantCode: httputil.CodeValidationFailed,
		},
		{
			name:     "sports not json",
			fields:   func(f map[string]string) { f["sportTypes"] = "Tennis" },
			wantCode: httputil.CodeValidationFailed,
		},
		{
			name:     "missing name",
			fields:   func(f map[string]string) { f["name"] = " " },
			wantCode: httputil.CodeValidationFailed,
		},
		{
			name:     "bad contact email",
			fields:   func(f map[string]string) { f["contactEmail"] = "nope" },
			wantCode: httputil.CodeValidationFailed,
		},
		{
			name:     "photo too large",
			fields:   func(map[string]string) {},
			files:    []uploadPart{{field: "photos", filename: "huge.jpg", contentType: "image/jpeg", data: make([]byte, testMaxPhoto+1)}},
			wantCode: httputil.CodePhotoTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			fields := validUploadFields()
			tt.fields(fields)

			rec := httptest.NewRecorder()
			newTestHandler(store).Upload(rec, asUser(multipartRequest(t, fields, tt.files...), owner, user.RoleFacilityOwner))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decode[httputil.ErrorResponse](t, rec).Code)
			assert.Empty(t, store.created)
		})
	}
}

func TestHandler_UploadRequiresCaller(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(newMemStore()).Upload(rec, multipartRequest(t, validUploadFields()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UpdateStatus(t *testing.T) {
	f := facility(uuid.New(), StatusPending)
	store := newMemStore(f)
	h := newTestHandler(store)

	patch := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.UpdateStatus(rec, withID(req, id))
		return rec
	}

	rec := patch(f.ID.String(), `{"status":"pending"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeValidationFailed, decode[httputil.ErrorResponse](t, rec).Code)

	rec = patch(uuid.NewString(), `{"status":"approved"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = patch(f.ID.String(), `{"status":"approved","comment":"looks good"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusApproved, store.statuses[f.ID])
	assert.Equal(t, "looks good", store.comments[f.ID])
}
