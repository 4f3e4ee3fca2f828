package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	FullName string `json:"fullName" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"omitempty,len=5,numeric"`
}

func TestDecodeAndValidate_ReportsJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fullName":"A","email":"nope","otp":"12a45"}`))

	_, err := DecodeAndValidate[signupBody](req)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	fields := map[string]string{}
	for _, d := range ve.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "must be at least 2 characters", fields["fullName"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must contain only digits", fields["otp"])
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))

	_, err := DecodeAndValidate[signupBody](req)
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestDecodeAndValidate_OK(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fullName":"Ann","email":"ann@example.com"}`))

	body, err := DecodeAndValidate[signupBody](req)
	require.NoError(t, err)
	assert.Equal(t, "Ann", body.FullName)
}

func TestRespondValidationError_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondValidationError(rec, []FieldError{{Field: "email", Message: "is required"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Error)
	assert.Equal(t, CodeValidationFailed, body.Code)
	assert.Len(t, body.Details, 1)
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 10},
		{"page=3&limit=20", 3, 20},
		{"page=0&limit=-4", 1, 10},
		{"page=x&limit=500", 1, 50},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/venues?"+tt.query, nil)
			page, limit := PageParams(req, 10, 50)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 21, Pages: 3}, NewPagination(2, 10, 21))
	assert.Equal(t, 0, NewPagination(1, 10, 0).Pages)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.RemoteAddr = "10.0.0.2"
	assert.Equal(t, "10.0.0.2", ClientIP(req))
}
