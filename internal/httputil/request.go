package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failed field of a request
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// ErrInvalidBody is returned when the body is not decodable JSON
var ErrInvalidBody = errors.New("invalid request body")

// DecodeAndValidate decodes a JSON body into T and runs its validate tags.
// Decoding failures wrap ErrInvalidBody, tag failures are *ValidationError.
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	defer r.Body.Close()

	var body T
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	if err := ValidateStruct(body); err != nil {
		return nil, err
	}

	return &body, nil
}

// ValidateStruct runs validate tags on v
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return mapValidationErrors(ve)
		}
		return err
	}
	return nil
}

func mapValidationErrors(errs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{}

	for _, e := range errs {
		var message string
		switch e.Tag() {
		case "required":
			message = "is required"
		case "email":
			message = "must be a valid email address"
		case "min":
			if e.Kind() == reflect.String {
				message = "must be at least " + e.Param() + " characters"
			} else {
				message = "must be at least " + e.Param()
			}
		case "max":
			if e.Kind() == reflect.String {
				message = "must be at most " + e.Param() + " characters"
			} else {
				message = "must be at most " + e.Param()
			}
		case "len":
			message = "must be exactly " + e.Param() + " characters"
		case "numeric":
			message = "must contain only digits"
		case "oneof":
			message = "must be one of: " + e.Param()
		case "uuid", "uuid4":
			message = "must be a valid UUID"
		default:
			message = "is invalid"
		}

		out.Details = append(out.Details, FieldError{
			Field:   e.Field(),
			Message: message,
		})
	}

	return out
}

// Pagination is the page block included in list responses
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes the page count for total rows
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// PageParams reads page and limit from the query string. Missing or
// non-positive values fall back to 1 and defaultLimit; limit is capped at maxLimit.
func PageParams(r *http.Request, defaultLimit, maxLimit int) (page, limit int) {
	page = queryInt(r, "page", 1)
	limit = queryInt(r, "limit", defaultLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// ClientIP returns the caller address. chi's RealIP middleware has already
// folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
