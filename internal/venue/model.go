package venue

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/user"
)

var (
	ErrNotFound      = errors.New("venue not found")
	ErrInvalidStatus = errors.New("status must be approved or rejected")
	ErrPhotoTooLarge = errors.New("photo size must be less than 5MB")
	ErrMissingFields = errors.New("missing required fields")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

const (
	PlaceholderPhoto = "/placeholder-venue.jpg"
	DefaultPrice     = 500.0
	OperatingHours   = "7:00 AM - 11:00 PM"
	UnknownCity      = "Unknown"

	pendingComment = "Pending review"
	recentReviews  = 10
)

// Viewer is the caller a venue is rendered for. The zero value is an
// anonymous caller.
type Viewer struct {
	UserID uuid.UUID
	Role   user.Role
}

func (v Viewer) Authenticated() bool {
	return v.UserID != uuid.Nil
}

func (v Viewer) IsAdmin() bool {
	return v.Role == user.RoleAdmin
}

func (v Viewer) Owns(ownerID uuid.UUID) bool {
	return v.Authenticated() && v.UserID == ownerID
}

// CanSee reports whether a venue with the given owner and status is
// visible. Only approved venues are public.
func (v Viewer) CanSee(ownerID uuid.UUID, status Status) bool {
	return status == StatusApproved || v.IsAdmin() || v.Owns(ownerID)
}

// ListFilter narrows a venue listing. Sport and City are case-insensitive
// substring matches.
type ListFilter struct {
	Sport string
	City  string
	Page  int
	Limit int
}

func (f ListFilter) offset() int {
	return (f.Page - 1) * f.Limit
}

type Summary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	Sports        []string  `json:"sports"`
	Amenities     []string  `json:"amenities"`
	PhotoURL      string    `json:"photoUrl"`
	StartingPrice float64   `json:"startingPrice"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        Status    `json:"status"`
	IsOwner       bool      `json:"isOwner"`
}

type Photo struct {
	ID        uuid.UUID `json:"id"`
	PhotoURL  string    `json:"photoUrl"`
	IsPrimary bool      `json:"isPrimary"`
}

type Court struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PricePerHour float64   `json:"pricePerHour"`
	Sport        string    `json:"sport"`
}

type Review struct {
	ID        uuid.UUID `json:"id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Detail is the full view of a single venue
type Detail struct {
	Summary
	Phone          *string  `json:"phone"`
	Email          *string  `json:"email"`
	Photos         []Photo  `json:"photos"`
	Courts         []Court  `json:"courts"`
	Reviews        []Review `json:"reviews"`
	OperatingHours string   `json:"operatingHours"`
}

// UploadPhoto is one uploaded image
type UploadPhoto struct {
	ContentType string
	Data        []byte
}

// UploadInput is a venue submitted by a facility owner
type UploadInput struct {
	Name         string
	Description  string
	Address      string
	City         string
	Sports       []string
	Amenities    []string
	PricePerHour float64
	ContactPhone string
	ContactEmail string
	Photos       []UploadPhoto
}
