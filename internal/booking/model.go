package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrCourtNotFound = errors.New("court not found for this venue")
)

const (
	MinDuration = 1
	MaxDuration = 8

	placeholderImage = "/placeholder-venue.jpg"
	generalSport     = "General"
)

// Booking is one reservation as shown in the caller's booking list
type Booking struct {
	ID          uuid.UUID `json:"id"`
	VenueName   string    `json:"venueName"`
	Sport       string    `json:"sport"`
	Court       string    `json:"court"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	VenueImage  string    `json:"venueImage"`
	CreatedAt   time.Time `json:"createdAt"`
	BookingDate time.Time `json:"bookingDate"`
}

// QuoteInput selects courts of one venue for a number of hours
type QuoteInput struct {
	VenueID  uuid.UUID
	CourtIDs []uuid.UUID
	Duration int
}

type QuoteLine struct {
	CourtID      uuid.UUID `json:"courtId"`
	Name         string    `json:"name"`
	PricePerHour float64   `json:"pricePerHour"`
	Subtotal     float64   `json:"subtotal"`
}

// Quote is the price of a prospective booking. Nothing is persisted.
type Quote struct {
	VenueID  uuid.UUID   `json:"venueId"`
	Duration int         `json:"duration"`
	Courts   []QuoteLine `json:"courts"`
	Total    float64     `json:"total"`
}

// ClampDuration bounds hours to MinDuration..MaxDuration
func ClampDuration(hours int) int {
	return max(MinDuration, min(hours, MaxDuration))
}
