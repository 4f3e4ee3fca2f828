package booking

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/database"
	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/venue"
)

type ListResult struct {
	Bookings   []Booking           `json:"bookings"`
	Pagination httputil.Pagination `json:"pagination"`
}

type Service struct {
	store  Store
	logger *logging.Logger
}

func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns one page of userID's bookings, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, limit int) (*ListResult, error) {
	rows, total, err := s.store.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	facilityIDs := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, b := range rows {
		if b.Court == nil || seen[b.Court.FacilityID] {
			continue
		}
		seen[b.Court.FacilityID] = true
		facilityIDs = append(facilityIDs, b.Court.FacilityID)
	}

	photos, err := s.store.PrimaryPhotos(ctx, facilityIDs)
	if err != nil {
		return nil, err
	}

	bookings := make([]Booking, 0, len(rows))
	for i := range rows {
		bookings = append(bookings, format(&rows[i], photos))
	}

	return &ListResult{
		Bookings:   bookings,
		Pagination: httputil.NewPagination(page, limit, total),
	}, nil
}

// Quote prices courts of a venue for in.Duration hours, clamped to
// MinDuration..MaxDuration. Venues the viewer cannot see are not found.
func (s *Service) Quote(ctx context.Context, in QuoteInput, viewer venue.Viewer) (*Quote, error) {
	f, err := s.store.GetVenue(ctx, in.VenueID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanSee(f.OwnerID, venue.Status(f.Status)) {
		return nil, ErrVenueNotFound
	}

	courts := make(map[uuid.UUID]database.Court, len(f.Courts))
	for _, c := range f.Courts {
		courts[c.ID] = c
	}

	q := &Quote{
		VenueID:  f.ID,
		Duration: ClampDuration(in.Duration),
		Courts:   make([]QuoteLine, 0, len(in.CourtIDs)),
	}

	seen := make(map[uuid.UUID]bool, len(in.CourtIDs))
	for _, id := range in.CourtIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		c, ok := courts[id]
		if !ok {
			return nil, ErrCourtNotFound
		}
		subtotal := roundMoney(c.PricePerHour * float64(q.Duration))
		q.Courts = append(q.Courts, QuoteLine{
			CourtID:      c.ID,
			Name:         c.Name,
			PricePerHour: c.PricePerHour,
			Subtotal:     subtotal,
		})
		q.Total += subtotal
	}
	q.Total = roundMoney(q.Total)

	return q, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// format renders times in UTC
func format(b *database.Booking, photos map[uuid.UUID]string) Booking {
	start := b.StartTime.UTC()
	end := b.EndTime.UTC()

	out := Booking{
		ID:          b.ID,
		Date:        start.Format("2006-01-02"),
		Time:        start.Format("15:04") + "-" + end.Format("15:04"),
		Amount:      b.TotalAmount,
		Status:      strings.ToLower(b.Status),
		Sport:       generalSport,
		VenueImage:  placeholderImage,
		CreatedAt:   b.CreatedAt,
		BookingDate: b.StartTime,
	}

	if c := b.Court; c != nil {
		out.Court = c.Name
		if c.Sport != nil {
			out.Sport = c.Sport.Name
		}
		if c.Facility != nil {
			out.VenueName = c.Facility.Name
		}
		if url, ok := photos[c.FacilityID]; ok {
			out.VenueImage = url
		}
	}

	return out
}
