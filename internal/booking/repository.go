package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/quickcourt/quickcourt-api/internal/database"
)

// Store is the persistence the booking service needs
type Store interface {
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]database.Booking, int, error)
	PrimaryPhotos(ctx context.Context, facilityIDs []uuid.UUID) (map[uuid.UUID]string, error)
	GetVenue(ctx context.Context, venueID uuid.UUID) (*database.Facility, error)
}

type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) listQuery(dest *[]database.Booking, userID uuid.UUID, page, limit int) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(dest).
		Relation("Court").
		Relation("Court.Facility", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Column("id", "name")
		}).
		Relation("Court.Sport").
		Where("b.user_id = ?", userID).
		Order("b.created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit)
}

// ListByUser returns one page of the user's bookings, newest first, with
// court, facility and sport attached
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]database.Booking, int, error) {
	var (
		bookings []database.Booking
		total    int
	)

	err := database.WithRetry(ctx, func() error {
		bookings = nil
		var err error
		total, err = r.listQuery(&bookings, userID, page, limit).ScanAndCount(ctx)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, total, nil
}

// PrimaryPhotos maps facility id to its primary photo URL. Facilities
// without one are absent from the map.
func (r *Repository) PrimaryPhotos(ctx context.Context, facilityIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(facilityIDs))
	if len(facilityIDs) == 0 {
		return out, nil
	}

	var photos []database.FacilityPhoto
	err := r.db.NewSelect().
		Model(&photos).
		Column("facility_id", "photo_url").
		Where("fp.facility_id IN (?)", bun.In(facilityIDs)).
		Where("fp.is_primary = TRUE").
		Order("fp.sort_order ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load venue photos: %w", err)
	}

	for _, p := range photos {
		if _, ok := out[p.FacilityID]; !ok {
			out[p.FacilityID] = p.PhotoURL
		}
	}
	return out, nil
}

// GetVenue loads a venue with its active courts
func (r *Repository) GetVenue(ctx context.Context, venueID uuid.UUID) (*database.Facility, error) {
	f := new(database.Facility)
	err := r.db.NewSelect().
		Model(f).
		Column("id", "owner_id", "status").
		Relation("Courts", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("c.is_active = TRUE")
		}).
		Where("f.id = ?", venueID).
		Scan(ctx)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return f, nil
}
