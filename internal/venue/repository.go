package venue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/quickcourt/quickcourt-api/internal/database"
)

// Submission is everything written for one uploaded venue
type Submission struct {
	Facility   *database.Facility
	Sports     []string
	Amenities  []string
	Photos     []database.FacilityPhoto
	CourtName  string
	CourtPrice float64
}

// Store is the persistence the venue service needs
type Store interface {
	List(ctx context.Context, filter ListFilter, viewer Viewer) ([]database.Facility, int, error)
	Get(ctx context.Context, id uuid.UUID) (*database.Facility, error)
	Create(ctx context.Context, sub *Submission) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, comment string) error
}

// Repository is the bun implementation of Store
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

// applyVisibility keeps approved venues plus those the viewer owns.
// Admins see everything.
func applyVisibility(q *bun.SelectQuery, viewer Viewer) *bun.SelectQuery {
	if viewer.IsAdmin() {
		return q
	}
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("f.status = ?", StatusApproved)
		if viewer.Authenticated() {
			q = q.WhereOr("f.owner_id = ?", viewer.UserID)
		}
		return q
	})
}

func (r *Repository) listQuery(dest *[]database.Facility, filter ListFilter, viewer Viewer) *bun.SelectQuery {
	q := r.db.NewSelect().
		Model(dest).
		Relation("Sports").
		Relation("Amenities").
		Relation("Photos", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("fp.is_primary = TRUE").Order("fp.sort_order ASC")
		}).
		Relation("Courts", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Column("id", "facility_id", "price_per_hour").Order("c.price_per_hour ASC")
		}).
		Relation("Reviews", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Column("id", "facility_id", "rating")
		})

	q = applyVisibility(q, viewer)

	if filter.Sport != "" {
		sportMatch := r.db.NewSelect().
			TableExpr("facility_sports AS fs").
			Join("JOIN sports AS s ON s.id = fs.sport_id").
			Column("fs.facility_id").
			Where("s.name ILIKE ?", containsPattern(filter.Sport))
		q = q.Where("f.id IN (?)", sportMatch)
	}
	if filter.City != "" {
		q = q.Where("f.city ILIKE ?", containsPattern(filter.City))
	}

	return q.Order("f.created_at DESC").
		Limit(filter.Limit).
		Offset(filter.offset())
}

// List returns one page of visible venues and the total number of matches
func (r *Repository) List(ctx context.Context, filter ListFilter, viewer Viewer) ([]database.Facility, int, error) {
	var (
		facilities []database.Facility
		total      int
	)

	err := database.WithRetry(ctx, func() error {
		facilities = nil
		var err error
		total, err = r.listQuery(&facilities, filter, viewer).ScanAndCount(ctx)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list venues: %w", err)
	}

	return facilities, total, nil
}

func (r *Repository) getQuery(f *database.Facility, id uuid.UUID) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(f).
		Relation("Owner").
		Relation("Sports").
		Relation("Amenities").
		Relation("Photos", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("fp.is_primary DESC", "fp.created_at ASC", "fp.sort_order ASC")
		}).
		Relation("Courts", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("c.price_per_hour ASC")
		}).
		Relation("Courts.Sport").
		Relation("Reviews", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("r.created_at DESC")
		}).
		Relation("Reviews.User").
		Where("f.id = ?", id)
}

// Get loads a venue with everything the detail view shows. Visibility is
// checked by the caller.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*database.Facility, error) {
	f := new(database.Facility)
	if err := r.getQuery(f, id).Scan(ctx); err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return f, nil
}

// Create writes the facility, its lookups, photos and default court in one
// transaction
func (r *Repository) Create(ctx context.Context, sub *Submission) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(sub.Facility).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert facility: %w", err)
		}

		sportIDs := make(map[string]uuid.UUID, len(sub.Sports))
		facilitySports := make([]database.FacilitySport, 0, len(sub.Sports))
		for _, name := range sub.Sports {
			sport := &database.Sport{ID: uuid.New(), Name: name}
			if err := upsertByName(ctx, tx, sport); err != nil {
				return fmt.Errorf("failed to upsert sport %q: %w", name, err)
			}
			sportIDs[name] = sport.ID
			facilitySports = append(facilitySports, database.FacilitySport{FacilityID: sub.Facility.ID, SportID: sport.ID})
		}
		if len(facilitySports) > 0 {
			if _, err := tx.NewInsert().Model(&facilitySports).Exec(ctx); err != nil {
				return fmt.Errorf("failed to link sports: %w", err)
			}
		}

		facilityAmenities := make([]database.FacilityAmenity, 0, len(sub.Amenities))
		for _, name := range sub.Amenities {
			amenity := &database.Amenity{ID: uuid.New(), Name: name}
			if err := upsertByName(ctx, tx, amenity); err != nil {
				return fmt.Errorf("failed to upsert amenity %q: %w", name, err)
			}
			facilityAmenities = append(facilityAmenities, database.FacilityAmenity{FacilityID: sub.Facility.ID, AmenityID: amenity.ID})
		}
		if len(facilityAmenities) > 0 {
			if _, err := tx.NewInsert().Model(&facilityAmenities).Exec(ctx); err != nil {
				return fmt.Errorf("failed to link amenities: %w", err)
			}
		}

		if len(sub.Photos) > 0 {
			if _, err := tx.NewInsert().Model(&sub.Photos).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert photos: %w", err)
			}
		}

		if len(sub.Sports) > 0 {
			sportID := sportIDs[sub.Sports[0]]
			court := &database.Court{
				ID:           uuid.New(),
				FacilityID:   sub.Facility.ID,
				SportID:      &sportID,
				Name:         sub.CourtName,
				PricePerHour: sub.CourtPrice,
				IsActive:     true,
				CreatedAt:    sub.Facility.CreatedAt,
			}
			if _, err := tx.NewInsert().Model(court).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert court: %w", err)
			}
		}

		return nil
	})
}

// upsertByName inserts a sport or amenity, or loads the id of the existing
// row with the same name into model
func upsertByName(ctx context.Context, db bun.IDB, model any) error {
	_, err := upsertByNameQuery(db, model).Exec(ctx)
	return err
}

func upsertByNameQuery(db bun.IDB, model any) *bun.InsertQuery {
	return db.NewInsert().
		Model(model).
		On("CONFLICT (name) DO UPDATE").
		Set("name = EXCLUDED.name").
		Returning("id")
}

// UpdateStatus records an admin decision on a venue
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, comment string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Facility)(nil)).
		Set("status = ?", status).
		Set("admin_comments = ?", comment).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update venue status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
