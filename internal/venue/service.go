package venue

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/database"
	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/logging"
)

// ListResult is one page of venues
type ListResult struct {
	Venues     []Summary           `json:"venues"`
	Pagination httputil.Pagination `json:"pagination"`
}

// Service formats venues for the API and validates uploads
type Service struct {
	store         Store
	logger        *logging.Logger
	maxPhotoBytes int64
	now           func() time.Time
}

func NewService(store Store, logger *logging.Logger, maxPhotoBytes int64) *Service {
	return &Service{
		store:         store,
		logger:        logger,
		maxPhotoBytes: maxPhotoBytes,
		now:           time.Now,
	}
}

// List returns the venues visible to viewer, newest first
func (s *Service) List(ctx context.Context, filter ListFilter, viewer Viewer) (*ListResult, error) {
	facilities, total, err := s.store.List(ctx, filter, viewer)
	if err != nil {
		return nil, err
	}

	venues := make([]Summary, 0, len(facilities))
	for i := range facilities {
		venues = append(venues, toSummary(&facilities[i], viewer))
	}

	return &ListResult{
		Venues:     venues,
		Pagination: httputil.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// Get returns the venue detail. Venues hidden from viewer are reported as
// not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*Detail, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !viewer.CanSee(f.OwnerID, Status(f.Status)) {
		return nil, ErrNotFound
	}

	return toDetail(f, viewer), nil
}

// Upload stores a new pending venue for ownerID and returns its id
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, in UploadInput) (uuid.UUID, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.Sports = cleanNames(in.Sports)
	in.Amenities = cleanNames(in.Amenities)

	if in.Name == "" || in.Address == "" || in.City == "" || len(in.Sports) == 0 {
		return uuid.Nil, ErrMissingFields
	}

	now := s.now()
	facility := &database.Facility{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Name:          in.Name,
		Description:   strings.TrimSpace(in.Description),
		Address:       in.Address,
		City:          in.City,
		ContactPhone:  optional(in.ContactPhone),
		ContactEmail:  optional(in.ContactEmail),
		Status:        string(StatusPending),
		AdminComments: optional(pendingComment),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	photos := make([]database.FacilityPhoto, 0, len(in.Photos))
	for i, p := range in.Photos {
		if int64(len(p.Data)) > s.maxPhotoBytes {
			return uuid.Nil, ErrPhotoTooLarge
		}
		caption := fmt.Sprintf("Venue photo %d", i+1)
		photos = append(photos, database.FacilityPhoto{
			ID:         uuid.New(),
			FacilityID: facility.ID,
			PhotoURL:   dataURI(p),
			IsPrimary:  i == 0,
			SortOrder:  i,
			Caption:    &caption,
			CreatedAt:  now,
		})
	}

	price := in.PricePerHour
	if price <= 0 {
		price = DefaultPrice
	}

	sub := &Submission{
		Facility:   facility,
		Sports:     in.Sports,
		Amenities:  in.Amenities,
		Photos:     photos,
		CourtName:  fmt.Sprintf("%s - %s Court", in.Name, in.Sports[0]),
		CourtPrice: price,
	}

	if err := s.store.Create(ctx, sub); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("venue submitted for review", "facility_id", facility.ID, "owner_id", ownerID, "photos", len(photos))
	return facility.ID, nil
}

// Review approves or rejects a venue
func (s *Service) Review(ctx context.Context, id uuid.UUID, status Status, comment string) error {
	if status != StatusApproved && status != StatusRejected {
		return ErrInvalidStatus
	}
	return s.store.UpdateStatus(ctx, id, status, strings.TrimSpace(comment))
}

func dataURI(p UploadPhoto) string {
	contentType := p.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(p.Data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// cleanNames trims names and drops blanks and duplicates, keeping order
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// cityOf prefers the stored city and falls back to the last address segment
func cityOf(f *database.Facility) string {
	if c := strings.TrimSpace(f.City); c != "" {
		return c
	}
	parts := strings.Split(f.Address, ",")
	if c := strings.TrimSpace(parts[len(parts)-1]); c != "" {
		return c
	}
	return UnknownCity
}

func averageRating(reviews []database.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}

func startingPrice(courts []database.Court) float64 {
	if len(courts) == 0 {
		return DefaultPrice
	}
	lowest := courts[0].PricePerHour
	for _, c := range courts[1:] {
		lowest = min(lowest, c.PricePerHour)
	}
	return lowest
}

func primaryPhoto(photos []database.FacilityPhoto) string {
	for _, p := range photos {
		if p.IsPrimary {
			return p.PhotoURL
		}
	}
	return PlaceholderPhoto
}

func sportNames(sports []database.Sport) []string {
	names := make([]string, 0, len(sports))
	for _, s := range sports {
		names = append(names, s.Name)
	}
	return names
}

func amenityNames(amenities []database.Amenity) []string {
	names := make([]string, 0, len(amenities))
	for _, a := range amenities {
		names = append(names, a.Name)
	}
	return names
}

func toSummary(f *database.Facility, viewer Viewer) Summary {
	return Summary{
		ID:            f.ID,
		Name:          f.Name,
		Description:   f.Description,
		Address:       f.Address,
		City:          cityOf(f),
		Sports:        sportNames(f.Sports),
		Amenities:     amenityNames(f.Amenities),
		PhotoURL:      primaryPhoto(f.Photos),
		StartingPrice: startingPrice(f.Courts),
		Rating:        averageRating(f.Reviews),
		ReviewCount:   len(f.Reviews),
		CreatedAt:     f.CreatedAt,
		Status:        Status(f.Status),
		IsOwner:       viewer.Owns(f.OwnerID),
	}
}

func toDetail(f *database.Facility, viewer Viewer) *Detail {
	d := &Detail{
		Summary:        toSummary(f, viewer),
		Photos:         make([]Photo, 0, len(f.Photos)),
		Courts:         make([]Court, 0, len(f.Courts)),
		Reviews:        make([]Review, 0, min(len(f.Reviews), recentReviews)),
		OperatingHours: OperatingHours,
	}

	if f.Owner != nil {
		d.Phone = f.Owner.Phone
		d.Email = &f.Owner.Email
	}

	for _, p := range f.Photos {
		d.Photos = append(d.Photos, Photo{ID: p.ID, PhotoURL: p.PhotoURL, IsPrimary: p.IsPrimary})
	}

	for _, c := range f.Courts {
		sport := "General"
		if c.Sport != nil {
			sport = c.Sport.Name
		}
		d.Courts = append(d.Courts, Court{ID: c.ID, Name: c.Name, PricePerHour: c.PricePerHour, Sport: sport})
	}

	for i, r := range f.Reviews {
		if i == recentReviews {
			break
		}
		name := "Anonymous"
		if r.User != nil && r.User.Name != "" {
			name = r.User.Name
		}
		d.Reviews = append(d.Reviews, Review{
			ID:        r.ID,
			Rating:    r.Rating,
			Comment:   r.Comment,
			UserName:  name,
			CreatedAt: r.CreatedAt,
		})
	}

	return d
}
