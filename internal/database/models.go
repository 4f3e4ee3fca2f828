package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted account holder
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	Email         string    `bun:"email,notnull,unique"`
	Name          string    `bun:"name,notnull"`
	Phone         *string   `bun:"phone"`
	Role          string    `bun:"role,notnull,default:'CUSTOMER'"`
	EmailVerified bool      `bun:"email_verified,notnull,default:false"`
	IsActive      bool      `bun:"is_active,notnull,default:true"`
	IsBanned      bool      `bun:"is_banned,notnull,default:false"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Account stores a sign-in credential for a user. Password accounts use
// provider "credentials" and hold an argon2id hash.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID         string    `bun:"id,pk"`
	UserID     uuid.UUID `bun:"user_id,type:uuid,notnull,unique:user_provider"`
	ProviderID string    `bun:"provider_id,notnull,unique:user_provider"`
	AccountID  string    `bun:"account_id,notnull"`
	Password   *string   `bun:"password"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	User *User `bun:"rel:belongs-to,join:user_id=id,on_delete:CASCADE"`
}

// Verification holds a pending email confirmation keyed by email address
type Verification struct {
	bun.BaseModel `bun:"table:verifications,alias:v"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Identifier string    `bun:"identifier,notnull,unique"`
	Value      string    `bun:"value,notnull"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID  `bun:"user_id,type:uuid,notnull"`
	TokenHash string     `bun:"token_hash,notnull,unique"`
	ExpiresAt time.Time  `bun:"expires_at,notnull"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	RevokedAt *time.Time `bun:"revoked_at"`

	User *User `bun:"rel:belongs-to,join:user_id=id,on_delete:CASCADE"`
}

type Facility struct {
	bun.BaseModel `bun:"table:facilities,alias:f"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	OwnerID       uuid.UUID `bun:"owner_id,type:uuid,notnull"`
	Name          string    `bun:"name,notnull"`
	Description   string    `bun:"description,notnull,default:''"`
	Address       string    `bun:"address,notnull"`
	City          string    `bun:"city,notnull,default:''"`
	ContactPhone  *string   `bun:"contact_phone"`
	ContactEmail  *string   `bun:"contact_email"`
	LocationLat   *float64  `bun:"location_lat"`
	LocationLng   *float64  `bun:"location_lng"`
	Status        string    `bun:"status,notnull,default:'pending'"`
	AdminComments *string   `bun:"admin_comments"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Owner     *User           `bun:"rel:belongs-to,join:owner_id=id"`
	Sports    []Sport         `bun:"m2m:facility_sports,join:Facility=Sport"`
	Amenities []Amenity       `bun:"m2m:facility_amenities,join:Facility=Amenity"`
	Photos    []FacilityPhoto `bun:"rel:has-many,join:id=facility_id"`
	Courts    []Court         `bun:"rel:has-many,join:id=facility_id"`
	Reviews   []Review        `bun:"rel:has-many,join:id=facility_id"`
}

type Sport struct {
	bun.BaseModel `bun:"table:sports,alias:s"`

	ID   uuid.UUID `bun:"id,pk,type:uuid"`
	Name string    `bun:"name,notnull,unique"`
}

type Amenity struct {
	bun.BaseModel `bun:"table:amenities,alias:am"`

	ID   uuid.UUID `bun:"id,pk,type:uuid"`
	Name string    `bun:"name,notnull,unique"`
}

type FacilitySport struct {
	bun.BaseModel `bun:"table:facility_sports,alias:fs"`

	FacilityID uuid.UUID `bun:"facility_id,pk,type:uuid"`
	SportID    uuid.UUID `bun:"sport_id,pk,type:uuid"`

	Facility *Facility `bun:"rel:belongs-to,join:facility_id=id,on_delete:CASCADE"`
	Sport    *Sport    `bun:"rel:belongs-to,join:sport_id=id,on_delete:CASCADE"`
}

type FacilityAmenity struct {
	bun.BaseModel `bun:"table:facility_amenities,alias:fa"`

	FacilityID uuid.UUID `bun:"facility_id,pk,type:uuid"`
	AmenityID  uuid.UUID `bun:"amenity_id,pk,type:uuid"`

	Facility *Facility `bun:"rel:belongs-to,join:facility_id=id,on_delete:CASCADE"`
	Amenity  *Amenity  `bun:"rel:belongs-to,join:amenity_id=id,on_delete:CASCADE"`
}

type FacilityPhoto struct {
	bun.BaseModel `bun:"table:facility_photos,alias:fp"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	FacilityID uuid.UUID `bun:"facility_id,type:uuid,notnull"`
	PhotoURL   string    `bun:"photo_url,notnull"`
	IsPrimary  bool      `bun:"is_primary,notnull,default:false"`
	SortOrder  int       `bun:"sort_order,notnull,default:0"`
	Caption    *string   `bun:"caption"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Facility *Facility `bun:"rel:belongs-to,join:facility_id=id,on_delete:CASCADE"`
}

type Court struct {
	bun.BaseModel `bun:"table:courts,alias:c"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	FacilityID   uuid.UUID  `bun:"facility_id,type:uuid,notnull"`
	SportID      *uuid.UUID `bun:"sport_id,type:uuid"`
	Name         string     `bun:"name,notnull"`
	PricePerHour float64    `bun:"price_per_hour,type:numeric(10,2),notnull"`
	IsActive     bool       `bun:"is_active,notnull,default:true"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Facility *Facility `bun:"rel:belongs-to,join:facility_id=id,on_delete:CASCADE"`
	Sport    *Sport    `bun:"rel:belongs-to,join:sport_id=id"`
}

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	FacilityID uuid.UUID `bun:"facility_id,type:uuid,notnull"`
	UserID     uuid.UUID `bun:"user_id,type:uuid,notnull"`
	Rating     int       `bun:"rating,notnull"`
	Comment    *string   `bun:"comment"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Facility *Facility `bun:"rel:belongs-to,join:facility_id=id,on_delete:CASCADE"`
	User     *User     `bun:"rel:belongs-to,join:user_id=id"`
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	UserID      uuid.UUID `bun:"user_id,type:uuid,notnull"`
	CourtID     uuid.UUID `bun:"court_id,type:uuid,notnull"`
	StartTime   time.Time `bun:"start_time,notnull"`
	EndTime     time.Time `bun:"end_time,notnull"`
	TotalAmount float64   `bun:"total_amount,type:numeric(10,2),notnull"`
	Status      string    `bun:"status,notnull,default:'PENDING'"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	User  *User  `bun:"rel:belongs-to,join:user_id=id"`
	Court *Court `bun:"rel:belongs-to,join:court_id=id"`
}

// RegisterModels registers the m2m join models. bun requires this before
// any query touching Facility.Sports or Facility.Amenities.
func RegisterModels(db *bun.DB) {
	db.RegisterModel((*FacilitySport)(nil), (*FacilityAmenity)(nil))
}

// Models lists every table in creation order (referenced tables first)
func Models() []any {
	return []any{
		(*User)(nil),
		(*Account)(nil),
		(*Verification)(nil),
		(*RefreshToken)(nil),
		(*Sport)(nil),
		(*Amenity)(nil),
		(*Facility)(nil),
		(*FacilitySport)(nil),
		(*FacilityAmenity)(nil),
		(*FacilityPhoto)(nil),
		(*Court)(nil),
		(*Review)(nil),
		(*Booking)(nil),
	}
}
