package venue

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcourt/quickcourt-api/internal/database"
	"github.com/quickcourt/quickcourt-api/internal/user"
)

// newQueryRepo returns a repository whose queries can be rendered but never
// executed; sql.Open does not connect.
func newQueryRepo(t *testing.T) *Repository {
	t.Helper()
	sqlDB, err := sql.Open("postgres", "postgres://localhost:1/none?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewRepository(database.NewBunDB(sqlDB))
}

func TestListQuery_AnonymousSeesApprovedOnly(t *testing.T) {
	repo := newQueryRepo(t)

	var dest []database.Facility
	query := repo.listQuery(&dest, ListFilter{Page: 1, Limit: 10}, Viewer{}).String()

	assert.Contains(t, query, `f.status = 'approved'`)
	assert.NotContains(t, query, "f.owner_id =")
	assert.Contains(t, query, "LIMIT 10")
}

func TestListQuery_OwnerAlsoSeesOwnVenues(t *testing.T) {
	repo := newQueryRepo(t)
	owner := uuid.MustParse("7d4c6a4e-1f1e-4d0c-9a55-2b0f3b6f9e11")

	var dest []database.Facility
	query := repo.listQuery(&dest, ListFilter{Page: 3, Limit: 5}, Viewer{UserID: owner, Role: user.RoleFacilityOwner}).String()

	assert.Contains(t, query, `f.status = 'approved'`)
	assert.Contains(t, query, "OR f.owner_id = '"+owner.String()+"'")
	assert.Contains(t, query, "LIMIT 5")
	assert.Contains(t, query, "OFFSET 10")
}

func TestListQuery_AdminIsUnfiltered(t *testing.T) {
	repo := newQueryRepo(t)

	var dest []database.Facility
	query := repo.listQuery(&dest, ListFilter{Page: 1, Limit: 10}, Viewer{UserID: uuid.New(), Role: user.RoleAdmin}).String()

	assert.NotContains(t, query, "f.status =")
	assert.NotContains(t, query, "f.owner_id =")
}

func TestListQuery_Filters(t *testing.T) {
	repo := newQueryRepo(t)

	var dest []database.Facility
	query := repo.listQuery(&dest, ListFilter{Sport: "tennis", City: "Pune", Page: 1, Limit: 10}, Viewer{}).String()

	assert.Contains(t, query, "s.name ILIKE '%tennis%'")
	assert.Contains(t, query, "f.city ILIKE '%Pune%'")
	assert.Contains(t, query, "facility_sports AS fs")
	assert.Contains(t, query, "DESC")
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\%%`, containsPattern(" 50% "))
	assert.Equal(t, `%a\_b%`, containsPattern("a_b"))
}

func TestGetQuery_ByID(t *testing.T) {
	repo := newQueryRepo(t)
	id := uuid.New()

	query := repo.getQuery(new(database.Facility), id).String()

	assert.Contains(t, query, "f.id = '"+id.String()+"'")
	// belongs-to relations are joined into the main query
	assert.Contains(t, query, `"owner"`)
}

func TestUpsertByNameQuery_ReusesExistingRow(t *testing.T) {
	repo := newQueryRepo(t)

	sport := &database.Sport{ID: uuid.MustParse("0b5c3c1e-8f55-4a43-9b1c-1f4f8f7d2a10"), Name: "Padel"}
	query := upsertByNameQuery(repo.db, sport).String()

	assert.Contains(t, query, `INSERT INTO "sports"`)
	assert.Contains(t, query, "'Padel'")
	assert.Contains(t, query, "ON CONFLICT (name) DO UPDATE")
	assert.Contains(t, query, "SET name = EXCLUDED.name")
	assert.Contains(t, query, "RETURNING id")

	amenity := &database.Amenity{ID: uuid.New(), Name: "Parking"}
	query = upsertByNameQuery(repo.db, amenity).String()

	assert.Contains(t, query, `INSERT INTO "amenities"`)
	assert.Contains(t, query, "ON CONFLICT (name) DO UPDATE")
}
