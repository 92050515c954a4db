package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainlistings "homestay/internal/domain/listings"
)

const fixtureJSON = `[
  {
    "publicId": "3f1c8c1e-1b7a-4d55-9a53-0d7b1c2e4a10",
    "landlordPublicId": "8d0f2b4e-7c6a-4e8b-a0a1-5b2f6c9d3e21",
    "title": "Lake cabin",
    "location": "Annecy",
    "price": 120,
    "bookingCategory": "COUNTRYSIDE",
    "cover": {"key": "covers/cabin.jpg", "contentType": "image/jpeg"}
  },
  {
    "publicId": "5a2d9e3f-6b1c-4f7e-8d2a-1c3b5e7f9a02",
    "landlordPublicId": "8d0f2b4e-7c6a-4e8b-a0a1-5b2f6c9d3e21",
    "title": "Beach flat",
    "location": "Biarritz",
    "price": 200
  }
]`

func TestLoadListingFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o600))

	catalog, err := LoadListingFixtures(path)
	require.NoError(t, err)
	require.Len(t, catalog.All(), 2)

	cabin, err := catalog.ByPublicID(context.Background(), uuid.MustParse("3f1c8c1e-1b7a-4d55-9a53-0d7b1c2e4a10"))
	require.NoError(t, err)
	assert.Equal(t, 120, cabin.NightlyPrice)
	assert.Equal(t, domainlistings.CategoryCountry, cabin.Category)
	assert.Equal(t, "covers/cabin.jpg", cabin.Cover.Key)

	flat, err := catalog.ByPublicID(context.Background(), uuid.MustParse("5a2d9e3f-6b1c-4f7e-8d2a-1c3b5e7f9a02"))
	require.NoError(t, err)
	assert.Equal(t, domainlistings.CategoryAll, flat.Category)

	owned, err := catalog.ByLandlord(context.Background(), uuid.MustParse("8d0f2b4e-7c6a-4e8b-a0a1-5b2f6c9d3e21"))
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "Beach flat", owned[0].Title)
}

func TestLoadListingFixturesRejectsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"publicId":"3f1c8c1e-1b7a-4d55-9a53-0d7b1c2e4a10","price":10}]`), 0o600))

	_, err := LoadListingFixtures(path)
	assert.ErrorIs(t, err, domainlistings.ErrLandlordRequired)

	_, err = LoadListingFixtures(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCatalogOwnershipAndDelete(t *testing.T) {
	landlord := uuid.New()
	listing := &domainlistings.Listing{PublicID: uuid.New(), LandlordID: landlord, Title: "Loft", NightlyPrice: 50}
	catalog, err := NewListingCatalog(listing)
	require.NoError(t, err)

	_, err = catalog.ByPublicIDAndLandlord(context.Background(), listing.PublicID, uuid.New())
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)

	got, err := catalog.ByPublicIDAndLandlord(context.Background(), listing.PublicID, landlord)
	require.NoError(t, err)
	got.Title = "mutated"
	again, _ := catalog.ByPublicID(context.Background(), listing.PublicID)
	assert.Equal(t, "Loft", again.Title)

	catalog.Delete(listing.PublicID)
	_, err = catalog.ByPublicID(context.Background(), listing.PublicID)
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)
}
