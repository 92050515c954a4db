package booking

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/domain/shared/daterange"
	"homestay/internal/domain/user"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name       string
		aStart     time.Time
		aEnd       time.Time
		bStart     time.Time
		bEnd       time.Time
		overlapped bool
	}{
		{"touching after", day(1), day(5), day(5), day(10), false},
		{"touching before", day(5), day(10), day(1), day(5), false},
		{"disjoint", day(1), day(3), day(7), day(9), false},
		{"partial", day(1), day(5), day(4), day(8), true},
		{"contained", day(1), day(10), day(3), day(4), true},
		{"identical", day(1), day(5), day(1), day(5), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlapped, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.overlapped, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "symmetric")
		})
	}
}

func TestComputeNightsAndPrice(t *testing.T) {
	nights := ComputeNights(day(1), day(4))
	assert.Equal(t, 3, nights)
	total, err := ComputePrice(nights, 100)
	require.NoError(t, err)
	assert.Equal(t, 300, total)
	assert.Equal(t, 3, ComputeNights(day(1), day(4).Add(20*time.Hour)))
}

func TestComputePriceRejectsOverflow(t *testing.T) {
	_, err := ComputePrice(3, math.MaxInt/2)
	assert.ErrorIs(t, err, ErrPriceOverflow)

	total, err := ComputePrice(2, math.MaxInt/2)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt/2*2, total)

	total, err = ComputePrice(0, math.MaxInt)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNew_RejectsPriceOverflow(t *testing.T) {
	dr, err := daterange.New(day(1), day(4))
	require.NoError(t, err)
	_, err = New(CreateParams{
		PublicID:     uuid.New(),
		ListingID:    uuid.New(),
		TenantID:     uuid.New(),
		Range:        dr,
		NightlyPrice: math.MaxInt / 2,
	})
	assert.ErrorIs(t, err, ErrPriceOverflow)
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, ValidateWindow(day(1), day(2)))
	assert.ErrorIs(t, ValidateWindow(day(2), day(1)), daterange.ErrInvalidRange)
	assert.ErrorIs(t, ValidateWindow(day(1), day(1)), daterange.ErrInvalidRange)
	assert.ErrorIs(t, ValidateWindow(day(1), day(1).Add(6*time.Hour)), ErrNightsRequired)
}

func TestNew_ComputesPriceAndRecordsEvent(t *testing.T) {
	dr, err := daterange.New(day(1), day(4))
	require.NoError(t, err)
	b, err := New(CreateParams{
		PublicID:     uuid.New(),
		ListingID:    uuid.New(),
		TenantID:     uuid.New(),
		Range:        dr,
		NightlyPrice: 100,
		Now:          day(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 300, b.TotalPrice)
	assert.Equal(t, DefaultTravelers, b.NumberOfTravelers)
	assert.Equal(t, 1, b.Pending())

	evs := b.Drain()
	require.Len(t, evs, 1)
	created, ok := evs[0].(Created)
	require.True(t, ok)
	assert.Equal(t, b.PublicID, created.BookingID)
	assert.Equal(t, 3, created.Nights)
	assert.Equal(t, 0, b.Pending())
}

func TestNew_RejectsInvalidInput(t *testing.T) {
	dr := daterange.DateRange{Start: day(1), End: day(3)}
	base := CreateParams{PublicID: uuid.New(), ListingID: uuid.New(), TenantID: uuid.New(), Range: dr, NightlyPrice: 10}

	p := base
	p.ListingID = uuid.Nil
	_, err := New(p)
	assert.ErrorIs(t, err, ErrListingRequired)

	p = base
	p.TenantID = uuid.Nil
	_, err = New(p)
	assert.ErrorIs(t, err, ErrTenantRequired)

	p = base
	p.NightlyPrice = -1
	_, err = New(p)
	assert.ErrorIs(t, err, ErrNegativePrice)

	p = base
	p.Range = daterange.DateRange{Start: day(3), End: day(1)}
	_, err = New(p)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestAuthorizeCancellation(t *testing.T) {
	tenant, err := user.NewPrincipal(uuid.New())
	require.NoError(t, err)
	landlord, err := user.NewPrincipal(uuid.New(), user.RoleLandlord)
	require.NoError(t, err)
	stranger, err := user.NewPrincipal(uuid.New())
	require.NoError(t, err)

	b := &Booking{PublicID: uuid.New(), ListingID: uuid.New(), TenantID: tenant.PublicID}

	assert.Equal(t, Allowed, AuthorizeCancellation(tenant, b, landlord.PublicID, false))
	assert.Equal(t, Denied, AuthorizeCancellation(stranger, b, landlord.PublicID, false))
	assert.Equal(t, Allowed, AuthorizeCancellation(landlord, b, landlord.PublicID, true))
	assert.Equal(t, Denied, AuthorizeCancellation(landlord, b, uuid.New(), true), "not the owner")
	assert.Equal(t, Denied, AuthorizeCancellation(landlord, b, landlord.PublicID, false), "tenant path, not the tenant")
	// Without the landlord role the flag is ignored and the tenant rule applies.
	assert.Equal(t, Allowed, AuthorizeCancellation(tenant, b, tenant.PublicID, true))
	assert.Equal(t, Denied, AuthorizeCancellation(user.Principal{}, b, landlord.PublicID, true))
}

func TestListingIDs_Distinct(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	items := []*Booking{{ListingID: a}, {ListingID: b}, {ListingID: a}}
	assert.Equal(t, []uuid.UUID{a, b}, ListingIDs(items))
}
