package booking

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/app/commands"
	domainbooking "homestay/internal/domain/booking"
	"homestay/internal/domain/shared/state"
	"homestay/internal/domain/user"
)

func TestCreateBookingComputesPrice(t *testing.T) {
	h := newHarness(t)
	tenant := principal(t)

	res := h.create(tenant, h.listing.PublicID, 1, 4)
	require.True(t, res.OK(), res.Reason)
	assert.NotEqual(t, uuid.Nil, res.Value)

	stored, err := h.factory.BookingStore.FindByTenant(context.Background(), tenant.PublicID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Value, stored[0].PublicID)
	assert.Equal(t, 300, stored[0].TotalPrice)
	assert.Equal(t, 1, stored[0].NumberOfTravelers)
	assert.Equal(t, h.listing.PublicID, stored[0].ListingID)

	pending := h.outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "booking.created", pending[0].Name)
	assert.Equal(t, h.listing.PublicID.String(), pending[0].Aggregate)
}

func TestCreateBookingRejections(t *testing.T) {
	h := newHarness(t)
	tenant := principal(t)
	require.True(t, h.create(tenant, h.listing.PublicID, 10, 15).OK())

	cases := []struct {
		name     string
		listing  uuid.UUID
		from, to int
		reason   string
	}{
		{"unknown listing", uuid.New(), 1, 3, domainbooking.ReasonListingNotFound},
		{"overlap", h.listing.PublicID, 12, 20, domainbooking.ReasonAlreadyBooked},
		{"covering", h.listing.PublicID, 9, 16, domainbooking.ReasonAlreadyBooked},
		{"inverted", h.listing.PublicID, 5, 3, domainbooking.ReasonInvalidDates},
		{"empty", h.listing.PublicID, 5, 5, domainbooking.ReasonInvalidDates},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := h.create(principal(t), tc.listing, tc.from, tc.to)
			assert.Equal(t, state.StatusError, res.Status)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
	assert.Equal(t, 1, h.factory.BookingStore.Len())
	assert.Len(t, h.outbox.Pending(), 1)
}

func TestCreateBookingTouchingIntervals(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.create(principal(t), h.listing.PublicID, 1, 5).OK())
	assert.True(t, h.create(principal(t), h.listing.PublicID, 5, 8).OK())
	assert.True(t, h.create(principal(t), h.listing.PublicID, 0, 1).OK())
	assert.Equal(t, 3, h.factory.BookingStore.Len())
}

func TestCreateBookingConcurrentOverlapsAdmitOne(t *testing.T) {
	h := newHarness(t)
	const writers = 16

	results := make([]state.State[uuid.UUID], writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := user.NewPrincipal(uuid.New())
			if !assert.NoError(t, err) {
				return
			}
			res, err := commands.Dispatch[CreateBookingCommand, state.State[uuid.UUID]](context.Background(), h.commands, CreateBookingCommand{
				Principal:       p,
				ListingPublicID: h.listing.PublicID,
				Start:           days(1 + i%3),
				End:             days(6),
			})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, res := range results {
		if res.OK() {
			ok++
			continue
		}
		assert.Equal(t, domainbooking.ReasonAlreadyBooked, res.Reason)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, h.factory.BookingStore.Len())
}

func TestCreateBookingIdempotencyKeyReplays(t *testing.T) {
	h := newHarness(t)
	tenant := principal(t)
	cmd := CreateBookingCommand{
		Principal:       tenant,
		ListingPublicID: h.listing.PublicID,
		Start:           days(1),
		End:             days(3),
		IdempotencyKeyV: "req-1",
	}
	ctx := context.Background()

	first, err := commands.Dispatch[CreateBookingCommand, state.State[uuid.UUID]](ctx, h.commands, cmd)
	require.NoError(t, err)
	require.True(t, first.OK())

	second, err := commands.Dispatch[CreateBookingCommand, state.State[uuid.UUID]](ctx, h.commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.factory.BookingStore.Len())

	other := cmd
	other.Principal = principal(t)
	third, err := commands.Dispatch[CreateBookingCommand, state.State[uuid.UUID]](ctx, h.commands, other)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.ReasonAlreadyBooked, third.Reason, "keys are scoped to the caller")
}

func TestCreateBookingRequiresUnitOfWork(t *testing.T) {
	handler := &CreateBookingHandler{}
	_, err := handler.Handle(context.Background(), CreateBookingCommand{})
	assert.Error(t, err)
}
