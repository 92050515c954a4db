package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"homestay/internal/app/commands"
	"homestay/internal/app/middleware"
	"homestay/internal/app/queries"
	domainlistings "homestay/internal/domain/listings"
	"homestay/internal/domain/shared/state"
	"homestay/internal/domain/user"
	"homestay/internal/infra/storage/memory"
)

var day0 = time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

func days(n int) time.Time { return day0.AddDate(0, 0, n) }

type harness struct {
	t        *testing.T
	factory  memory.Factory
	catalog  *memory.ListingCatalog
	outbox   *memory.Outbox
	commands commands.Bus
	queries  queries.Bus
	landlord user.Principal
	listing  *domainlistings.Listing
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	landlord := principal(t, user.RoleLandlord)
	listing := &domainlistings.Listing{
		PublicID:     uuid.New(),
		LandlordID:   landlord.PublicID,
		Title:        "Cabin",
		Location:     "Porto, Portugal",
		NightlyPrice: 100,
		Cover:        domainlistings.Picture{Key: "covers/cabin.jpg", ContentType: "image/jpeg"},
	}
	catalog, err := memory.NewListingCatalog(listing)
	require.NoError(t, err)

	factory := memory.Factory{
		BookingStore: memory.NewBookingStore(),
		Catalog:      catalog,
		Locks:        memory.NewListingLocks(2 * time.Second),
	}
	box := memory.NewOutbox()

	cmdBus := commands.NewInMemoryBus()
	qBus := queries.NewInMemoryBus()
	Register(cmdBus, qBus, Dependencies{UoWFactory: factory, Outbox: box})

	return &harness{
		t:       t,
		factory: factory,
		catalog: catalog,
		outbox:  box,
		commands: middleware.ChainCommands(cmdBus,
			middleware.Validation(middleware.SelfValidator{}),
			middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
			middleware.Transaction(factory, nil),
		),
		queries: middleware.ChainQueries(qBus,
			middleware.QueryValidation(middleware.SelfValidator{}),
			middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
		),
		landlord: landlord,
		listing:  listing,
	}
}

func principal(t *testing.T, roles ...user.Role) user.Principal {
	t.Helper()
	p, err := user.NewPrincipal(uuid.New(), roles...)
	require.NoError(t, err)
	return p
}

func (h *harness) create(p user.Principal, listingID uuid.UUID, from, to int) state.State[uuid.UUID] {
	h.t.Helper()
	res, err := commands.Dispatch[CreateBookingCommand, state.State[uuid.UUID]](context.Background(), h.commands, CreateBookingCommand{
		Principal:       p,
		ListingPublicID: listingID,
		Start:           days(from),
		End:             days(to),
	})
	require.NoError(h.t, err)
	return res
}

func (h *harness) cancel(cmd CancelBookingCommand) state.State[uuid.UUID] {
	h.t.Helper()
	res, err := commands.Dispatch[CancelBookingCommand, state.State[uuid.UUID]](context.Background(), h.commands, cmd)
	require.NoError(h.t, err)
	return res
}
