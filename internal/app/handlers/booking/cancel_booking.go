package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homestay/internal/app/commands"
	handlersupport "homestay/internal/app/handlers/support"
	"homestay/internal/app/middleware"
	"homestay/internal/app/outbox"
	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
	"homestay/internal/domain/shared/events"
	"homestay/internal/domain/shared/state"
	"homestay/internal/domain/user"
)

const cancelBookingKey = "booking.cancel"

var ErrBookingIDRequired = errors.New("booking: booking public id is required")

type CancelBookingCommand struct {
	Principal       user.Principal
	BookingPublicID uuid.UUID
	ListingPublicID uuid.UUID
	ByLandlord      bool
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) Validate() error {
	if c.BookingPublicID == uuid.Nil {
		return ErrBookingIDRequired
	}
	return nil
}

func (c CancelBookingCommand) Caller() user.Principal { return c.Principal }

func (c CancelBookingCommand) RequiredRole() user.Role { return user.RoleTenant }

type CancelBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

// Handle deletes the booking when the caller may cancel it. A landlord that
// does not own the listing and a tenant that does not own the booking both
// get "Booking not found".
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (state.State[uuid.UUID], error) {
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return state.State[uuid.UUID]{}, err
	}
	if !cmd.Principal.Authenticated() {
		return state.Unauthorized[uuid.UUID]("Authentication required"), nil
	}

	var (
		deleted   int64
		listingID = cmd.ListingPublicID
		path      = domainbooking.CancellationPath(cmd.Principal, cmd.ByLandlord)
	)
	switch path {
	case domainbooking.LandlordPath:
		listing, err := unit.Listings().ByPublicIDAndLandlord(ctx, cmd.ListingPublicID, cmd.Principal.PublicID)
		if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
			return state.State[uuid.UUID]{}, err
		}
		if listing == nil {
			break
		}
		listingID = listing.PublicID
		booked, err := unit.Bookings().FindByListing(ctx, listing.PublicID)
		if err != nil {
			return state.State[uuid.UUID]{}, err
		}
		target := findBooking(booked, cmd.BookingPublicID)
		if !domainbooking.AuthorizeCancellation(cmd.Principal, target, listing.LandlordID, cmd.ByLandlord).Allowed() {
			break
		}
		deleted, err = unit.Bookings().DeleteByPublicIDAndListing(ctx, cmd.BookingPublicID, listing.PublicID)
		if err != nil {
			return state.State[uuid.UUID]{}, err
		}
	default:
		owned, err := unit.Bookings().FindByTenant(ctx, cmd.Principal.PublicID)
		if err != nil {
			return state.State[uuid.UUID]{}, err
		}
		target := findBooking(owned, cmd.BookingPublicID)
		if !domainbooking.AuthorizeCancellation(cmd.Principal, target, uuid.Nil, false).Allowed() {
			break
		}
		listingID = target.ListingID
		deleted, err = unit.Bookings().DeleteByTenantAndPublicID(ctx, cmd.Principal.PublicID, cmd.BookingPublicID)
		if err != nil {
			return state.State[uuid.UUID]{}, err
		}
	}

	if deleted < 1 {
		return state.Error[uuid.UUID](domainbooking.ReasonBookingNotFound), nil
	}

	event := domainbooking.Cancelled(cmd.BookingPublicID, listingID, cmd.Principal.PublicID, path == domainbooking.LandlordPath, h.now())
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{event}); err != nil {
		return state.State[uuid.UUID]{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking cancelled", "booking_id", cmd.BookingPublicID, "listing_id", listingID, "by_landlord", event.ByLandlord)
	}
	return state.Success(cmd.BookingPublicID), nil
}

func findBooking(bookings []*domainbooking.Booking, id uuid.UUID) *domainbooking.Booking {
	for _, b := range bookings {
		if b.PublicID == id {
			return b
		}
	}
	return nil
}

func (h *CancelBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var (
	_ commands.Handler[CancelBookingCommand, state.State[uuid.UUID]] = (*CancelBookingHandler)(nil)
	_ middleware.SelfValidating                                      = CancelBookingCommand{}
)
