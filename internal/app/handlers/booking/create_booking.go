package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"homestay/internal/app/commands"
	handlersupport "homestay/internal/app/handlers/support"
	"homestay/internal/app/middleware"
	"homestay/internal/app/outbox"
	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
	"homestay/internal/domain/shared/daterange"
	"homestay/internal/domain/shared/state"
	"homestay/internal/domain/user"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	Principal       user.Principal
	ListingPublicID uuid.UUID
	Start           time.Time
	End             time.Time
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

// IdempotencyKey scopes the client supplied key to the caller and to the
// requested listing and dates, so a reused key with another payload runs anew.
func (c CreateBookingCommand) IdempotencyKey() string {
	key := strings.TrimSpace(c.IdempotencyKeyV)
	if key == "" || !c.Principal.Authenticated() {
		return ""
	}
	return createBookingKey + ":" + c.Principal.PublicID.String() + ":" + key + ":" + c.fingerprint().String()
}

func (c CreateBookingCommand) fingerprint() uuid.UUID {
	payload := c.ListingPublicID.String() + "|" +
		c.Start.UTC().Format(time.RFC3339Nano) + "|" +
		c.End.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(payload))
}

func (c CreateBookingCommand) ResultPrototype() any { return &state.State[uuid.UUID]{} }

func (c CreateBookingCommand) Caller() user.Principal { return c.Principal }

func (c CreateBookingCommand) RequiredRole() user.Role { return user.RoleTenant }

type CreateBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (state.State[uuid.UUID], error) {
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return state.State[uuid.UUID]{}, err
	}

	if err := domainbooking.ValidateWindow(cmd.Start, cmd.End); err != nil {
		return state.Error[uuid.UUID](domainbooking.ReasonInvalidDates), nil
	}

	// The lock comes before any read so a snapshot transaction starts after
	// the previous writer of this calendar has committed.
	if err := unit.LockListing(ctx, cmd.ListingPublicID); err != nil {
		if errors.Is(err, domainbooking.ErrCalendarBusy) {
			return h.busy(ctx, cmd.ListingPublicID, err), nil
		}
		return state.State[uuid.UUID]{}, err
	}

	listing, err := unit.Listings().ByPublicID(ctx, cmd.ListingPublicID)
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return state.Error[uuid.UUID](domainbooking.ReasonListingNotFound), nil
		}
		return state.State[uuid.UUID]{}, err
	}

	exists, err := unit.Bookings().ExistsOverlapping(ctx, listing.PublicID, cmd.Start, cmd.End)
	if err != nil {
		return state.State[uuid.UUID]{}, err
	}
	if exists {
		return state.Error[uuid.UUID](domainbooking.ReasonAlreadyBooked), nil
	}

	if !cmd.Principal.Authenticated() {
		return state.Unauthorized[uuid.UUID]("Authentication required"), nil
	}

	booking, err := domainbooking.New(domainbooking.CreateParams{
		PublicID:     uuid.New(),
		ListingID:    listing.PublicID,
		TenantID:     cmd.Principal.PublicID,
		Range:        daterange.DateRange{Start: cmd.Start, End: cmd.End},
		NightlyPrice: listing.NightlyPrice,
		Now:          h.now(),
	})
	if err != nil {
		if errors.Is(err, domainbooking.ErrPriceOverflow) {
			return state.Error[uuid.UUID](domainbooking.ReasonPriceOutOfRange), nil
		}
		return state.State[uuid.UUID]{}, err
	}

	saved, err := unit.Bookings().Insert(ctx, booking)
	if err != nil {
		if errors.Is(err, domainbooking.ErrAlreadyBooked) {
			return h.conflict(ctx, listing.PublicID, err), nil
		}
		if errors.Is(err, domainbooking.ErrCalendarBusy) {
			return h.busy(ctx, listing.PublicID, err), nil
		}
		return state.State[uuid.UUID]{}, err
	}

	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, booking.Drain()); err != nil {
		return state.State[uuid.UUID]{}, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking created",
			"booking_id", saved.PublicID,
			"listing_id", saved.ListingID,
			"nights", saved.Nights(),
			"total_price", saved.TotalPrice,
		)
	}
	return state.Success(saved.PublicID), nil
}

func (h *CreateBookingHandler) conflict(ctx context.Context, listingID uuid.UUID, cause error) state.State[uuid.UUID] {
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking rejected by concurrent writer", "listing_id", listingID, "error", cause)
	}
	return state.Error[uuid.UUID](domainbooking.ReasonAlreadyBooked)
}

func (h *CreateBookingHandler) busy(ctx context.Context, listingID uuid.UUID, cause error) state.State[uuid.UUID] {
	if h.Logger != nil {
		h.Logger.WarnContext(ctx, "listing calendar busy", "listing_id", listingID, "error", cause)
	}
	return state.Error[uuid.UUID](domainbooking.ReasonCalendarBusy)
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var (
	_ commands.Handler[CreateBookingCommand, state.State[uuid.UUID]] = (*CreateBookingHandler)(nil)
	_ middleware.IdempotentCommand                                   = CreateBookingCommand{}
	_ middleware.Guarded                                             = CreateBookingCommand{}
)
