package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homestay/internal/app/dto"
	handlersupport "homestay/internal/app/handlers/support"
	"homestay/internal/app/queries"
	"homestay/internal/app/uow"
	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
	"homestay/internal/domain/shared/daterange"
	"homestay/internal/domain/user"
)

const (
	checkAvailabilityKey    = "booking.availability"
	listTenantBookingsKey   = "booking.tenant.list"
	listLandlordBookingsKey = "booking.landlord.list"
	bookedListingIDsKey     = "booking.listing_ids.booked"
)

// ErrListingIntegrity reports a booking whose listing can no longer be resolved.
var ErrListingIntegrity = errors.New("booking: booking references an unknown listing")

// CoverLinker turns a stored cover picture into a URL the client can fetch.
type CoverLinker interface {
	Link(ctx context.Context, picture domainlistings.Picture) (string, error)
}

type CheckAvailabilityQuery struct {
	ListingPublicID uuid.UUID
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle lists the booked intervals of a listing. Unknown listings have none.
func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) ([]dto.BookedDateDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().FindByListing(execCtx, q.ListingPublicID)
	if err != nil {
		return nil, err
	}
	return dto.MapBookedDates(bookings), nil
}

type ListTenantBookingsQuery struct {
	Principal user.Principal
}

func (q ListTenantBookingsQuery) Key() string { return listTenantBookingsKey }

func (q ListTenantBookingsQuery) Caller() user.Principal { return q.Principal }

func (q ListTenantBookingsQuery) RequiredRole() user.Role { return user.RoleTenant }

type ListTenantBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Covers     CoverLinker
	Logger     *slog.Logger
}

func (h *ListTenantBookingsHandler) Handle(ctx context.Context, q ListTenantBookingsQuery) ([]dto.BookedListingDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	bookings, err := unit.Bookings().FindByTenant(execCtx, q.Principal.PublicID)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return []dto.BookedListingDTO{}, nil
	}
	found, err := unit.Listings().ByPublicIDs(execCtx, domainbooking.ListingIDs(bookings))
	if err != nil {
		return nil, err
	}
	index := domainlistings.Index(found)

	items := make([]dto.BookedListingDTO, 0, len(bookings))
	for _, b := range bookings {
		listing, ok := index[b.ListingID]
		if !ok {
			return nil, fmt.Errorf("booking %s, listing %s: %w", b.PublicID, b.ListingID, ErrListingIntegrity)
		}
		items = append(items, dto.MapBookedListing(b, linkCover(execCtx, h.Covers, h.Logger, listing)))
	}
	return items, nil
}

type ListLandlordBookingsQuery struct {
	Principal user.Principal
}

func (q ListLandlordBookingsQuery) Key() string { return listLandlordBookingsKey }

func (q ListLandlordBookingsQuery) Caller() user.Principal { return q.Principal }

func (q ListLandlordBookingsQuery) RequiredRole() user.Role { return user.RoleLandlord }

type ListLandlordBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Covers     CoverLinker
	Logger     *slog.Logger
}

// Handle lists the bookings made on every property of the landlord.
func (h *ListLandlordBookingsHandler) Handle(ctx context.Context, q ListLandlordBookingsQuery) ([]dto.BookedListingDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	properties, err := unit.Listings().ByLandlord(execCtx, q.Principal.PublicID)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return []dto.BookedListingDTO{}, nil
	}
	ids := make([]uuid.UUID, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.PublicID)
	}
	bookings, err := unit.Bookings().FindByListingIn(execCtx, ids)
	if err != nil {
		return nil, err
	}
	index := domainlistings.Index(properties)
	items := make([]dto.BookedListingDTO, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, dto.MapBookedListing(b, linkCover(execCtx, h.Covers, h.Logger, index[b.ListingID])))
	}
	return items, nil
}

type BookedListingIDsQuery struct {
	ListingPublicIDs []uuid.UUID
	Start            time.Time
	End              time.Time
}

func (q BookedListingIDsQuery) Key() string { return bookedListingIDsKey }

func (q BookedListingIDsQuery) Validate() error {
	return daterange.DateRange{Start: q.Start, End: q.End}.Validate()
}

type BookedListingIDsHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns the candidates with at least one booking overlapping the range.
func (h *BookedListingIDsHandler) Handle(ctx context.Context, q BookedListingIDsQuery) ([]uuid.UUID, error) {
	if len(q.ListingPublicIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().FindOverlappingAny(execCtx, q.ListingPublicIDs, q.Start, q.End)
	if err != nil {
		return nil, err
	}
	return domainbooking.ListingIDs(bookings), nil
}

func linkCover(ctx context.Context, covers CoverLinker, logger *slog.Logger, listing *domainlistings.Listing) *domainlistings.Listing {
	if listing == nil || covers == nil || listing.Cover.URL != "" || listing.Cover.Key == "" {
		return listing
	}
	url, err := covers.Link(ctx, listing.Cover)
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "cover link failed", "listing_id", listing.PublicID, "error", err)
		}
		return listing
	}
	linked := *listing
	linked.Cover.URL = url
	return &linked
}

var (
	_ queries.Handler[CheckAvailabilityQuery, []dto.BookedDateDTO]       = (*CheckAvailabilityHandler)(nil)
	_ queries.Handler[ListTenantBookingsQuery, []dto.BookedListingDTO]   = (*ListTenantBookingsHandler)(nil)
	_ queries.Handler[ListLandlordBookingsQuery, []dto.BookedListingDTO] = (*ListLandlordBookingsHandler)(nil)
	_ queries.Handler[BookedListingIDsQuery, []uuid.UUID]                = (*BookedListingIDsHandler)(nil)
)
