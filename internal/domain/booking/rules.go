package booking

import (
	"math"
	"time"

	"github.com/google/uuid"

	"homestay/internal/domain/shared/daterange"
	"homestay/internal/domain/user"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !(!aEnd.After(bStart) || !aStart.Before(bEnd))
}

func ComputeNights(start, end time.Time) int {
	return daterange.DateRange{Start: start, End: end}.Nights()
}

// ComputePrice fails with ErrPriceOverflow when the total does not fit an int.
func ComputePrice(nights, nightlyRate int) (int, error) {
	if nights < 0 || nightlyRate < 0 {
		return 0, ErrNegativePrice
	}
	if nights > 0 && nightlyRate > math.MaxInt/nights {
		return 0, ErrPriceOverflow
	}
	return nights * nightlyRate, nil
}

// ValidateWindow rejects inverted ranges and stays shorter than one night.
func ValidateWindow(start, end time.Time) error {
	dr, err := daterange.New(start, end)
	if err != nil {
		return err
	}
	if dr.Nights() < 1 {
		return ErrNightsRequired
	}
	return nil
}

type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) Allowed() bool { return d == Allowed }

type Path int

const (
	TenantPath Path = iota
	LandlordPath
)

// CancellationPath picks the landlord path only when the requester holds the
// landlord role and explicitly acts as landlord.
func CancellationPath(requester user.Principal, actingAsLandlord bool) Path {
	if actingAsLandlord && requester.HasRole(user.RoleLandlord) {
		return LandlordPath
	}
	return TenantPath
}

func AuthorizeCancellation(requester user.Principal, b *Booking, listingOwnerID uuid.UUID, actingAsLandlord bool) Decision {
	if !requester.Authenticated() || b == nil {
		return Denied
	}
	if CancellationPath(requester, actingAsLandlord) == LandlordPath {
		if listingOwnerID != uuid.Nil && listingOwnerID == requester.PublicID {
			return Allowed
		}
		return Denied
	}
	if b.TenantID == requester.PublicID {
		return Allowed
	}
	return Denied
}
