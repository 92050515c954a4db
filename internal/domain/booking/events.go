package booking

import (
	"time"

	"github.com/google/uuid"
)

type Created struct {
	BookingID uuid.UUID `json:"booking_id"`
	ListingID uuid.UUID `json:"listing_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	Nights    int       `json:"nights"`
	Total     int       `json:"total_price"`
	At        time.Time `json:"at"`
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return e.ListingID.String() }
func (e Created) OccurredAt() time.Time { return e.At }

type CancelledEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	By         uuid.UUID `json:"cancelled_by"`
	ByLandlord bool      `json:"by_landlord"`
	At         time.Time `json:"at"`
}

func (e CancelledEvent) EventName() string     { return "booking.cancelled" }
func (e CancelledEvent) AggregateID() string   { return e.ListingID.String() }
func (e CancelledEvent) OccurredAt() time.Time { return e.At }
