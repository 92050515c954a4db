package dto

import (
	"time"

	"github.com/google/uuid"

	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
)

type PriceDTO struct {
	Value int `json:"value"`
}

type PictureDTO struct {
	URL             string `json:"url,omitempty"`
	FileContentType string `json:"fileContentType,omitempty"`
	IsCover         bool   `json:"isCover"`
}

type BookedDateDTO struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// BookedListingDTO is one row of a tenant or landlord booking list.
type BookedListingDTO struct {
	Cover           PictureDTO    `json:"cover"`
	Location        string        `json:"location"`
	Dates           BookedDateDTO `json:"dates"`
	TotalPrice      PriceDTO      `json:"totalPrice"`
	BookingPublicID uuid.UUID     `json:"bookingPublicId"`
	ListingPublicID uuid.UUID     `json:"listingPublicId"`
}

func MapBookedDate(b *domainbooking.Booking) BookedDateDTO {
	return BookedDateDTO{StartDate: b.Range.Start, EndDate: b.Range.End}
}

func MapBookedDates(items []*domainbooking.Booking) []BookedDateDTO {
	out := make([]BookedDateDTO, 0, len(items))
	for _, b := range items {
		out = append(out, MapBookedDate(b))
	}
	return out
}

func MapPicture(p domainlistings.Picture) PictureDTO {
	return PictureDTO{URL: p.URL, FileContentType: p.ContentType, IsCover: true}
}

func MapBookedListing(b *domainbooking.Booking, listing *domainlistings.Listing) BookedListingDTO {
	row := BookedListingDTO{
		Dates:           MapBookedDate(b),
		TotalPrice:      PriceDTO{Value: b.TotalPrice},
		BookingPublicID: b.PublicID,
		ListingPublicID: b.ListingID,
	}
	if listing != nil {
		row.Cover = MapPicture(listing.Cover)
		row.Location = listing.Location
	}
	return row
}
