package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"homestay/internal/app/dto"
	bookingapp "homestay/internal/app/handlers/booking"
	"homestay/internal/app/queries"
	"homestay/internal/domain/user"
)

type HostBookingHTTP interface {
	List(c *gin.Context)
}

// HostBookingHandler serves landlords looking at their properties' bookings.
type HostBookingHandler struct {
	BookingHandler
}

func (h HostBookingHandler) List(c *gin.Context) {
	landlord, ok := requireRole(c, user.RoleLandlord)
	if !ok {
		return
	}
	rows, err := queries.Ask[bookingapp.ListLandlordBookingsQuery, []dto.BookedListingDTO](c.Request.Context(), h.Queries, bookingapp.ListLandlordBookingsQuery{Principal: landlord})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

var _ HostBookingHTTP = HostBookingHandler{}
