package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homestay/internal/app/commands"
	"homestay/internal/app/dto"
	bookingapp "homestay/internal/app/handlers/booking"
	"homestay/internal/app/queries"
	"homestay/internal/domain/shared/state"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	CheckAvailability(c *gin.Context)
	ListForTenant(c *gin.Context)
	Cancel(c *gin.Context)
	BookedListingIDs(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	StartDate       time.Time `json:"startDate" binding:"required"`
	EndDate         time.Time `json:"endDate" binding:"required"`
	ListingPublicID uuid.UUID `json:"listingPublicId" binding:"required"`
}

type bookedListingIDsRequest struct {
	ListingPublicIDs []uuid.UUID `json:"listingPublicIds"`
	StartDate        time.Time   `json:"startDate" binding:"required"`
	EndDate          time.Time   `json:"endDate" binding:"required"`
}

func (h BookingHandler) Create(c *gin.Context) {
	caller, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, err.Error())
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		Principal:       caller,
		ListingPublicID: req.ListingPublicID,
		Start:           req.StartDate,
		End:             req.EndDate,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	res, err := commands.Dispatch[bookingapp.CreateBookingCommand, state.State[uuid.UUID]](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !res.OK() {
		writeFailedState(c, res)
		return
	}
	c.JSON(http.StatusOK, true)
}

func (h BookingHandler) CheckAvailability(c *gin.Context) {
	listingID, ok := uuidParam(c, "listingPublicId")
	if !ok {
		return
	}
	dates, err := queries.Ask[bookingapp.CheckAvailabilityQuery, []dto.BookedDateDTO](c.Request.Context(), h.Queries, bookingapp.CheckAvailabilityQuery{ListingPublicID: listingID})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dates)
}

func (h BookingHandler) ListForTenant(c *gin.Context) {
	caller, ok := requireRole(c, "")
	if !ok {
		return
	}
	rows, err := queries.Ask[bookingapp.ListTenantBookingsQuery, []dto.BookedListingDTO](c.Request.Context(), h.Queries, bookingapp.ListTenantBookingsQuery{Principal: caller})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	caller, ok := requireRole(c, "")
	if !ok {
		return
	}
	bookingID, ok := uuidParam(c, "bookingPublicId")
	if !ok {
		return
	}
	var listingID uuid.UUID
	if raw := strings.TrimSpace(c.Query("listingPublicId")); raw != "" {
		if listingID, ok = uuidParam(c, "listingPublicId"); !ok {
			return
		}
	}
	byLandlord := false
	if raw := strings.TrimSpace(c.Query("byLandlord")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeProblem(c, http.StatusBadRequest, "byLandlord must be a boolean")
			return
		}
		byLandlord = parsed
	}
	cmd := bookingapp.CancelBookingCommand{
		Principal:       caller,
		BookingPublicID: bookingID,
		ListingPublicID: listingID,
		ByLandlord:      byLandlord,
	}
	res, err := commands.Dispatch[bookingapp.CancelBookingCommand, state.State[uuid.UUID]](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !res.OK() {
		writeFailedState(c, res)
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

// BookedListingIDs supports search: it filters candidates booked in a range.
func (h BookingHandler) BookedListingIDs(c *gin.Context) {
	var req bookedListingIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, err.Error())
		return
	}
	q := bookingapp.BookedListingIDsQuery{ListingPublicIDs: req.ListingPublicIDs, Start: req.StartDate, End: req.EndDate}
	ids, err := queries.Ask[bookingapp.BookedListingIDsQuery, []uuid.UUID](c.Request.Context(), h.Queries, q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (h BookingHandler) handleError(c *gin.Context, err error) {
	status, detail := statusForError(err)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		fields := []any{"error", err, "path", c.FullPath()}
		if caller, ok := currentPrincipal(c); ok {
			fields = append(fields, "user_id", caller.PublicID)
		}
		h.Logger.ErrorContext(c.Request.Context(), "booking request failed", fields...)
	}
	if status == http.StatusConflict {
		c.Header("Retry-After", retryAfterSeconds)
	}
	_ = c.Error(err)
	writeProblem(c, status, detail)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Query(name)))
	if err != nil {
		writeProblem(c, http.StatusBadRequest, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

var _ BookingHTTP = BookingHandler{}
