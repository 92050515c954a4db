package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "homestay/internal/app/handlers/booking"
	"homestay/internal/app/middleware"
	domainbooking "homestay/internal/domain/booking"
	"homestay/internal/domain/shared/daterange"
	"homestay/internal/domain/shared/state"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(c *gin.Context, status int, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

const retryAfterSeconds = "1"

// writeFailedState answers a non-OK application result.
func writeFailedState[T any](c *gin.Context, res state.State[T]) {
	status := http.StatusBadRequest
	switch {
	case res.Status == state.StatusUnauthorized:
		status = http.StatusUnauthorized
	case res.Reason == domainbooking.ReasonCalendarBusy:
		status = http.StatusConflict
		c.Header("Retry-After", retryAfterSeconds)
	}
	writeProblem(c, status, res.Reason)
}

// statusForError maps application faults to HTTP. Unknown errors are 500 and
// their text is not sent to the client.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, middleware.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden, "insufficient permissions"
	case errors.Is(err, domainbooking.ErrCalendarBusy):
		return http.StatusConflict, domainbooking.ReasonCalendarBusy
	case errors.Is(err, daterange.ErrInvalidRange):
		return http.StatusBadRequest, domainbooking.ReasonInvalidDates
	case errors.Is(err, bookingapp.ErrBookingIDRequired):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
