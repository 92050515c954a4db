package ginserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	domainbooking "homestay/internal/domain/booking"
	"homestay/internal/domain/shared/state"
)

func TestStatusForErrorSeparatesBusyFromOverlap(t *testing.T) {
	status, detail := statusForError(errors.Join(domainbooking.ErrCalendarBusy, errors.New("write conflict")))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domainbooking.ReasonCalendarBusy, detail)

	status, _ = statusForError(fmt.Errorf("insert: %w", errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestWriteFailedStateStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name       string
		res        state.State[uuid.UUID]
		status     int
		retryAfter string
	}{
		{"overlap", state.Error[uuid.UUID](domainbooking.ReasonAlreadyBooked), http.StatusBadRequest, ""},
		{"busy", state.Error[uuid.UUID](domainbooking.ReasonCalendarBusy), http.StatusConflict, retryAfterSeconds},
		{"unauthorized", state.Unauthorized[uuid.UUID]("Authentication required"), http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeFailedState(c, tc.res)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.retryAfter, w.Header().Get("Retry-After"))
			assert.Equal(t, tc.res.Reason, decodeProblem(t, w).Detail)
		})
	}
}
