package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Variants(t *testing.T) {
	ok := Success(42)
	assert.True(t, ok.OK())
	assert.False(t, ok.Failed())
	assert.Equal(t, 42, ok.Value)

	failed := Error[int]("Booking not found")
	assert.True(t, failed.Failed())
	assert.Equal(t, StatusError, failed.Status)
	assert.Equal(t, "Booking not found", failed.Reason)
	assert.Zero(t, failed.Value)

	denied := Unauthorized[string]("not yours")
	assert.True(t, denied.Failed())
	assert.Equal(t, StatusUnauthorized, denied.Status)
}
