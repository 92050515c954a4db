package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"landlord", "LANDLORD", "ROLE_LANDLORD", " role_landlord "} {
		role, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, RoleLandlord, role)
	}
	_, err := ParseRole("admin")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestNewPrincipal(t *testing.T) {
	_, err := NewPrincipal(uuid.Nil)
	assert.ErrorIs(t, err, ErrPublicIDRequired)

	p, err := NewPrincipal(uuid.New(), "landlord", RoleLandlord)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleTenant, RoleLandlord}, p.Roles)
	assert.True(t, p.HasRole(RoleLandlord))
	assert.True(t, p.HasRole(RoleTenant))
	assert.True(t, p.Authenticated())
}
