package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPublicIDRequired = errors.New("user: public id is required")
	ErrInvalidRole      = errors.New("user: invalid role")
)

type Role string

const (
	RoleTenant   Role = "ROLE_TENANT"
	RoleLandlord Role = "ROLE_LANDLORD"
)

// Principal is the authenticated caller as asserted by the identity provider.
// It is passed explicitly into every application call.
type Principal struct {
	PublicID  uuid.UUID
	Email     string
	FirstName string
	Roles     []Role
}

func NewPrincipal(publicID uuid.UUID, roles ...Role) (Principal, error) {
	if publicID == uuid.Nil {
		return Principal{}, ErrPublicIDRequired
	}
	normalized, err := NormalizeRoles(roles)
	if err != nil {
		return Principal{}, err
	}
	return Principal{PublicID: publicID, Roles: normalized}, nil
}

func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) Authenticated() bool {
	return p.PublicID != uuid.Nil
}

// ParseRole accepts "landlord", "LANDLORD" and "ROLE_LANDLORD" spellings.
func ParseRole(raw string) (Role, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return "", ErrInvalidRole
	}
	if !strings.HasPrefix(value, "ROLE_") {
		value = "ROLE_" + value
	}
	switch Role(value) {
	case RoleTenant, RoleLandlord:
		return Role(value), nil
	default:
		return "", ErrInvalidRole
	}
}

// NormalizeRoles drops duplicates and always grants the tenant role.
func NormalizeRoles(roles []Role) ([]Role, error) {
	seen := map[Role]struct{}{RoleTenant: {}}
	out := []Role{RoleTenant}
	for _, r := range roles {
		parsed, err := ParseRole(string(r))
		if err != nil {
			return nil, err
		}
		if _, ok := seen[parsed]; ok {
			continue
		}
		seen[parsed] = struct{}{}
		out = append(out, parsed)
	}
	return out, nil
}
