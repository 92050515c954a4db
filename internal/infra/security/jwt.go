package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"homestay/internal/domain/user"
)

var (
	ErrTokenInvalid  = errors.New("security: token invalid")
	ErrSecretMissing = errors.New("security: signing secret missing")
)

// TokenVerifier validates HS256 tokens minted by the identity provider and
// turns their claims into a principal.
type TokenVerifier struct {
	Secret     []byte
	Issuer     string
	RolesClaim string
	Leeway     time.Duration
}

func (v TokenVerifier) Verify(raw string) (user.Principal, error) {
	if len(v.Secret) == 0 {
		return user.Principal{}, ErrSecretMissing
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.Leeway),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	publicID, err := uuid.Parse(sub)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: subject is not a public id", ErrTokenInvalid)
	}
	roles := make([]user.Role, 0)
	for _, raw := range stringSlice(claims[v.rolesClaim()]) {
		role, err := user.ParseRole(raw)
		if err != nil {
			// Roles of other applications share the claim.
			continue
		}
		roles = append(roles, role)
	}
	p, err := user.NewPrincipal(publicID, roles...)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	p.Email, _ = claims["email"].(string)
	p.FirstName, _ = claims["given_name"].(string)
	return p, nil
}

func (v TokenVerifier) rolesClaim() string {
	if v.RolesClaim != "" {
		return v.RolesClaim
	}
	return "roles"
}

// TokenSigner mints tokens in the shape TokenVerifier accepts.
type TokenSigner struct {
	Secret     []byte
	Issuer     string
	RolesClaim string
	TTL        time.Duration
	Now        func() time.Time
}

func (s TokenSigner) Sign(p user.Principal) (string, error) {
	if len(s.Secret) == 0 {
		return "", ErrSecretMissing
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}
	rolesClaim := s.RolesClaim
	if rolesClaim == "" {
		rolesClaim = "roles"
	}
	claims := jwt.MapClaims{
		"sub":      p.PublicID.String(),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		rolesClaim: roles,
	}
	if s.Issuer != "" {
		claims["iss"] = s.Issuer
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if p.FirstName != "" {
		claims["given_name"] = p.FirstName
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vals
	case string:
		return strings.Fields(strings.ReplaceAll(vals, ",", " "))
	default:
		return nil
	}
}
