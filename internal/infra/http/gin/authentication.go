package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"homestay/internal/domain/user"
)

const principalContextKey = "homestay.principal"

// TokenVerifier resolves a bearer token issued by the identity provider.
type TokenVerifier interface {
	Verify(token string) (user.Principal, error)
}

// AuthMiddleware attaches the caller to the request when a valid bearer token
// is present. Routes decide themselves whether a caller is required.
type AuthMiddleware struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Verifier == nil {
		c.Next()
		return
	}
	p, err := m.Verifier.Verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, p)
	c.Next()
}

func setPrincipal(c *gin.Context, p user.Principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (user.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return user.Principal{}, false
	}
	p, ok := val.(user.Principal)
	return p, ok && p.Authenticated()
}

func requireRole(c *gin.Context, role user.Role) (user.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		writeProblem(c, http.StatusUnauthorized, "authentication required")
		return user.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		writeProblem(c, http.StatusForbidden, "insufficient permissions")
		return user.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	token := strings.TrimSpace(header[7:])
	return token
}
