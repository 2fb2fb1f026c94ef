package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/services/auth"
	domainauth "wanderlust/internal/domain/auth"
	"wanderlust/internal/domain/shared/failure"
)

const principalContextKey = "wanderlust.principal"

type principal struct {
	ID       string
	Username string
	IsAdmin  bool
	Token    string
}

func (p principal) Actor() policies.Actor {
	return policies.Actor{ID: p.ID, IsAdmin: p.IsAdmin}
}

// AuthMiddleware resolves the bearer token into a principal. Requests without
// a valid token continue anonymously; handlers decide whether that is enough.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	user := resolved.User
	setPrincipal(c, principal{
		ID:       string(user.ID),
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		Token:    token,
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// actor is the caller as passed into operations; anonymous when signed out.
func actor(c *gin.Context) policies.Actor {
	p, _ := currentPrincipal(c)
	return p.Actor()
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "auth required", Kind: string(failure.KindForbidden)})
		return principal{}, false
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
	return strings.TrimSpace(header[7:])
}
