package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	authsvc "stayhub/internal/app/services/auth"
	domainauth "stayhub/internal/domain/auth"
	domainuser "stayhub/internal/domain/user"
)

const (
	principalContextKey = "stayhub.principal"
	tokenContextKey     = "stayhub.token"
)

// SessionResolver maps a bearer token to the caller.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (domainuser.Principal, error)
}

// AuthMiddleware attaches the caller's principal when a valid bearer token is present.
// Routes decide on their own whether a principal is required.
type AuthMiddleware struct {
	Sessions SessionResolver
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Sessions == nil {
		c.Next()
		return
	}
	c.Set(tokenContextKey, token)
	p, err := m.Sessions.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Warn("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, p)
	c.Next()
}

func currentPrincipal(c *gin.Context) (domainuser.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return domainuser.Principal{}, false
	}
	p, ok := val.(domainuser.Principal)
	return p, ok && p.ID != ""
}

// requirePrincipal aborts with 401 when the request is anonymous.
func requirePrincipal(c *gin.Context) (domainuser.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		respondError(c, nil, authsvc.ErrTokenRequired)
		return domainuser.Principal{}, false
	}
	return p, true
}

func bearerToken(c *gin.Context) string {
	if token := c.GetString(tokenContextKey); token != "" {
		return token
	}
	return extractBearerToken(c.GetHeader("Authorization"))
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
