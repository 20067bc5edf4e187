package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maplify-tech/whiteboard/internal/application"
	"github.com/maplify-tech/whiteboard/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// Authenticator resolves a bearer token to the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*application.Principal, error)
}

// Auth requires "Authorization: Bearer <token>" naming a live session and
// sets userID and sessionID in the Gin context. Every failure produces the
// same 401 body.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := authn.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, application.ErrUnauthorized.Error(), nil)
			return
		}
		c.Set(CtxUserIDKey, p.UserID)
		c.Set(CtxSessionIDKey, p.SessionID)
		c.Next()
	}
}

// Principal returns the caller set by Auth.
func Principal(c *gin.Context) application.Principal {
	return application.Principal{UserID: c.GetString(CtxUserIDKey), SessionID: c.GetString(CtxSessionIDKey)}
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
