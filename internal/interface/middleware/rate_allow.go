package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maplify-tech/whiteboard/pkg/response"
)

// AllowPrivateIP matches loopback and private-range clients.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// OnlyIf rejects requests that allow does not match with 403.
func OnlyIf(allow AllowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if allow != nil && !allow(c) {
			response.Error(c, http.StatusForbidden, "forbidden", nil)
			return
		}
		c.Next()
	}
}
