package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/maplify-tech/whiteboard/internal/interface/middleware"
)

type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

// Register exposes expvar counters to loopback and private-network callers.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/vars", middleware.OnlyIf(middleware.AllowPrivateIP()), gin.WrapH(expvar.Handler()))
}
