package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Checker reports whether a backing store is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

type HealthHandler struct {
	DB     Checker
	Logger *logrus.Logger
	Now    func() time.Time
}

func NewHealthHandler(db Checker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{DB: db, Logger: logger, Now: time.Now}
}

// Health is liveness only and never touches dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.Now().UTC().Format(time.RFC3339Nano)})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "database": "disconnected"})
		return
	}
	if err := h.DB.Check(c.Request.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("readiness check failed")
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "database": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "connected"})
}
