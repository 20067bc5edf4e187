package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/config"
	handlers "github.com/maplify-tech/whiteboard/internal/interface/http"
	"github.com/maplify-tech/whiteboard/internal/interface/middleware"
)

// BoardModule serves the authenticated board, file and import/export routes.
type BoardModule struct {
	Handler *handlers.BoardHandler
	Authn   middleware.Authenticator
	Redis   *redis.Client
	Cfg     *config.Config
	Logger  *logrus.Logger
}

func NewBoardModule(h *handlers.BoardHandler, authn middleware.Authenticator, rdb *redis.Client, cfg *config.Config, logger *logrus.Logger) *BoardModule {
	return &BoardModule{Handler: h, Authn: authn, Redis: rdb, Cfg: cfg, Logger: logger}
}

func (m *BoardModule) Register(rg *gin.RouterGroup) {
	jsonLimit := middleware.BodyLimit(m.Cfg.MaxBodyBytes)
	// Multipart framing on top of the file itself.
	fileLimit := middleware.BodyLimit(m.Cfg.MaxFileBytes + 1<<20)

	auth := rg.Group("")
	auth.Use(middleware.Auth(m.Authn))
	auth.Use(middleware.RateLimit(m.Redis, m.Cfg.RateLimitAPIMax, m.Cfg.RateLimitWindow, middleware.KeyByUserID(), nil, m.Logger))
	{
		auth.GET("/boards", m.Handler.List)
		auth.POST("/boards", jsonLimit, m.Handler.Create)
		auth.GET("/boards/:id", m.Handler.Get)
		auth.PUT("/boards/:id", jsonLimit, m.Handler.Update)
		auth.DELETE("/boards/:id", m.Handler.Delete)
		auth.POST("/boards/:id/duplicate", m.Handler.Duplicate)
		auth.GET("/boards/:id/export", m.Handler.Export)
		auth.POST("/boards/:id/files", fileLimit, m.Handler.UploadFile)
		auth.GET("/boards/:id/files/:fileId", m.Handler.GetFile)

		auth.GET("/export/boards", m.Handler.ExportAll)
		auth.POST("/import/boards", jsonLimit, m.Handler.Import)
	}
}
