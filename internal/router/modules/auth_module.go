package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/config"
	handlers "github.com/maplify-tech/whiteboard/internal/interface/http"
	"github.com/maplify-tech/whiteboard/internal/interface/middleware"
)

// AuthModule serves /api/auth. Register and login are limited per IP and path.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Authn   middleware.Authenticator
	Redis   *redis.Client
	Cfg     *config.Config
	Logger  *logrus.Logger
}

func NewAuthModule(h *handlers.AuthHandler, authn middleware.Authenticator, rdb *redis.Client, cfg *config.Config, logger *logrus.Logger) *AuthModule {
	return &AuthModule{Handler: h, Authn: authn, Redis: rdb, Cfg: cfg, Logger: logger}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	limiter := middleware.RateLimit(m.Redis, m.Cfg.RateLimitAuthMax, m.Cfg.RateLimitWindow, middleware.KeyByIPAndPath(), nil, m.Logger)

	g := rg.Group("/auth")
	g.Use(middleware.BodyLimit(m.Cfg.MaxBodyBytes))
	g.POST("/register", limiter, m.Handler.Register)
	g.POST("/login", limiter, m.Handler.Login)

	auth := g.Group("")
	auth.Use(middleware.Auth(m.Authn))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/me", m.Handler.Me)
	}
}
