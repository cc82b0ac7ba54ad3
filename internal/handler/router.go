package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Logger           *slog.Logger
	AllowedOrigins   []string
	AllowCredentials bool
	Verifier         TokenVerifier
	Auth             *AuthHandler
	Users            *UserHandler
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger), CORSMiddleware(cfg.AllowedOrigins, cfg.AllowCredentials))

	r.GET("/", Root)
	r.GET("/ping", Ping)
	r.GET("/api/openapi.json", OpenAPIDoc)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	requireAuth := AuthMiddleware(cfg.Verifier)
	requireAdmin := AdminMiddleware(cfg.Verifier)

	api := r.Group("/api")
	{
		api.POST("/auth", cfg.Auth.Login)
		api.POST("/auth/refresh-token", RefreshAuthMiddleware(cfg.Verifier), cfg.Auth.Refresh)
		api.POST("/auth/forgot-password", cfg.Auth.ForgotPassword)
		api.GET("/auth/me", requireAuth, cfg.Auth.Me)
		api.GET("/auth/google", cfg.Auth.GoogleLogin)
		api.GET("/auth/google/callback", cfg.Auth.GoogleCallback)

		api.POST("/users", cfg.Users.Register)
		api.POST("/users/create-admin", cfg.Users.RegisterAdmin)
		api.GET("/users", requireAuth, requireAdmin, cfg.Users.List)
		api.GET("/users/:userId", requireAuth, cfg.Users.Get)
	}

	return r
}
