package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/flagflow/ml-service/internal/config"
)

// NewRouter builds the echo instance with middleware and all routes registered
func NewRouter(cfg *config.Config, h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	if cfg.Security.JWTSecret != "" {
		e.Use(JWTAuth(cfg.Security.JWTSecret))
	}

	e.GET("/health", h.Health)
	e.POST("/investigate", h.Investigate)
	e.GET("/metrics", h.Metrics)

	mem := e.Group("/memory")
	mem.GET("/patterns", h.ListPatterns)
	mem.GET("/entities/:name", h.GetEntityReputation)
	mem.POST("/learn", h.Learn)
	mem.POST("/queries", h.StoreQuery)
	mem.GET("/queries/:type", h.BestQueries)

	return e
}
