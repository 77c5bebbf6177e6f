package server

import (
	"github.com/labstack/echo/v4"

	"example.com/budpal/backend/internal/handlers"
)

type routeHandlers struct {
	health        *handlers.HealthHandler
	auth          *handlers.AuthHandler
	categories    *handlers.CategoryHandler
	overview      *handlers.OverviewHandler
	state         *handlers.StateHandler
	exports       *handlers.ExportHandler
	notifications *handlers.NotificationHandler
}

func registerRoutes(
	e *echo.Echo,
	h routeHandlers,
	authMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", h.health.Health)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", authRateLimiter)

	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout)
	authGroup.GET("/me", h.auth.Me, authMiddleware)

	categories := api.Group("/categories", authMiddleware)
	categories.GET("", h.categories.Categories)
	categories.GET("/:category/items", h.categories.List)
	categories.POST("/:category/items", h.categories.Create)
	categories.PATCH("/:category/items/:id", h.categories.Update)
	categories.DELETE("/:category/items/:id", h.categories.Delete)

	overview := api.Group("/overview", authMiddleware)
	overview.GET("", h.overview.Overview)
	overview.GET("/totals", h.overview.Totals)
	overview.GET("/grand", h.overview.Grand)

	state := api.Group("/state", authMiddleware)
	state.GET("", h.state.Get)
	state.POST("/reload", h.state.Reload)

	exports := api.Group("/exports", authMiddleware)
	exports.GET("/overview.csv", h.exports.OverviewCSV)
	exports.GET("/overview.xlsx", h.exports.OverviewXLSX)

	notifications := api.Group("/notifications", authMiddleware)
	notifications.GET("/stream", h.notifications.Stream)
}
