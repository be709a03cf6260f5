package server

import (
	"github.com/dslunde/Glyph-sub000/internal/server/middleware"
	"github.com/dslunde/Glyph-sub000/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Run routes
	apiRoutes.POST("/runs", routes.CreateRunHandler, middleware.RequirePermission(middleware.PermRunCreate))
	apiRoutes.POST("/runs/stream", routes.StreamRunHandler, middleware.RequirePermission(middleware.PermRunCreate))
	apiRoutes.GET("/runs/:id", routes.GetRunHandler, middleware.RequirePermission(middleware.PermRunView))
	apiRoutes.GET("/runs/:id/plan", routes.GetRunPlanHandler, middleware.RequirePermission(middleware.PermRunView))
	apiRoutes.GET("/runs/:id/artifacts", routes.GetRunArtifactsHandler, middleware.RequirePermission(middleware.PermRunView))
	apiRoutes.GET("/runs/:id/similar", routes.GetSimilarNodesHandler, middleware.RequirePermission(middleware.PermRunSearch))
}
