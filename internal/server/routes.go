package server

import (
	"github.com/fablecourt/continuity/internal/server/middleware"
	"github.com/fablecourt/continuity/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Scenario routes
	apiRoutes.GET("/scenarios", routes.GetScenariosHandler)
	apiRoutes.POST("/scenarios", routes.CreateScenarioHandler)
	apiRoutes.GET("/scenarios/:id", routes.GetScenarioHandler)
	apiRoutes.DELETE("/scenarios/:id", routes.DeleteScenarioHandler)

	// Evaluation routes
	apiRoutes.POST("/scenarios/:id/evaluations", routes.CreateEvaluationHandler)
	apiRoutes.GET("/scenarios/:id/operations", routes.GetScenarioOperationsHandler)
	apiRoutes.POST("/scenarios/:id/validate", routes.ValidateScenarioHandler)
	apiRoutes.POST("/scenarios/:id/path-evaluations", routes.EvaluatePathHandler)

	// Operation routes
	apiRoutes.GET("/operations/:id", routes.GetOperationHandler)
}
