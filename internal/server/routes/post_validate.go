package routes

import (
	"errors"
	"net/http"

	"github.com/fablecourt/continuity/internal/server/middleware"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"
	"github.com/fablecourt/continuity/pkg/store"

	"github.com/labstack/echo/v4"
)

// ValidateScenarioHandler runs the structural checks synchronously.
// No judge calls are made, so this is cheap enough for editor feedback.
func ValidateScenarioHandler(c echo.Context) error {
	type validateParams struct {
		ScenarioID string `param:"id" validate:"required"`
	}

	type validateResponse struct {
		Message     string                `json:"message"`
		Valid       bool                  `json:"valid"`
		Diagnostics []scenario.Diagnostic `json:"diagnostics"`
	}

	params := new(validateParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, validateResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, validateResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	sc, err := app.Storage.GetScenario(ctx, params.ScenarioID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, validateResponse{
			Message: "Scenario not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load scenario", "scenario_id", params.ScenarioID, "err", err)
		return c.JSON(http.StatusInternalServerError, validateResponse{
			Message: "Internal server error",
		})
	}

	valid, diags := app.Orchestrator.ValidateQuick(sc)
	if diags == nil {
		diags = []scenario.Diagnostic{}
	}

	return c.JSON(http.StatusOK, validateResponse{
		Message:     "OK",
		Valid:       valid,
		Diagnostics: diags,
	})
}
