package routes

import (
	"errors"
	"net/http"

	"github.com/fablecourt/continuity/internal/server/middleware"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/store"

	"github.com/labstack/echo/v4"
)

// DeleteScenarioHandler removes a scenario and its recorded operations.
func DeleteScenarioHandler(c echo.Context) error {
	type deleteScenarioParams struct {
		ID string `param:"id" validate:"required"`
	}

	type deleteScenarioResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteScenarioParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteScenarioResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteScenarioResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Storage

	err := st.DeleteScenario(ctx, params.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, deleteScenarioResponse{
			Message: "Scenario not found",
		})
	}
	if err != nil {
		logger.Error("Failed to delete scenario", "scenario_id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteScenarioResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteScenarioResponse{
		Message: "Scenario deleted successfully",
	})
}
