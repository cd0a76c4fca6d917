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

// GetScenariosHandler lists stored scenarios.
func GetScenariosHandler(c echo.Context) error {
	type getScenariosResponse struct {
		Message   string                  `json:"message"`
		Scenarios []store.ScenarioSummary `json:"scenarios"`
	}

	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Storage

	summaries, err := st.ListScenarios(ctx)
	if err != nil {
		logger.Error("Failed to list scenarios", "err", err)
		return c.JSON(http.StatusInternalServerError, getScenariosResponse{
			Message: "Internal server error",
		})
	}
	if summaries == nil {
		summaries = []store.ScenarioSummary{}
	}

	return c.JSON(http.StatusOK, getScenariosResponse{
		Message:   "OK",
		Scenarios: summaries,
	})
}

// GetScenarioHandler returns one scenario document.
func GetScenarioHandler(c echo.Context) error {
	type getScenarioParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getScenarioResponse struct {
		Message  string             `json:"message"`
		Scenario *scenario.Scenario `json:"scenario,omitempty"`
	}

	params := new(getScenarioParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getScenarioResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getScenarioResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Storage

	sc, err := st.GetScenario(ctx, params.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getScenarioResponse{
			Message: "Scenario not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load scenario", "scenario_id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getScenarioResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getScenarioResponse{
		Message:  "OK",
		Scenario: sc,
	})
}
