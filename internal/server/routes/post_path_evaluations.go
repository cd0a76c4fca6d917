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

// EvaluatePathHandler re-judges one explicit path synchronously. Used to
// verify a fix without rerunning the whole evaluation.
func EvaluatePathHandler(c echo.Context) error {
	type evaluatePathBody struct {
		ScenarioID string   `param:"id" validate:"required"`
		SceneIDs   []string `json:"scene_ids" validate:"required,min=1"`
	}

	type evaluatePathResponse struct {
		Message string                          `json:"message"`
		Result  *scenario.PathConsistencyResult `json:"result,omitempty"`
	}

	data := new(evaluatePathBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, evaluatePathResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, evaluatePathResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	sc, err := app.Storage.GetScenario(ctx, data.ScenarioID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, evaluatePathResponse{
			Message: "Scenario not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load scenario", "scenario_id", data.ScenarioID, "err", err)
		return c.JSON(http.StatusInternalServerError, evaluatePathResponse{
			Message: "Internal server error",
		})
	}

	res, err := app.Orchestrator.EvaluatePathConsistency(ctx, sc, data.SceneIDs)
	if err != nil {
		return c.JSON(http.StatusBadRequest, evaluatePathResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, evaluatePathResponse{
		Message: "OK",
		Result:  &res,
	})
}
