package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fablecourt/continuity/internal/queue"
	"github.com/fablecourt/continuity/internal/server/middleware"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"
	"github.com/fablecourt/continuity/pkg/store"

	"github.com/labstack/echo/v4"
)

// CreateEvaluationHandler submits an asynchronous evaluation of a
// scenario. It registers a queued operation and publishes the job for the
// worker; the response carries the operation id to poll.
func CreateEvaluationHandler(c echo.Context) error {
	type createEvaluationParams struct {
		ScenarioID string `param:"id" validate:"required"`
	}

	type createEvaluationResponse struct {
		Message   string                  `json:"message"`
		Operation *scenario.OperationInfo `json:"operation,omitempty"`
	}

	params := new(createEvaluationParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, createEvaluationResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, createEvaluationResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if _, err := app.Storage.GetScenario(ctx, params.ScenarioID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, createEvaluationResponse{
				Message: "Scenario not found",
			})
		}
		logger.Error("Failed to load scenario", "scenario_id", params.ScenarioID, "err", err)
		return c.JSON(http.StatusInternalServerError, createEvaluationResponse{
			Message: "Internal server error",
		})
	}

	op, err := app.Orchestrator.Tracker().Create(ctx, params.ScenarioID)
	if err != nil {
		logger.Error("Failed to create operation", "scenario_id", params.ScenarioID, "err", err)
		return c.JSON(http.StatusInternalServerError, createEvaluationResponse{
			Message: "Internal server error",
		})
	}

	msg := queue.EvaluateScenarioMsg{
		OperationID: op.ID,
		ScenarioID:  params.ScenarioID,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal queue message", "operation_id", op.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, createEvaluationResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(app.Queue, queue.EvaluateQueue, msgBytes); err != nil {
		logger.Error("Failed to publish evaluation job", "operation_id", op.ID, "err", err)
		app.Orchestrator.Tracker().Fail(ctx, op.ID, "failed to enqueue evaluation")
		return c.JSON(http.StatusInternalServerError, createEvaluationResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createEvaluationResponse{
		Message:   "Evaluation queued",
		Operation: &op,
	})
}
