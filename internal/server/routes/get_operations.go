package routes

import (
	"errors"
	"net/http"

	"github.com/fablecourt/continuity/internal/server/middleware"
	"github.com/fablecourt/continuity/pkg/eval"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"
	"github.com/fablecourt/continuity/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetOperationHandler returns the current state of one evaluation job,
// including the full result once it is terminal.
func GetOperationHandler(c echo.Context) error {
	type getOperationParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getOperationResponse struct {
		Message   string                  `json:"message"`
		Operation *scenario.OperationInfo `json:"operation,omitempty"`
	}

	params := new(getOperationParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getOperationResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getOperationResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	op, err := app.Orchestrator.Tracker().Get(ctx, params.ID)
	if errors.Is(err, eval.ErrOperationNotFound) || errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getOperationResponse{
			Message: "Operation not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load operation", "operation_id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getOperationResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getOperationResponse{
		Message:   "OK",
		Operation: &op,
	})
}

// GetScenarioOperationsHandler lists the evaluation jobs recorded for one
// scenario.
func GetScenarioOperationsHandler(c echo.Context) error {
	type getOperationsParams struct {
		ScenarioID string `param:"id" validate:"required"`
	}

	type getOperationsResponse struct {
		Message    string                   `json:"message"`
		Operations []scenario.OperationInfo `json:"operations"`
	}

	params := new(getOperationsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getOperationsResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getOperationsResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Storage

	ops, err := st.ListOperations(ctx, params.ScenarioID)
	if err != nil {
		logger.Error("Failed to list operations", "scenario_id", params.ScenarioID, "err", err)
		return c.JSON(http.StatusInternalServerError, getOperationsResponse{
			Message: "Internal server error",
		})
	}
	if ops == nil {
		ops = []scenario.OperationInfo{}
	}

	return c.JSON(http.StatusOK, getOperationsResponse{
		Message:    "OK",
		Operations: ops,
	})
}
