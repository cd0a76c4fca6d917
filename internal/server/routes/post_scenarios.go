package routes

import (
	"net/http"

	"github.com/fablecourt/continuity/internal/server/middleware"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateScenarioHandler stores a scenario document. An id in the body
// updates the existing document; without one a new id is generated.
func CreateScenarioHandler(c echo.Context) error {
	type createScenarioBody struct {
		ID          string           `json:"id"`
		Title       string           `json:"title" validate:"required"`
		Description string           `json:"description"`
		Scenes      []scenario.Scene `json:"scenes" validate:"required,min=1,dive"`
	}

	type createScenarioResponse struct {
		Message  string             `json:"message"`
		Scenario *scenario.Scenario `json:"scenario,omitempty"`
	}

	data := new(createScenarioBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createScenarioResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createScenarioResponse{
			Message: "Invalid request body",
		})
	}

	sc := &scenario.Scenario{
		ID:          data.ID,
		Title:       data.Title,
		Description: data.Description,
		Scenes:      data.Scenes,
	}
	if sc.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, createScenarioResponse{
				Message: "Internal server error",
			})
		}
		sc.ID = id
	}

	ctx := c.Request().Context()
	st := c.(*middleware.AppContext).App.Storage
	if err := st.SaveScenario(ctx, sc); err != nil {
		logger.Error("Failed to save scenario", "scenario_id", sc.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, createScenarioResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, createScenarioResponse{
		Message:  "Scenario saved successfully",
		Scenario: sc,
	})
}
