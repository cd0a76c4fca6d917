package store

import (
	"context"
	"errors"

	"github.com/fablecourt/continuity/pkg/scenario"
)

// ErrNotFound is returned when a scenario or operation id does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the interface for persisting scenarios and the
// evaluation operations run against them. Scenario documents are stored
// whole; operations are queried by id and by owning scenario.
type Storage interface {
	SaveScenario(ctx context.Context, sc *scenario.Scenario) error
	GetScenario(ctx context.Context, id string) (*scenario.Scenario, error)
	DeleteScenario(ctx context.Context, id string) error
	ListScenarios(ctx context.Context) ([]ScenarioSummary, error)

	SaveOperation(ctx context.Context, op *scenario.OperationInfo) error
	GetOperation(ctx context.Context, id string) (*scenario.OperationInfo, error)
	ListOperations(ctx context.Context, scenarioID string) ([]scenario.OperationInfo, error)
	ListUnfinishedOperations(ctx context.Context) ([]scenario.OperationInfo, error)
}

// ScenarioSummary is the listing projection of a stored scenario.
type ScenarioSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Scenes int    `json:"scenes"`
}
