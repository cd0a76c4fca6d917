package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fablecourt/continuity/pkg/eval"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/store"
)

// EvaluateScenarioMsg is the job payload published by the API server when
// an evaluation is requested.
type EvaluateScenarioMsg struct {
	OperationID string `json:"operation_id"`
	ScenarioID  string `json:"scenario_id"`
}

// ProcessEvaluateMessage runs one evaluation job. Returns an error only
// when the job could not be attempted at all; once the operation reached
// a terminal state the message is consumed, failures included.
func ProcessEvaluateMessage(
	ctx context.Context,
	orchestrator *eval.Orchestrator,
	st store.Storage,
	msg string,
) error {
	data := new(EvaluateScenarioMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		logger.Error("[Queue] Dropping malformed evaluate message", "err", err)
		return nil
	}

	op, err := st.GetOperation(ctx, data.OperationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Error("[Queue] Dropping job for unknown operation", "operation_id", data.OperationID)
			return nil
		}
		return err
	}
	if op.Status.IsTerminal() {
		logger.Warn("[Queue] Skipping already finished operation", "operation_id", op.ID, "status", op.Status)
		return nil
	}
	orchestrator.Tracker().Adopt(*op)

	sc, err := st.GetScenario(ctx, data.ScenarioID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			orchestrator.Tracker().Fail(ctx, op.ID, "scenario not found")
			return nil
		}
		return err
	}

	logger.Info("[Queue] Starting evaluation", "operation_id", op.ID, "scenario_id", sc.ID, "scenes", len(sc.Scenes))

	if _, err := orchestrator.EvaluateStoryContinuity(ctx, sc, op.ID); err != nil {
		// The orchestrator already recorded the terminal failure.
		logger.Error("[Queue] Evaluation failed", "operation_id", op.ID, "err", err)
	}
	return nil
}
