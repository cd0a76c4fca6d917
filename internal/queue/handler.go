package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/store"

	"github.com/rabbitmq/amqp091-go"
)

// RequeueInterruptedOperations republishes jobs for operations a crashed
// worker left behind in a non-terminal state. Called once on worker
// startup, before consuming begins.
func RequeueInterruptedOperations(
	ctx context.Context,
	ch *amqp091.Channel,
	st store.Storage,
) error {
	stale, err := st.ListUnfinishedOperations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unfinished operations: %w", err)
	}

	if len(stale) == 0 {
		logger.Debug("[Queue] No interrupted operations found")
		return nil
	}

	logger.Info("[Queue] Found interrupted operations", "count", len(stale))

	for _, op := range stale {
		msg := EvaluateScenarioMsg{
			OperationID: op.ID,
			ScenarioID:  op.ScenarioID,
		}
		msgBytes, err := json.Marshal(msg)
		if err != nil {
			logger.Error("[Queue] Failed to marshal requeue message", "operation_id", op.ID, "err", err)
			continue
		}

		if err := PublishFIFO(ch, EvaluateQueue, msgBytes); err != nil {
			logger.Error("[Queue] Failed to republish operation", "operation_id", op.ID, "err", err)
			continue
		}

		logger.Info("[Queue] Requeued interrupted operation", "operation_id", op.ID, "scenario_id", op.ScenarioID)
	}

	return nil
}
