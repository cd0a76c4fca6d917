package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fablecourt/continuity/pkg/scenario"
	"github.com/fablecourt/continuity/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

// SaveOperation upserts the state of one evaluation operation. The full
// record goes into JSONB; status and scenario id are broken out for
// querying.
func (s *ScenarioDBStorage) SaveOperation(ctx context.Context, op *scenario.OperationInfo) error {
	if op.ID == "" {
		return fmt.Errorf("operation has no id")
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation %q: %w", op.ID, err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO operations (public_id, scenario_id, status, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (public_id) DO UPDATE
		SET status = EXCLUDED.status,
		    data = EXCLUDED.data,
		    updated_at = now()
	`, op.ID, op.ScenarioID, string(op.Status), data)
	return err
}

// GetOperation loads one operation by its public id.
func (s *ScenarioDBStorage) GetOperation(ctx context.Context, id string) (*scenario.OperationInfo, error) {
	var data []byte
	err := s.conn.QueryRow(ctx, `
		SELECT data FROM operations WHERE public_id = $1
	`, id).Scan(&data)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var op scenario.OperationInfo
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operation %q: %w", id, err)
	}
	return &op, nil
}

// ListOperations returns all operations run against one scenario, newest
// first.
func (s *ScenarioDBStorage) ListOperations(ctx context.Context, scenarioID string) ([]scenario.OperationInfo, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT data FROM operations
		WHERE scenario_id = $1
		ORDER BY updated_at DESC
	`, scenarioID)
	if err != nil {
		return nil, err
	}
	return scanOperations(rows)
}

// ListUnfinishedOperations returns every operation still in a non-terminal
// state, oldest first, for requeueing after a worker restart.
func (s *ScenarioDBStorage) ListUnfinishedOperations(ctx context.Context) ([]scenario.OperationInfo, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT data FROM operations
		WHERE status IN ('queued', 'running')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return scanOperations(rows)
}

func scanOperations(rows pgxv5.Rows) ([]scenario.OperationInfo, error) {
	defer rows.Close()

	var ops []scenario.OperationInfo
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var op scenario.OperationInfo
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, fmt.Errorf("failed to unmarshal operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
