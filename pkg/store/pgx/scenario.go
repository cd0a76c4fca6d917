package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/scenario"
	"github.com/fablecourt/continuity/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

// SaveScenario upserts one scenario document keyed by its public id.
func (s *ScenarioDBStorage) SaveScenario(ctx context.Context, sc *scenario.Scenario) error {
	if sc.ID == "" {
		return fmt.Errorf("scenario has no id")
	}

	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario %q: %w", sc.ID, err)
	}

	logger.Debug("[Store][SaveScenario] Upserting scenario", "scenario_id", sc.ID, "scenes", len(sc.Scenes))

	_, err = s.conn.Exec(ctx, `
		INSERT INTO scenarios (public_id, title, scene_count, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (public_id) DO UPDATE
		SET title = EXCLUDED.title,
		    scene_count = EXCLUDED.scene_count,
		    data = EXCLUDED.data,
		    updated_at = now()
	`, sc.ID, sc.Title, len(sc.Scenes), data)
	return err
}

// GetScenario loads one scenario document by its public id.
func (s *ScenarioDBStorage) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	var data []byte
	err := s.conn.QueryRow(ctx, `
		SELECT data FROM scenarios WHERE public_id = $1
	`, id).Scan(&data)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sc scenario.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario %q: %w", id, err)
	}
	return &sc, nil
}

// DeleteScenario removes a scenario and, through the foreign key, the
// operations run against it.
func (s *ScenarioDBStorage) DeleteScenario(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `
		DELETE FROM scenarios WHERE public_id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListScenarios returns summaries of all stored scenarios, newest first.
func (s *ScenarioDBStorage) ListScenarios(ctx context.Context) ([]store.ScenarioSummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, title, scene_count
		FROM scenarios
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []store.ScenarioSummary
	for rows.Next() {
		var sum store.ScenarioSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Scenes); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
