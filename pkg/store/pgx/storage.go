package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// ScenarioDBStorage implements the store.Storage interface using
// PostgreSQL. Scenario documents and evaluation results are kept as
// JSONB, with the frequently queried operation fields broken out into
// columns.
type ScenarioDBStorage struct {
	conn pgxIConn
}

// NewScenarioDBStorageWithConnection creates a new ScenarioDBStorage
// using an existing database connection or pool.
func NewScenarioDBStorageWithConnection(conn pgxIConn) *ScenarioDBStorage {
	return &ScenarioDBStorage{conn: conn}
}
