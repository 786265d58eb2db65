package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// RunRepository persists ingestion runs in Postgres. Stats are stored as
// JSONB so finished runs keep the full breakdown without extra columns.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	status TEXT NOT NULL,
	stats JSONB,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingestion_runs_started_at ON ingestion_runs(started_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) CreateRun(ctx context.Context, run domain.IngestionRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ingestion_runs (id, root, status, stats, started_at, finished_at)
VALUES ($1,$2,$3,NULL,$4,NULL)
`, run.ID, run.Root, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert ingestion run: %w", err)
	}
	return nil
}

func (r *RunRepository) FinishRun(ctx context.Context, id, status string, stats *domain.IngestionStats) error {
	var statsJSON any
	if stats != nil {
		raw, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("marshal run stats: %w", err)
		}
		statsJSON = raw
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE ingestion_runs
SET status = $2, stats = $3, finished_at = $4
WHERE id = $1
`, id, status, statsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish ingestion run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "finish run", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (domain.IngestionRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, root, status, stats, started_at, finished_at
FROM ingestion_runs
WHERE id = $1
`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IngestionRun{}, domain.WrapError(domain.ErrRunNotFound, "get run", fmt.Errorf("id=%s", id))
		}
		return domain.IngestionRun{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, root, status, stats, started_at, finished_at
FROM ingestion_runs
ORDER BY started_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.IngestionRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

type runScanner interface {
	Scan(dest ...any) error
}

func scanRun(row runScanner) (domain.IngestionRun, error) {
	var run domain.IngestionRun
	var statsRaw []byte
	var finishedAt sql.NullTime

	err := row.Scan(&run.ID, &run.Root, &run.Status, &statsRaw, &run.StartedAt, &finishedAt)
	if err != nil {
		return domain.IngestionRun{}, err
	}

	if len(statsRaw) > 0 {
		var stats domain.IngestionStats
		if err := json.Unmarshal(statsRaw, &stats); err != nil {
			return domain.IngestionRun{}, fmt.Errorf("unmarshal run stats: %w", err)
		}
		run.Stats = &stats
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}
