// Package ledger records acquisition runs in Postgres.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/ligustah/acquire/pkg/acquire"
)

const schema = `
CREATE TABLE IF NOT EXISTS acquisition_runs (
	run_id      TEXT PRIMARY KEY,
	watch_dir   TEXT NOT NULL,
	dest_dir    TEXT NOT NULL,
	attempted   INTEGER NOT NULL,
	acquired    INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	cancelled   BOOLEAN NOT NULL DEFAULT FALSE,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS acquisition_units (
	run_id      TEXT NOT NULL REFERENCES acquisition_runs(run_id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	unit_id     TEXT NOT NULL,
	unit_name   TEXT NOT NULL,
	state       TEXT NOT NULL,
	error_class TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	path        TEXT NOT NULL DEFAULT '',
	size        BIGINT NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// ErrNoRunID is returned when a summary without a run ID is recorded.
var ErrNoRunID = errors.New("ledger: summary has no run id")

// Run is one row of the run history.
type Run struct {
	RunID      string
	WatchDir   string
	DestDir    string
	Attempted  int
	Acquired   int
	Failed     int
	Cancelled  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Ledger stores run summaries.
type Ledger struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to Postgres using a lib/pq DSN and verifies the connection.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

// Close closes the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Migrate creates the ledger tables if they do not exist.
func (l *Ledger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// RecordRun stores a summary and its unit results in one transaction.
// Recording the same run twice replaces the earlier rows.
func (l *Ledger) RecordRun(ctx context.Context, s acquire.RunSummary) error {
	if s.RunID == "" {
		return ErrNoRunID
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO acquisition_runs
			(run_id, watch_dir, dest_dir, attempted, acquired, failed, cancelled, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			attempted = EXCLUDED.attempted,
			acquired = EXCLUDED.acquired,
			failed = EXCLUDED.failed,
			cancelled = EXCLUDED.cancelled,
			finished_at = EXCLUDED.finished_at,
			recorded_at = NOW()
	`, s.RunID, s.WatchDir, s.DestDir, s.Attempted, s.Acquired, s.Failed, s.Cancelled, s.StartedAt, s.FinishedAt)
	if err != nil {
		return fmt.Errorf("ledger: insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM acquisition_units WHERE run_id = $1`, s.RunID); err != nil {
		return fmt.Errorf("ledger: clear units: %w", err)
	}

	for _, r := range s.Results {
		var errText string
		if r.Err != nil {
			errText = r.Err.Error()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO acquisition_units
				(run_id, position, unit_id, unit_name, state, error_class, error, path, size, started_at, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, s.RunID, r.Index, r.Unit.ID, r.Unit.LogicalName(), string(r.State), acquire.Classify(r.Err), errText,
			r.Path, r.Size, r.StartedAt, r.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("ledger: insert unit %s: %w", r.Unit.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}

	l.logger.Debug().Str("run", s.RunID).Int("units", len(s.Results)).Msg("run recorded")
	return nil
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, watch_dir, dest_dir, attempted, acquired, failed, cancelled, started_at, finished_at
		FROM acquisition_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.WatchDir, &r.DestDir, &r.Attempted, &r.Acquired, &r.Failed,
			&r.Cancelled, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: read runs: %w", err)
	}
	return runs, nil
}

// Units returns the recorded unit results of a run in batch order.
func (l *Ledger) Units(ctx context.Context, runID string) ([]acquire.UnitResult, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT position, unit_id, unit_name, state, error, path, size, started_at, duration_ms
		FROM acquisition_units
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query units: %w", err)
	}
	defer rows.Close()

	var out []acquire.UnitResult
	for rows.Next() {
		var (
			r          acquire.UnitResult
			state      string
			errText    string
			durationMs int64
		)
		if err := rows.Scan(&r.Index, &r.Unit.ID, &r.Unit.Name, &state, &errText, &r.Path, &r.Size,
			&r.StartedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("ledger: scan unit: %w", err)
		}
		r.State = acquire.UnitState(state)
		if errText != "" {
			r.Err = errors.New(errText)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: read units: %w", err)
	}
	return out, nil
}
