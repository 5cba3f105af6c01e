// internal/reporting/history.go
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/stridr-dev/stridr/api/schemas"
)

// History is the local sqlite store of past runs, used by the history
// command. The driver is pure Go, so the store works without cgo.
type History struct {
	logger *zap.Logger
	db     *sql.DB
}

// RunRecord is one row of run history.
type RunRecord struct {
	RunID       string
	TestCase    string
	Status      schemas.RunStatus
	Steps       int
	FailedSteps int
	StartedAt   time.Time
	CompletedAt time.Time
}

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT PRIMARY KEY,
    test_case    TEXT NOT NULL,
    status       TEXT NOT NULL,
    steps        INTEGER NOT NULL,
    failed_steps INTEGER NOT NULL,
    started_at   TIMESTAMP NOT NULL,
    completed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC);
`

// OpenHistory opens (creating if needed) the run-history database at path.
func OpenHistory(logger *zap.Logger, path string) (*History, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %q: %w", path, err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &History{logger: logger.Named("history"), db: db}, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores the outcome of one run.
func (h *History) Record(ctx context.Context, result *schemas.ExecutionResult) error {
	failed := 0
	for _, step := range result.Steps {
		if step.Status == schemas.StepFailed {
			failed++
		}
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, test_case, status, steps, failed_steps, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.TestCase, string(result.Status),
		len(result.Steps), failed, result.StartedAt, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", result.RunID, err)
	}
	h.logger.Debug("Run recorded in history.", zap.String("run_id", result.RunID))
	return nil
}

// List returns the most recent runs, newest first.
func (h *History) List(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, test_case, status, steps, failed_steps, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var status string
		if err := rows.Scan(&rec.RunID, &rec.TestCase, &status, &rec.Steps,
			&rec.FailedSteps, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		rec.Status = schemas.RunStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
