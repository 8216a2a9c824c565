package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"userfeed/internal/domain"
	"userfeed/internal/repository"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	state TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	error_kind TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	user_name TEXT NOT NULL DEFAULT '',
	user_email TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);
`

const defaultListLimit = 50

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) repository.RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create pipeline_runs table: %w", err)
	}
	return nil
}

func (r *RunRepository) Record(ctx context.Context, run *domain.PipelineRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO pipeline_runs (id, state, failed_stage, error_kind, error_message, user_name, user_email, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.State),
		string(run.FailedStage),
		run.ErrorKind,
		run.ErrorMessage,
		run.UserName,
		run.UserEmail,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, state, failed_stage, error_kind, error_message, user_name, user_email, started_at, finished_at
FROM pipeline_runs
ORDER BY seq DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.PipelineRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func scanRun(scanner interface {
	Scan(dest ...any) error
}) (*domain.PipelineRun, error) {
	var (
		run         domain.PipelineRun
		state       string
		failedStage string
		startedAt   time.Time
		finishedAt  time.Time
	)

	if err := scanner.Scan(
		&run.ID,
		&state,
		&failedStage,
		&run.ErrorKind,
		&run.ErrorMessage,
		&run.UserName,
		&run.UserEmail,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, fmt.Errorf("scan pipeline run: %w", err)
	}

	run.State = domain.RunState(state)
	run.FailedStage = domain.Stage(failedStage)
	run.StartedAt = startedAt.UTC()
	run.FinishedAt = finishedAt.UTC()
	return &run, nil
}
