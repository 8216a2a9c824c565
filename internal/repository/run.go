package repository

import (
	"context"

	"userfeed/internal/domain"
)

// RunRepository journals the outcome of create pipeline runs.
type RunRepository interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, run *domain.PipelineRun) error
	ListRecent(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}

// NoopRunRepository discards runs. It is used when no journal is configured.
type NoopRunRepository struct{}

func (NoopRunRepository) Init(context.Context) error { return nil }

func (NoopRunRepository) Record(context.Context, *domain.PipelineRun) error { return nil }

func (NoopRunRepository) ListRecent(context.Context, int) ([]domain.PipelineRun, error) {
	return []domain.PipelineRun{}, nil
}
