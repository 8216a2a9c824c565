package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"userfeed/internal/domain"
	"userfeed/internal/observability"
	"userfeed/internal/repository"
)

// UserStore is the append-only record store.
type UserStore interface {
	Append(ctx context.Context, user domain.User) error
	List(ctx context.Context) ([]domain.User, error)
}

// ActivityFetcher returns the current activity from the remote service.
type ActivityFetcher interface {
	Fetch(ctx context.Context) (domain.Activity, error)
}

// UserService describes the user create and read paths.
type UserService interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.CreatedUser, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}

type userService struct {
	store      UserStore
	activities ActivityFetcher
	runs       repository.RunRepository
	logger     *logrus.Logger
	now        func() time.Time
}

func NewUserService(store UserStore, activities ActivityFetcher, runs repository.RunRepository, logger *logrus.Logger) UserService {
	if runs == nil {
		runs = repository.NoopRunRepository{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		store:      store,
		activities: activities,
		runs:       runs,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateUser appends user to the store and then fetches an activity. The
// two steps run in order and are never retried. A failed fetch leaves the
// user stored. The run is not cancelled when ctx is.
func (s *userService) CreateUser(ctx context.Context, user domain.User) (*domain.CreatedUser, error) {
	ctx = context.WithoutCancel(ctx)

	run := &domain.PipelineRun{
		ID:        uuid.NewString(),
		State:     domain.RunStateReceived,
		UserName:  user.NameText(),
		UserEmail: user.EmailText(),
		StartedAt: s.now().UTC(),
	}
	logger := s.logger.WithField("run_id", run.ID)

	if err := s.store.Append(ctx, user); err != nil {
		return nil, s.fail(ctx, run, domain.StagePersist, err)
	}
	run.State = domain.RunStatePersisted
	logger.Debug("user persisted")

	act, err := s.activities.Fetch(ctx)
	if err != nil {
		return nil, s.fail(ctx, run, domain.StageEnrich, err)
	}
	run.State = domain.RunStateEnriched
	logger.Debug("activity fetched")

	created := &domain.CreatedUser{User: user, Activity: act}
	run.State = domain.RunStateCompleted
	s.finish(ctx, run)
	logger.Info("user created")
	return created, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.List(ctx)
	observability.RecordStoreList(err)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *userService) RecentRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	return s.runs.ListRecent(ctx, limit)
}

func (s *userService) fail(ctx context.Context, run *domain.PipelineRun, stage domain.Stage, cause error) error {
	pipeErr := &PipelineError{RunID: run.ID, Stage: stage, Err: cause}

	run.State = domain.RunStateFailed
	run.FailedStage = stage
	run.ErrorKind = pipeErr.Kind()
	run.ErrorMessage = cause.Error()
	s.finish(ctx, run)

	s.logger.WithFields(logrus.Fields{
		"run_id": run.ID,
		"stage":  stage,
		"kind":   run.ErrorKind,
	}).Errorf("create pipeline failed: %v", cause)
	return pipeErr
}

func (s *userService) finish(ctx context.Context, run *domain.PipelineRun) {
	run.FinishedAt = s.now().UTC()
	observability.RecordPipelineRun(string(run.State), string(run.FailedStage), run.ErrorKind, run.FinishedAt.Sub(run.StartedAt))

	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.WithField("run_id", run.ID).Warnf("journal pipeline run: %v", err)
	}
}
