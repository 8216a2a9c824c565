package domain

import "time"

type RunState string

const (
	RunStateReceived  RunState = "received"
	RunStatePersisted RunState = "persisted"
	RunStateEnriched  RunState = "enriched"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

type Stage string

const (
	StagePersist Stage = "persist"
	StageEnrich  Stage = "enrich"
)

// PipelineRun captures the terminal outcome of one create request.
type PipelineRun struct {
	ID           string
	State        RunState
	FailedStage  Stage
	ErrorKind    string
	ErrorMessage string
	UserName     string
	UserEmail    string
	StartedAt    time.Time
	FinishedAt   time.Time
}
