package service

import (
	"errors"
	"fmt"

	"userfeed/internal/activity"
	"userfeed/internal/domain"
	"userfeed/internal/userstore"
)

// PipelineError reports the stage at which a create pipeline run failed.
// Err is the underlying store or fetch error.
type PipelineError struct {
	RunID string
	Stage domain.Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("create user: %s stage failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Kind names the underlying error variant, e.g. "write_failure" or
// "network_error".
func (e *PipelineError) Kind() string {
	return errorKind(e.Err)
}

func errorKind(err error) string {
	var (
		storeErr *userstore.StoreError
		fetchErr *activity.FetchError
	)
	switch {
	case errors.As(err, &storeErr):
		return storeErr.Kind.String()
	case errors.As(err, &fetchErr):
		return fetchErr.Kind.String()
	default:
		return "unknown"
	}
}
