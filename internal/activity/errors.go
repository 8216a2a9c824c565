package activity

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a FetchError.
type Kind int

const (
	NetworkError Kind = iota + 1
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case NetworkError:
		return "network_error"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// FetchError reports a failed activity fetch. Status holds the HTTP status
// when the service answered with a non-success code.
type FetchError struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("activity: %s (status %d %s): %v", e.Kind, e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("activity: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool { return hasKind(err, NetworkError) }

func IsMalformedResponse(err error) bool { return hasKind(err, MalformedResponse) }

func hasKind(err error, kind Kind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}
