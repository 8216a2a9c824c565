package userstore

import (
	"errors"
	"fmt"
)

// ErrStoreClosed is returned for appends submitted after Close.
var ErrStoreClosed = errors.New("store is closed")

// Kind classifies a StoreError.
type Kind int

const (
	WriteFailure Kind = iota + 1
	ReadFailure
	ParseFailure
)

func (k Kind) String() string {
	switch k {
	case WriteFailure:
		return "write_failure"
	case ReadFailure:
		return "read_failure"
	case ParseFailure:
		return "parse_failure"
	default:
		return "unknown"
	}
}

// StoreError reports a failed store operation. Line is the 1-based line of
// the store file that failed to parse and is only set for ParseFailure.
type StoreError struct {
	Kind Kind
	Path string
	Line int
	Err  error
}

func (e *StoreError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("userstore: %s on %s line %d: %v", e.Kind, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("userstore: %s on %s: %v", e.Kind, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsWriteFailure(err error) bool { return hasKind(err, WriteFailure) }

func IsReadFailure(err error) bool { return hasKind(err, ReadFailure) }

func IsParseFailure(err error) bool { return hasKind(err, ParseFailure) }

func hasKind(err error, kind Kind) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == kind
}
