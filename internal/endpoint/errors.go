package endpoint

import (
	"errors"
	"fmt"

	"github.com/1ureka/rtcpair/internal/bridge"
)

var (
	// ErrInvalidState is returned when an operation is called from a state
	// that does not allow it.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrRemoteDescriptionMissing is returned when a remote candidate is
	// submitted before the remote description has been accepted.
	ErrRemoteDescriptionMissing = errors.New("remote candidate submitted before remote description was accepted")

	// ErrDataPathNotOpen is returned by Send before the data channel opens.
	ErrDataPathNotOpen = errors.New("data path is not open")

	// ErrCandidateBeforeDescription reports an engine that gathered a local
	// candidate before a local description existed.
	ErrCandidateBeforeDescription = errors.New("local candidate gathered before local description")
)

// StateError wraps ErrInvalidState with the operation and the state it was
// attempted from.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %v (state %s)", e.Op, ErrInvalidState, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// DescriptionError reports a session description that failed to parse.
// Line is the first offending line when it could be located.
type DescriptionError struct {
	Kind string // "offer" or "answer"
	Line string
	Err  error
}

func (e *DescriptionError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("malformed %s description at %q: %v", e.Kind, e.Line, e.Err)
	}
	return fmt.Sprintf("malformed %s description: %v", e.Kind, e.Err)
}

func (e *DescriptionError) Unwrap() error { return e.Err }

// CandidateError reports a connectivity candidate that failed to parse or
// that the engine refused.
type CandidateError struct {
	Candidate string
	Err       error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("malformed candidate %q: %v", e.Candidate, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

// NegotiationError reports a create- or set-description failure delivered
// asynchronously by the engine.
type NegotiationError struct {
	Op     string // "create" or "set"
	Target bridge.Target
	Err    error
}

func (e *NegotiationError) Error() string {
	if e.Op == "create" {
		return fmt.Sprintf("creating session description: %v", e.Err)
	}
	return fmt.Sprintf("setting %s description: %v", e.Target, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }
