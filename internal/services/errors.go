package services

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrTaskNotFound       = errors.New("task not found")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrReportNotReady     = errors.New("report not ready")

	// ErrStaleTransition means another actor already moved the record; callers treat it as a no-op.
	ErrStaleTransition = errors.New("stale transition")
	// ErrInvalidTransition is a programming error: the edge is not part of the state machine.
	ErrInvalidTransition = errors.New("invalid transition")

	ErrTaskExists     = fmt.Errorf("%w: an active task already exists for this submission", ErrConflict)
	ErrReportInFlight = fmt.Errorf("%w: report is already generating or completed", ErrConflict)
)

// UpstreamKind classifies a collaborator failure.
type UpstreamKind string

const (
	UpstreamTransport UpstreamKind = "transport"
	UpstreamTimeout   UpstreamKind = "timeout"
	UpstreamMalformed UpstreamKind = "malformed"
	UpstreamEmpty     UpstreamKind = "empty"
	UpstreamPanic     UpstreamKind = "panic"
)

// UpstreamError is the failure outcome of an AssessmentClient or ReportRenderer call.
type UpstreamError struct {
	Kind UpstreamKind
	Op   string
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError builds an UpstreamError, classifying context expiry as a timeout.
func NewUpstreamError(op string, kind UpstreamKind, err error) *UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = UpstreamTimeout
	}
	return &UpstreamError{Kind: kind, Op: op, Err: err}
}

// AsUpstream converts any collaborator error into an UpstreamError.
func AsUpstream(op string, err error) *UpstreamError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	return NewUpstreamError(op, UpstreamTransport, err)
}

// ValidationError wraps ErrValidation with the offending field.
func ValidationError(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}
