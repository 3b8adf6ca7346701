package types

import (
	"time"

	"github.com/juju/errors"
)

var (
	_ error = &RetryError{}
	_ error = &StepExecutionError{}
	_ error = &GraphValidationError{}
)

// Reasons a workflow graph is rejected at build time. Test with errors.Is
// against a *GraphValidationError.
const (
	ErrDuplicateNode       = errors.ConstError("duplicate node id")
	ErrUnknownNode         = errors.ConstError("unknown node reference")
	ErrCyclicReference     = errors.ConstError("cyclic reference")
	ErrTerminalUnreachable = errors.ConstError("no terminal reachable")
	ErrUnreachableNode     = errors.ConstError("node unreachable from entry")
	ErrMissingTerminal     = errors.ConstError("missing terminal")
	ErrInvalidEntry        = errors.ConstError("invalid entry node")
	ErrInvalidEdge         = errors.ConstError("invalid edge")
)

func NewRetryError(otherErr error, backoff time.Duration) error {
	return &RetryError{baseError: newBaseErr(otherErr), Backoff: backoff}
}

func NewRetryErrorf(backoff time.Duration, format string, args ...interface{}) error {
	return NewRetryError(errors.Errorf(format, args...), backoff)
}

// NewStepExecutionError keeps otherErr intact so a RetryError cause stays visible to errors.As.
func NewStepExecutionError(stepID string, otherErr error) error {
	return &StepExecutionError{baseError: &baseError{otherErr}, StepID: stepID}
}

func NewStepExecutionErrorf(stepID string, format string, args ...interface{}) error {
	return NewStepExecutionError(stepID, errors.Errorf(format, args...))
}

// NewTimeoutError reports a step that was still suspended when its deadline fired.
func NewTimeoutError(stepID string, after time.Duration) error {
	var err error
	if after > 0 {
		err = errors.Timeoutf("step %s did not complete within %s", stepID, after)
	} else {
		err = errors.Timeoutf("step %s cancelled by execution deadline", stepID)
	}
	return &StepExecutionError{baseError: newBaseErr(err), StepID: stepID, Timeout: true}
}

func NewGraphValidationError(nodeID string, reason error) error {
	return &GraphValidationError{
		baseError: newBaseErr(errors.Annotatef(reason, "graph validation failed on %q", nodeID)),
		NodeID:    nodeID,
		Reason:    reason,
	}
}

func NewGraphValidationErrorf(nodeID string, reason error, format string, args ...interface{}) error {
	return &GraphValidationError{
		baseError: newBaseErr(errors.Annotatef(reason, "graph validation failed on %q: "+format, append([]interface{}{nodeID}, args...)...)),
		NodeID:    nodeID,
		Reason:    reason,
	}
}

// IsTimeout reports whether err is a step timeout.
func IsTimeout(err error) bool {
	var se *StepExecutionError
	return errors.As(err, &se) && se.Timeout
}

// RetryBackoff reports whether err is transient, and how long to wait before re-running.
func RetryBackoff(err error) (time.Duration, bool) {
	var re *RetryError
	if !errors.As(err, &re) {
		return 0, false
	}
	return re.Backoff, true
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	if e.BaseErr == nil {
		return ""
	}
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

// RetryError marks a step failure as transient. The calling layer may re-run
// the whole workflow after Backoff.
type RetryError struct {
	*baseError
	Backoff time.Duration
}

func (e *RetryError) Unwrap() error {
	return e.BaseErr
}

// StepExecutionError is a step failure absorbed into a FAILED StepResult.
type StepExecutionError struct {
	*baseError
	StepID  string
	Timeout bool
}

func (e *StepExecutionError) Unwrap() error {
	return e.BaseErr
}

// GraphValidationError rejects a malformed workflow definition. Reason is one
// of the Err* constants above.
type GraphValidationError struct {
	*baseError
	NodeID string
	Reason error
}

func (e *GraphValidationError) Unwrap() error {
	return e.Reason
}
