package types

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

type StepStatus string

const (
	StepSucceeded StepStatus = "SUCCEEDED"
	StepFailed    StepStatus = "FAILED"
)

const (
	missingStatusDetail = "missing step status"
	defaultFailDetail   = "step failed"
)

// StepResult is what a step reports back to the executor. ErrorDetail is set
// iff Status is StepFailed.
type StepResult struct {
	Status      StepStatus `json:"status,omitempty"`
	Payload     Data       `json:"payload,omitempty"`
	ErrorDetail string     `json:"errorDetail,omitempty"`

	// Err keeps the in-process cause so callers can inspect it with errors.As.
	Err error `json:"-"`
}

func Succeed(payload Data) *StepResult {
	return &StepResult{Status: StepSucceeded, Payload: payload}
}

func Fail(err error) *StepResult {
	if err == nil {
		return &StepResult{Status: StepFailed, ErrorDetail: defaultFailDetail}
	}
	return &StepResult{Status: StepFailed, ErrorDetail: err.Error(), Err: err}
}

func Failf(format string, args ...interface{}) *StepResult {
	return Fail(errors.Errorf(format, args...))
}

func (r *StepResult) Succeeded() bool {
	return r != nil && r.Status == StepSucceeded && r.ErrorDetail == ""
}

// Normalize returns a copy that honours the StepResult invariant, failing
// closed: a nil result, a missing or unknown status, and a success carrying
// an error detail all become StepFailed.
func (r *StepResult) Normalize() *StepResult {
	if r == nil {
		return &StepResult{Status: StepFailed, ErrorDetail: missingStatusDetail}
	}
	n := *r
	switch n.Status {
	case StepSucceeded:
		if n.ErrorDetail != "" {
			n.Status = StepFailed
			n.Payload = nil
		}
	case StepFailed:
		if n.ErrorDetail == "" {
			if n.Err != nil {
				n.ErrorDetail = n.Err.Error()
			} else {
				n.ErrorDetail = defaultFailDetail
			}
		}
	case "":
		n.Status = StepFailed
		n.ErrorDetail = missingStatusDetail
	default:
		n.ErrorDetail = fmt.Sprintf("malformed step status %q", string(n.Status))
		n.Status = StepFailed
	}
	return &n
}

// Step is the contract every pipeline step satisfies. Execute must report
// every failure through a StepFailed result and never retry internally.
type Step interface {
	Execute(ctx Context, input Data) *StepResult
}

type StepFunc func(ctx Context, input Data) *StepResult

func (f StepFunc) Execute(ctx Context, input Data) *StepResult {
	return f(ctx, input)
}

type NodeHandler func(ctx Context, input Data) (Data, error)

// HandlerStep adapts a plain handler: a returned error becomes a
// StepFailed result annotated with the step name.
func HandlerStep(name string, handler NodeHandler) Step {
	return StepFunc(func(ctx Context, input Data) *StepResult {
		output, err := handler(ctx, input)
		if err != nil {
			return Fail(NewStepExecutionError(name, err))
		}
		return Succeed(output)
	})
}

// ParseStepResult decodes a function-style envelope such as
// {"status": "SUCCEED", "value": {...}}. Anything without a recognised
// status is a failure.
func ParseStepResult(envelope Data) *StepResult {
	if envelope == nil {
		return (*StepResult)(nil).Normalize()
	}
	raw, exists := envelope.Get("status")
	if !exists {
		return (*StepResult)(nil).Normalize()
	}
	status, err := cast.ToStringE(raw)
	if err != nil {
		return Failf("malformed step status %v", raw)
	}

	switch strings.ToUpper(status) {
	case "SUCCEED", string(StepSucceeded):
		value, _ := envelope.Get("value")
		return Succeed(toData(value))

	case string(StepFailed):
		detail, _ := envelope.GetString("errorDetail")
		if detail == "" {
			if body, exists := envelope.Get("body"); exists && body != nil {
				detail = fmt.Sprintf("%v", body)
			}
		}
		return (&StepResult{Status: StepFailed, ErrorDetail: detail}).Normalize()
	}
	return (&StepResult{Status: StepStatus(status)}).Normalize()
}

func toData(v any) Data {
	switch value := v.(type) {
	case nil:
		return Data{}
	case Data:
		return value
	case map[string]any:
		return Data(value)
	}
	return Data{"value": v}
}
