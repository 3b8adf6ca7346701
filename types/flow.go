package types

import (
	"context"
	"net/http"
	"time"
)

type FlowEngine interface {
	// RegisterWorkflow builds and validates the pipeline once; the resulting
	// graph is shared by every execution of name.
	RegisterWorkflow(name string, steps []StepDefinition) error
	ListWorkflowNames() []string
	/**
	 * RenderWorkflow will return the DOT string of the compiled graph.
	 */
	RenderWorkflow(name string) (string, error)

	// Submit runs the workflow to a terminal state and wraps the outcome for
	// an upstream gateway. A business failure is reported in the result,
	// never as an error.
	Submit(ctx context.Context, workflow string, input Data) (*SubmitResult, error)

	// Start runs the workflow in the background and returns its execution ID.
	Start(ctx context.Context, workflow string, input Data) (string, error)
	GetExecution(ctx context.Context, executionID string) (*ExecutionStatus, error)
	RenderExecution(ctx context.Context, executionID string) (string, error)

	/**
	 * close the engine, waiting for background executions to finish.
	 */
	Close(ctx context.Context) error
}

const (
	SubmitSucceed = "SUCCEED"
	SubmitFailed  = "FAILED"
)

type SubmitResult struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Value      any    `json:"value,omitempty"`
}

// FailureValue is the SubmitResult value of a failed execution.
type FailureValue struct {
	Error string `json:"Error"`
	Cause string `json:"Cause,omitempty"`
}

func NewSubmitResult(outcome *Outcome) *SubmitResult {
	if outcome.Succeeded() {
		return &SubmitResult{Status: SubmitSucceed, StatusCode: http.StatusOK, Value: outcome.Payload}
	}
	return &SubmitResult{
		Status:     SubmitFailed,
		StatusCode: http.StatusBadRequest,
		Value:      &FailureValue{Error: outcome.ErrorTag, Cause: outcome.ErrorDetail},
	}
}

type ExecutionStatus struct {
	ExecutionID string
	Workflow    string
	Status      StatusType
	CreateTime  time.Time
	EndTime     time.Time

	Result *SubmitResult
	Trace  *ExecutionTrace
}
