package types

import (
	"context"
	"time"
)

// ExecutionObserver is notified as an execution progresses. Hooks run on the
// execution's goroutine and must not block.
type ExecutionObserver interface {
	OnExecutionStart(ctx context.Context, workflow, executionID string)
	OnStepComplete(ctx context.Context, workflow, stepID string, result *StepResult, duration time.Duration)
	OnExecutionComplete(ctx context.Context, workflow string, outcome *Outcome, duration time.Duration)
}

// NoopObserver can be embedded to implement only some hooks.
type NoopObserver struct{}

func (NoopObserver) OnExecutionStart(ctx context.Context, workflow, executionID string) {}

func (NoopObserver) OnStepComplete(ctx context.Context, workflow, stepID string, result *StepResult, duration time.Duration) {
}

func (NoopObserver) OnExecutionComplete(ctx context.Context, workflow string, outcome *Outcome, duration time.Duration) {
}
