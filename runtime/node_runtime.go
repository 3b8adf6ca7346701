package runtime

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

// invokeStep runs one step and always returns a normalized result. Panics
// become failures, and a step still suspended when its deadline fires is
// abandoned and reported as a timeout.
func invokeStep(fc *flowContext, v *Vertex, input types.Data, timeout time.Duration) *types.StepResult {
	if err := fc.Err(); err != nil {
		return types.Fail(types.NewTimeoutError(v.ID, 0))
	}

	ctx := fc.Context
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	stepCtx := fc.enterNode(ctx, v.ID)

	resultCh := make(chan *types.StepResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- types.Fail(types.NewStepExecutionError(v.ID, errors.Errorf("panic in step %s: %v", v.ID, r)))
			}
		}()
		resultCh <- v.step.Execute(stepCtx, input.Clone())
	}()

	select {
	case result := <-resultCh:
		return result.Normalize()

	case <-ctx.Done():
		if fc.Err() == nil {
			return types.Fail(types.NewTimeoutError(v.ID, timeout))
		}
		return types.Fail(types.NewTimeoutError(v.ID, 0))
	}
}
