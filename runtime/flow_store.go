package runtime

import (
	"context"
	"encoding/json"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stepflow/types"
)

const (
	TracePath = "/trace/"
)

func (f *Engine) saveTrace(ctx context.Context, trace *types.ExecutionTrace) error {
	if f.store == nil || !f.opts.PersistTrace || trace == nil {
		return nil
	}
	b, err := json.Marshal(trace)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(f.store.Set(ctx, TracePath, trace.ExecutionID, b))
}

func (f *Engine) loadTrace(ctx context.Context, executionID string) (*types.ExecutionTrace, error) {
	if f.store == nil {
		return nil, errors.NotFoundf("trace of %s", executionID)
	}
	b, err := f.store.Get(ctx, TracePath, executionID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if b == nil {
		return nil, errors.NotFoundf("trace of %s", executionID)
	}

	trace := &types.ExecutionTrace{}
	if err := json.Unmarshal(b, trace); err != nil {
		return nil, errors.Annotatef(err, "decode trace of %s", executionID)
	}
	return trace, nil
}

// ListTraces returns the ids of every persisted execution.
func (f *Engine) ListTraces(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if f.store == nil {
		return ids, nil
	}
	err := f.store.List(ctx, TracePath, func(key string) bool {
		ids = append(ids, key)
		return true
	})
	return ids, errors.Trace(err)
}

func (f *Engine) RemoveTrace(ctx context.Context, executionID string) error {
	if f.store == nil {
		return nil
	}
	return errors.Trace(f.store.Remove(ctx, TracePath, executionID))
}

// statusFromTrace rebuilds the status of an execution this process no longer tracks.
func statusFromTrace(trace *types.ExecutionTrace) *types.ExecutionStatus {
	status := &types.ExecutionStatus{
		ExecutionID: trace.ExecutionID,
		Workflow:    trace.Workflow,
		Status:      types.Failed,
		Trace:       trace,
	}
	if len(trace.Entries) == 0 {
		log.Warnf("trace of %s has no entries", trace.ExecutionID)
		return status
	}
	status.CreateTime = trace.Entries[0].StartTime
	status.EndTime = trace.Entries[len(trace.Entries)-1].EndTime

	outcome := &types.Outcome{Kind: types.TerminalFailed, ErrorTag: DefaultErrorTag, Trace: trace}
	var last *types.StepResult
	for _, e := range trace.Entries {
		if e.Result != nil {
			last = e.Result
		}
	}
	if last != nil {
		if last.Succeeded() {
			outcome.Payload = last.Payload
		} else {
			outcome.ErrorDetail = last.ErrorDetail
		}
	}
	if outcome.Payload == nil {
		outcome.Payload = types.Data{}
	}

	end := trace.Entries[len(trace.Entries)-1]
	switch {
	case end.Kind != types.TerminalNode:
		log.Warnf("trace of %s ends at non terminal %s", trace.ExecutionID, end.NodeID)
	case end.Terminal == types.TerminalSucceeded:
		outcome.Kind = types.TerminalSucceeded
		outcome.TerminalID = end.NodeID
		status.Status = types.Succeeded
	default:
		outcome.TerminalID = end.NodeID
		if end.ErrorTag != "" {
			outcome.ErrorTag = end.ErrorTag
		}
		if outcome.ErrorDetail == "" {
			outcome.ErrorDetail = defaultFailDetail
		}
	}
	status.Result = types.NewSubmitResult(outcome)
	return status
}
