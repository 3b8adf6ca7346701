package runtime

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stepflow/types"
)

var (
	_ types.Context = &flowContext{}
)

// flowContext is what a step sees while it runs. One is created per
// execution and copied per step.
type flowContext struct {
	context.Context

	executionID string
	workflow    string
	currentNode string
}

func newFlowContext(ctx context.Context, workflow, executionID string) *flowContext {
	return &flowContext{Context: ctx, workflow: workflow, executionID: executionID}
}

func (f *flowContext) GetExecutionID() string {
	return f.executionID
}

func (f *flowContext) GetCurrentNode() string {
	return f.currentNode
}

func (f *flowContext) enterNode(ctx context.Context, node string) *flowContext {
	fc := *f
	fc.Context = ctx
	fc.currentNode = node
	return &fc
}

func (f *flowContext) logger() *log.Entry {
	return log.WithFields(log.Fields{
		"workflow":  f.workflow,
		"execution": f.executionID,
	})
}

// traceRecorder appends entries to one execution's trace.
type traceRecorder struct {
	trace *types.ExecutionTrace
}

func newTraceRecorder(workflow, executionID string, capacity int) *traceRecorder {
	return &traceRecorder{trace: &types.ExecutionTrace{
		ExecutionID: executionID,
		Workflow:    workflow,
		Entries:     make([]types.TraceEntry, 0, capacity),
	}}
}

func (r *traceRecorder) record(v *Vertex, result *types.StepResult, next string, start time.Time) {
	r.trace.Entries = append(r.trace.Entries, types.TraceEntry{
		NodeID:    v.ID,
		Kind:      v.Kind,
		Result:    result,
		Next:      next,
		Terminal:  v.Terminal,
		ErrorTag:  v.ErrorTag,
		StartTime: start,
		EndTime:   time.Now(),
	})
}
