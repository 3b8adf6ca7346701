package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

const (
	defaultFailDetail = "workflow failed"
)

// Executor walks a Graph. It keeps no per-execution state of its own and may
// run any number of executions concurrently.
type Executor struct {
	stepTimeout time.Duration
	observers   []types.ExecutionObserver
}

func NewExecutor(opts *types.FlowOptions) *Executor {
	if opts == nil {
		opts = types.NewFlowOptions()
	}
	return &Executor{
		stepTimeout: opts.StepTimeout,
		observers:   opts.Observers,
	}
}

// Run executes graph from its entry node with a fresh execution ID.
func (e *Executor) Run(ctx context.Context, graph *Graph, input types.Data) (*types.Outcome, error) {
	return e.RunWithID(ctx, graph, uuid.NewString(), input)
}

/**
 * RunWithID drives one execution to a terminal node. A failing step never
 * turns into an error here: it routes through its branch and shows up in the
 * Outcome. An error is only returned for a graph that can not be walked.
 */
func (e *Executor) RunWithID(ctx context.Context, graph *Graph, executionID string, input types.Data) (*types.Outcome, error) {
	if graph == nil || len(graph.vertices) == 0 {
		return nil, errors.NotValidf("workflow graph")
	}

	fc := newFlowContext(ctx, graph.name, executionID)
	es := newExecutionState(graph, executionID, input)
	startTime := time.Now()

	for _, o := range e.observers {
		o.OnExecutionStart(ctx, graph.name, executionID)
	}
	fc.logger().Debugf("execution started at %s", graph.entry)

	for es.outcome == nil {
		v, err := es.enter()
		if err != nil {
			return nil, errors.Trace(err)
		}

		switch v.Kind {
		case types.StepNode:
			e.runStep(fc, es, v)
		case types.BranchNode:
			es.branch(v)
		case types.TerminalNode:
			es.terminate(v)
		default:
			return nil, errors.NotSupportedf("node %q of kind %v", v.ID, v.Kind)
		}
	}

	duration := time.Since(startTime)
	for _, o := range e.observers {
		o.OnExecutionComplete(ctx, graph.name, es.outcome, duration)
	}
	fc.logger().Infof("execution reached %s (%s) in %s", es.outcome.TerminalID, es.outcome.Kind, duration)
	return es.outcome, nil
}

func (e *Executor) runStep(fc *flowContext, es *executionState, v *Vertex) {
	start := time.Now()
	result := invokeStep(fc, v, es.payload, e.stepTimeout)
	duration := time.Since(start)

	for _, o := range e.observers {
		o.OnStepComplete(fc.Context, fc.workflow, v.ID, result, duration)
	}
	if !result.Succeeded() {
		fc.logger().WithField("step", v.ID).Warnf("step failed: %s", result.ErrorDetail)
	}
	es.stepDone(v, result, start)
}

// executionState is the state machine of a single run: Running(current)
// until a terminal node sets outcome.
type executionState struct {
	graph    *Graph
	recorder *traceRecorder
	visited  map[string]bool

	current    string
	payload    types.Data
	lastResult *types.StepResult

	outcome *types.Outcome
}

func newExecutionState(g *Graph, executionID string, input types.Data) *executionState {
	if input == nil {
		input = types.Data{}
	}
	return &executionState{
		graph:    g,
		recorder: newTraceRecorder(g.name, executionID, len(g.vertices)),
		visited:  make(map[string]bool, len(g.vertices)),
		current:  g.entry,
		payload:  input,
	}
}

func (es *executionState) enter() (*Vertex, error) {
	v, exists := es.graph.vertices[es.current]
	if !exists {
		return nil, errors.NotFoundf("node %q", es.current)
	}
	if es.visited[v.ID] {
		return nil, errors.Forbiddenf("node %q visited twice", v.ID)
	}
	es.visited[v.ID] = true
	return v, nil
}

func (es *executionState) stepDone(v *Vertex, result *types.StepResult, start time.Time) {
	es.recorder.record(v, result, v.Next, start)
	es.lastResult = result

	if result.Succeeded() {
		es.payload = result.Payload
	} else {
		// a designated failure path receives what went wrong, not a success payload
		failure := result.Payload.Clone()
		if failure == nil {
			failure = types.Data{}
		}
		failure.Set("failedStep", v.ID)
		failure.Set("errorDetail", result.ErrorDetail)
		es.payload = failure
	}
	es.current = v.Next
}

func (es *executionState) branch(v *Vertex) {
	start := time.Now()
	next := v.evaluate(es.lastResult)
	es.recorder.record(v, nil, next, start)
	es.current = next
}

func (es *executionState) terminate(v *Vertex) {
	es.recorder.record(v, nil, "", time.Now())

	outcome := &types.Outcome{
		Kind:       v.Terminal,
		TerminalID: v.ID,
		Trace:      es.recorder.trace,
	}
	if v.Terminal == types.TerminalSucceeded {
		outcome.Payload = es.payload
	} else {
		outcome.ErrorTag = v.ErrorTag
		if outcome.ErrorTag == "" {
			outcome.ErrorTag = DefaultErrorTag
		}
		if es.lastResult != nil && !es.lastResult.Succeeded() {
			outcome.ErrorDetail = es.lastResult.ErrorDetail
			outcome.Cause = es.lastResult.Err
		} else {
			outcome.ErrorDetail = defaultFailDetail
		}
	}
	es.outcome = outcome
}
