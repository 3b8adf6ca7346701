package runtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stepflow/store"
	"github.com/warriorguo/stepflow/types"
)

var (
	_ types.FlowEngine = &Engine{}
)

// Engine owns the registered workflow graphs and runs executions against
// them, synchronously through Submit or in the background through Start.
type Engine struct {
	ctx    context.Context
	cancel context.CancelFunc

	runningMu sync.RWMutex
	running   bool

	store       store.Store
	opts        *types.FlowOptions
	executor    *Executor
	batchRunner *batchRunner

	graphMu sync.RWMutex
	graphs  map[string]*Graph
}

// NewFlowEngine creates an engine. store may be nil, in which case traces
// are not persisted.
func NewFlowEngine(store store.Store, opts *types.FlowOptions) *Engine {
	if opts == nil {
		opts = types.NewFlowOptions()
	}
	f := &Engine{}
	f.ctx, f.cancel = context.WithCancel(opts.Ctx)
	f.store = store
	f.opts = opts
	f.running = true
	f.executor = NewExecutor(opts)
	f.batchRunner = newBatchRunner(opts.MaxConcurrency)
	f.graphs = make(map[string]*Graph)
	return f
}

func (f *Engine) isRunning() bool {
	f.runningMu.RLock()
	defer f.runningMu.RUnlock()
	return f.running
}

func (f *Engine) RegisterWorkflow(name string, steps []types.StepDefinition) error {
	g, err := Build(name, steps)
	if err != nil {
		return errors.Trace(err)
	}
	return f.RegisterGraph(g)
}

// RegisterGraph registers a graph compiled from a GraphSpec under its name.
func (f *Engine) RegisterGraph(g *Graph) error {
	if !f.isRunning() {
		return errors.MethodNotAllowedf("not running")
	}
	if g == nil {
		return errors.NotValidf("nil graph")
	}

	f.graphMu.Lock()
	defer f.graphMu.Unlock()
	if _, exists := f.graphs[g.name]; exists {
		return errors.AlreadyExistsf("workflow: %s", g.name)
	}
	f.graphs[g.name] = g
	log.Infof("workflow %s registered with %d steps", g.name, g.steps)
	return nil
}

func (f *Engine) GetGraph(name string) (*Graph, bool) {
	f.graphMu.RLock()
	defer f.graphMu.RUnlock()
	g, exists := f.graphs[name]
	return g, exists
}

func (f *Engine) ListWorkflowNames() []string {
	f.graphMu.RLock()
	defer f.graphMu.RUnlock()

	names := make([]string, 0, len(f.graphs))
	for name := range f.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Engine) RenderWorkflow(name string) (string, error) {
	g, exists := f.GetGraph(name)
	if !exists {
		return "", errors.NotFoundf("workflow: %s", name)
	}
	return renderDOT(g, nil)
}

func (f *Engine) Submit(ctx context.Context, workflow string, input types.Data) (*types.SubmitResult, error) {
	if !f.isRunning() {
		return nil, errors.MethodNotAllowedf("not running")
	}
	g, exists := f.GetGraph(workflow)
	if !exists {
		return nil, errors.NotFoundf("workflow: %s", workflow)
	}

	outcome, err := f.execute(ctx, g, uuid.NewString(), input)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return types.NewSubmitResult(outcome), nil
}

/**
 * execute runs g until it ends. When the run fails on a RetryError and
 * SubmitAttempts allows it, the whole workflow is run again from its entry
 * node after the error's backoff.
 */
func (f *Engine) execute(ctx context.Context, g *Graph, executionID string, input types.Data) (*types.Outcome, error) {
	attempts := f.opts.SubmitAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		outcome, err := f.executor.RunWithID(ctx, g, executionID, input.Clone())
		if err != nil {
			return nil, errors.Trace(err)
		}
		if err := f.saveTrace(ctx, outcome.Trace); err != nil {
			log.Errorf("%s failed to save trace: %v", executionID, err)
		}

		if outcome.Succeeded() || attempt >= attempts {
			return outcome, nil
		}
		backoff, transient := types.RetryBackoff(outcome.Cause)
		if !transient {
			return outcome, nil
		}

		log.Infof("%s attempt %d/%d failed transiently, rerun in %s: %s",
			executionID, attempt, attempts, backoff, outcome.ErrorDetail)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return outcome, nil
		case <-timer.C:
		}
	}
}

// Start runs the workflow on the background pool. The execution is bound to
// the engine's lifetime, not to ctx.
func (f *Engine) Start(ctx context.Context, workflow string, input types.Data) (string, error) {
	if !f.isRunning() {
		return "", errors.MethodNotAllowedf("not running")
	}
	g, exists := f.GetGraph(workflow)
	if !exists {
		return "", errors.NotFoundf("workflow: %s", workflow)
	}

	executionID := uuid.NewString()
	r := newExecutionRunner(workflow, executionID)
	input = input.Clone()
	err := f.batchRunner.submit(executionID, r, func() {
		r.setRunning()
		outcome, err := f.execute(f.ctx, g, executionID, input)
		if err != nil {
			log.Errorf("%s execution aborted: %s", executionID, errors.ErrorStack(err))
		}
		r.finish(outcome, err)
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	return executionID, nil
}

func (f *Engine) GetExecution(ctx context.Context, executionID string) (*types.ExecutionStatus, error) {
	if r := f.batchRunner.get(executionID); r != nil {
		return r.getStatus(), nil
	}
	trace, err := f.loadTrace(ctx, executionID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return statusFromTrace(trace), nil
}

func (f *Engine) RenderExecution(ctx context.Context, executionID string) (string, error) {
	var trace *types.ExecutionTrace
	if r := f.batchRunner.get(executionID); r != nil {
		trace = r.getStatus().Trace
	}
	if trace == nil {
		var err error
		if trace, err = f.loadTrace(ctx, executionID); err != nil {
			return "", errors.Trace(err)
		}
	}

	g, exists := f.GetGraph(trace.Workflow)
	if !exists {
		return "", errors.NotFoundf("workflow: %s", trace.Workflow)
	}
	return renderDOT(g, trace)
}

// Forget drops finished background executions older than age from memory.
func (f *Engine) Forget(age time.Duration) int {
	return f.batchRunner.forget(time.Now().Add(-age))
}

func (f *Engine) Close(ctx context.Context) error {
	f.runningMu.Lock()
	if !f.running {
		f.runningMu.Unlock()
		return nil
	}
	f.running = false
	f.runningMu.Unlock()

	stopped := make(chan struct{})
	go func() {
		f.batchRunner.stopWait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		// abandon waiting, in flight steps see the cancellation and fail
		f.cancel()
		<-stopped
	}
	f.cancel()

	if closer, ok := f.store.(interface{ Close() error }); ok {
		return errors.Trace(closer.Close())
	}
	return nil
}
