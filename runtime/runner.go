package runtime

import (
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

func newBatchRunner(concurrency int) *batchRunner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &batchRunner{
		wp:      workerpool.New(concurrency),
		runners: make(map[string]*executionRunner),
	}
}

// batchRunner tracks background executions and runs them on a bounded pool.
type batchRunner struct {
	mu sync.Mutex

	wp      *workerpool.WorkerPool
	stopped bool
	runners map[string]*executionRunner
}

func (b *batchRunner) get(key string) *executionRunner {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.runners[key]
}

func (b *batchRunner) submit(key string, r *executionRunner, task func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return errors.MethodNotAllowedf("runner stopped")
	}
	if _, exists := b.runners[key]; exists {
		return errors.AlreadyExistsf("execution: %s", key)
	}
	b.runners[key] = r
	b.wp.Submit(task)
	return nil
}

// forget drops finished executions older than before; their traces remain in the store.
func (b *batchRunner) forget(before time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key, r := range b.runners {
		if r.finishedBefore(before) {
			delete(b.runners, key)
			removed++
		}
	}
	return removed
}

func (b *batchRunner) stopWait() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()

	b.wp.StopWait()
}

type executionRunner struct {
	mu sync.Mutex

	executionID string
	workflow    string
	status      types.StatusType
	createTime  time.Time
	endTime     time.Time

	outcome *types.Outcome
	lastErr error
}

func newExecutionRunner(workflow, executionID string) *executionRunner {
	return &executionRunner{
		executionID: executionID,
		workflow:    workflow,
		status:      types.Pending,
		createTime:  time.Now(),
	}
}

func (r *executionRunner) setRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = types.Running
}

func (r *executionRunner) finish(outcome *types.Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.endTime = time.Now()
	r.outcome = outcome
	r.lastErr = err
	if err == nil && outcome.Succeeded() {
		r.status = types.Succeeded
	} else {
		r.status = types.Failed
	}
}

func (r *executionRunner) finishedBefore(t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return (r.status == types.Succeeded || r.status == types.Failed) && r.endTime.Before(t)
}

func (r *executionRunner) getStatus() *types.ExecutionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := &types.ExecutionStatus{
		ExecutionID: r.executionID,
		Workflow:    r.workflow,
		Status:      r.status,
		CreateTime:  r.createTime,
		EndTime:     r.endTime,
	}
	if r.outcome != nil {
		status.Result = types.NewSubmitResult(r.outcome)
		status.Trace = r.outcome.Trace
	} else if r.lastErr != nil {
		status.Result = &types.SubmitResult{
			Status:     types.SubmitFailed,
			StatusCode: 400,
			Value:      &types.FailureValue{Error: DefaultErrorTag, Cause: r.lastErr.Error()},
		}
	}
	return status
}
