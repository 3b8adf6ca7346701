package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/warriorguo/stepflow/types"
)

const namespace = "stepflow"

var (
	_ types.ExecutionObserver = &Observer{}
)

// Observer exports execution and step counters and latencies.
type Observer struct {
	executionsStarted *prometheus.CounterVec
	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	steps             *prometheus.CounterVec
	stepDuration      *prometheus.HistogramVec
	stepTimeouts      *prometheus.CounterVec
}

// NewObserver registers the collectors on reg; a nil reg means the
// default registry.
func NewObserver(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Observer{
		executionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_started_total",
			Help:      "Workflow executions started.",
		}, []string{"workflow"}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Workflow executions finished, by terminal kind.",
		}, []string{"workflow", "result"}),
		executionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Wall time from entry node to terminal.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow"}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Step invocations, by normalized status.",
		}, []string{"workflow", "step", "status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step latency including the remote call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow", "step"}),
		stepTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_timeouts_total",
			Help:      "Steps abandoned because their deadline fired.",
		}, []string{"workflow", "step"}),
	}
}

func (o *Observer) OnExecutionStart(ctx context.Context, workflow, executionID string) {
	o.executionsStarted.WithLabelValues(workflow).Inc()
}

func (o *Observer) OnStepComplete(ctx context.Context, workflow, stepID string, result *types.StepResult, duration time.Duration) {
	status := result.Normalize().Status
	o.steps.WithLabelValues(workflow, stepID, string(status)).Inc()
	o.stepDuration.WithLabelValues(workflow, stepID).Observe(duration.Seconds())
	if result != nil && types.IsTimeout(result.Err) {
		o.stepTimeouts.WithLabelValues(workflow, stepID).Inc()
	}
}

func (o *Observer) OnExecutionComplete(ctx context.Context, workflow string, outcome *types.Outcome, duration time.Duration) {
	result := string(types.TerminalFailed)
	if outcome.Succeeded() {
		result = string(types.TerminalSucceeded)
	}
	o.executions.WithLabelValues(workflow, result).Inc()
	o.executionDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}
