package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/stepflow/types"
)

// sample returns the value of the series of name whose labels include all of labels.
func sample(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	require.Nil(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, m := range family.GetMetric() {
			got := make(map[string]string)
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewObserver(reg)
	ctx := context.Background()

	o.OnExecutionStart(ctx, "orders", "e1")
	o.OnStepComplete(ctx, "orders", "GetUsername", types.Succeed(types.Data{}), 10*time.Millisecond)
	o.OnStepComplete(ctx, "orders", "GetOrders", types.Fail(types.NewTimeoutError("GetOrders", time.Second)), time.Second)
	o.OnExecutionComplete(ctx, "orders", &types.Outcome{Kind: types.TerminalFailed}, time.Second)

	o.OnExecutionStart(ctx, "orders", "e2")
	o.OnStepComplete(ctx, "orders", "GetUsername", nil, time.Millisecond)
	o.OnExecutionComplete(ctx, "orders", &types.Outcome{Kind: types.TerminalSucceeded}, time.Second)

	assert.Equal(t, 2.0, sample(t, reg, "stepflow_executions_started_total", map[string]string{"workflow": "orders"}))
	assert.Equal(t, 1.0, sample(t, reg, "stepflow_executions_total", map[string]string{"result": "FAILED"}))
	assert.Equal(t, 1.0, sample(t, reg, "stepflow_executions_total", map[string]string{"result": "SUCCEEDED"}))
	assert.Equal(t, 2.0, sample(t, reg, "stepflow_execution_duration_seconds", map[string]string{"workflow": "orders"}))

	assert.Equal(t, 1.0, sample(t, reg, "stepflow_steps_total", map[string]string{"step": "GetUsername", "status": "SUCCEEDED"}))
	// a nil result counts as failed
	assert.Equal(t, 1.0, sample(t, reg, "stepflow_steps_total", map[string]string{"step": "GetUsername", "status": "FAILED"}))
	assert.Equal(t, 1.0, sample(t, reg, "stepflow_step_timeouts_total", map[string]string{"step": "GetOrders"}))
	assert.Equal(t, 0.0, sample(t, reg, "stepflow_step_timeouts_total", map[string]string{"step": "GetUsername"}))
	assert.Equal(t, 2.0, sample(t, reg, "stepflow_step_duration_seconds", map[string]string{"step": "GetUsername"}))
}
