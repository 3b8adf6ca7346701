package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/stepflow/store"
	"github.com/warriorguo/stepflow/store/mem"
	"github.com/warriorguo/stepflow/types"
)

func newTestStore() store.Store {
	return mem.NewMemStore()
}

func newOptions() *types.FlowOptions {
	opts := types.NewFlowOptions()
	opts.MemStore = true
	opts.StepTimeout = time.Second
	return opts
}

// countingStep counts its invocations and answers with fn.
type countingStep struct {
	calls atomic.Int32
	fn    func(ctx types.Context, input types.Data) *types.StepResult
}

func (s *countingStep) Execute(ctx types.Context, input types.Data) *types.StepResult {
	s.calls.Add(1)
	return s.fn(ctx, input)
}

func (s *countingStep) count() int {
	return int(s.calls.Load())
}

func succeedWith(payload types.Data) *countingStep {
	return &countingStep{fn: func(ctx types.Context, input types.Data) *types.StepResult {
		return types.Succeed(payload)
	}}
}

func failWith(detail string) *countingStep {
	return &countingStep{fn: func(ctx types.Context, input types.Data) *types.StepResult {
		return &types.StepResult{Status: types.StepFailed, ErrorDetail: detail}
	}}
}

func panicWith(v any) *countingStep {
	return &countingStep{fn: func(ctx types.Context, input types.Data) *types.StepResult {
		panic(v)
	}}
}

// orderPipeline mirrors the customer order lookup with fakes for the three steps.
type orderPipeline struct {
	resolve   *countingStep
	fetch     *countingStep
	aggregate *countingStep
}

func newOrderPipeline() *orderPipeline {
	p := &orderPipeline{}
	p.resolve = &countingStep{fn: func(ctx types.Context, input types.Data) *types.StepResult {
		id, _ := input.GetString("identifier")
		return types.Succeed(types.Data{"username": id})
	}}
	p.fetch = &countingStep{fn: func(ctx types.Context, input types.Data) *types.StepResult {
		return types.Succeed(types.Data{"orders": []any{
			types.Data{"GrandTotal": 10},
			types.Data{"GrandTotal": 20},
		}})
	}}
	p.aggregate = &countingStep{fn: func(ctx types.Context, input types.Data) *types.StepResult {
		orders, _ := input.GetSlice("orders")
		total := 0
		for _, o := range orders {
			total += o.(types.Data)["GrandTotal"].(int)
		}
		return types.Succeed(types.Data{"Total": total})
	}}
	return p
}

func (p *orderPipeline) definitions() []types.StepDefinition {
	return []types.StepDefinition{
		{ID: "ResolveIdentity", Step: p.resolve},
		{ID: "FetchRecords", Step: p.fetch},
		{ID: "AggregateResult", Step: p.aggregate},
	}
}

func (p *orderPipeline) graph(t *testing.T) *Graph {
	g, err := Build("orders", p.definitions())
	require.Nil(t, err)
	return g
}

func (p *orderPipeline) counts() []int {
	return []int{p.resolve.count(), p.fetch.count(), p.aggregate.count()}
}

func newTestEngine(t *testing.T, opts *types.FlowOptions) *Engine {
	if opts == nil {
		opts = newOptions()
	}
	f := NewFlowEngine(newTestStore(), opts)
	t.Cleanup(func() {
		assert.Nil(t, f.Close(context.Background()))
	})
	return f
}
