package stepflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/stepflow/store/postgres"
	"github.com/warriorguo/stepflow/types"
)

func TestNewFlowEngine_MemStore(t *testing.T) {
	engine, err := NewFlowEngine(types.EnableMemStore())
	require.Nil(t, err)
	defer engine.Close(context.Background())

	require.Nil(t, engine.RegisterWorkflow("echo", []types.StepDefinition{
		{ID: "echo", Step: types.StepFunc(func(ctx types.Context, input types.Data) *types.StepResult {
			return types.Succeed(input)
		})},
	}))
	result, err := engine.Submit(context.Background(), "echo", types.Data{"k": "v"})
	require.Nil(t, err)
	assert.Equal(t, types.SubmitSucceed, result.Status)
	assert.Equal(t, types.Data{"k": "v"}, result.Value)

	ids, err := engine.ListTraces(context.Background())
	assert.Nil(t, err)
	assert.Len(t, ids, 1)
}

func TestPostgresStoreConfig(t *testing.T) {
	c := PostgresStoreConfig(&types.PostgresConfig{Host: "db", Table: "traces"})
	assert.Equal(t, "db", c.Host)
	assert.Equal(t, 5432, c.Port)
	assert.Equal(t, "traces", c.Table)
	assert.Equal(t, postgres.DefaultConfig().User, c.User)
}
