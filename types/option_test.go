package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlowOptionsDefaults(t *testing.T) {
	opts := NewFlowOptions()

	assert.NotNil(t, opts.Ctx)
	assert.Equal(t, 64, opts.MaxConcurrency)
	assert.Equal(t, 10*time.Second, opts.StepTimeout)
	assert.Equal(t, 1, opts.SubmitAttempts)
	assert.True(t, opts.PersistTrace)
	assert.False(t, opts.MemStore)
	assert.Nil(t, opts.PostgresConfig)
}

func TestWithPostgresConfig(t *testing.T) {
	config := &PostgresConfig{
		Host:     "dbhost",
		Port:     5433,
		User:     "user",
		Password: "pass",
		Database: "db",
		SSLMode:  "require",
	}

	opts := NewFlowOptions()
	WithPostgresConfig(config)(opts)

	assert.NotNil(t, opts.PostgresConfig)
	assert.Equal(t, "dbhost", opts.PostgresConfig.Host)
	assert.Equal(t, 5433, opts.PostgresConfig.Port)
	assert.Equal(t, "require", opts.PostgresConfig.SSLMode)
}

func TestMultipleOptions(t *testing.T) {
	opts := NewFlowOptions()

	SetMaxConcurrency(8)(opts)
	WithStepTimeout(time.Second)(opts)
	WithSubmitAttempts(3)(opts)
	DisableTracePersistence()(opts)
	EnableMemStore()(opts)
	WithObserver(NoopObserver{})(opts)
	WithObserver(NoopObserver{})(opts)

	assert.Equal(t, 8, opts.MaxConcurrency)
	assert.Equal(t, time.Second, opts.StepTimeout)
	assert.Equal(t, 3, opts.SubmitAttempts)
	assert.False(t, opts.PersistTrace)
	assert.True(t, opts.MemStore)
	assert.Len(t, opts.Observers, 2)
}
