package stepflow

import (
	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/runtime"
	"github.com/warriorguo/stepflow/store"
	"github.com/warriorguo/stepflow/store/mem"
	"github.com/warriorguo/stepflow/store/postgres"
	"github.com/warriorguo/stepflow/types"
)

// NewFlowEngine creates an engine whose traces go to postgres when
// PostgresConfig is set and to process memory otherwise.
func NewFlowEngine(opts ...types.FlowOption) (*runtime.Engine, error) {
	options := types.NewFlowOptions()
	for _, opt := range opts {
		opt(options)
	}

	var s store.Store
	var err error

	// PostgresConfig takes precedence over MemStore
	if options.PostgresConfig != nil {
		s, err = postgres.NewPostgresStore(PostgresStoreConfig(options.PostgresConfig))
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
	} else {
		s = mem.NewMemStore()
	}

	return runtime.NewFlowEngine(s, options), nil
}

// PostgresStoreConfig fills the store config from the option, keeping the
// store defaults for anything left empty.
func PostgresStoreConfig(c *types.PostgresConfig) *postgres.Config {
	config := postgres.DefaultConfig()
	if c.Host != "" {
		config.Host = c.Host
	}
	if c.Port != 0 {
		config.Port = c.Port
	}
	if c.User != "" {
		config.User = c.User
	}
	if c.Password != "" {
		config.Password = c.Password
	}
	if c.Database != "" {
		config.Database = c.Database
	}
	if c.SSLMode != "" {
		config.SSLMode = c.SSLMode
	}
	if c.Table != "" {
		config.Table = c.Table
	}
	return config
}
