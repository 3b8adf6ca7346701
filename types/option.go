package types

import (
	"context"
	"time"

	"github.com/mcuadros/go-defaults"
)

func NewFlowOptions() *FlowOptions {
	opts := &FlowOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type FlowOptions struct {
	Ctx context.Context
	/**
	 * default: 64
	 * at most this many background executions run at once.
	 */
	MaxConcurrency int `default:"64"`
	/**
	 * default: 10s, matches the per-function timeout the pipeline was sized for.
	 * zero disables the per-step deadline; the caller's context still applies.
	 */
	StepTimeout time.Duration `default:"10s"`
	/**
	 * default: 1, i.e. no re-run. Submit re-runs the workflow from its entry
	 * node while the failing cause is a RetryError and attempts remain.
	 */
	SubmitAttempts int `default:"1"`
	/**
	 * default: true, execution traces are written to the store after each run.
	 */
	PersistTrace bool `default:"true"`
	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// If both MemStore and PostgresConfig are set, PostgresConfig takes precedence
	PostgresConfig *PostgresConfig

	Observers []ExecutionObserver
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"` // disable, require, verify-ca, verify-full
	Table    string `yaml:"table"`
}

type FlowOption func(*FlowOptions)

func WithContext(ctx context.Context) FlowOption {
	return func(opts *FlowOptions) {
		opts.Ctx = ctx
	}
}

func SetMaxConcurrency(concurrency int) FlowOption {
	return func(opts *FlowOptions) {
		opts.MaxConcurrency = concurrency
	}
}

func WithStepTimeout(timeout time.Duration) FlowOption {
	return func(opts *FlowOptions) {
		opts.StepTimeout = timeout
	}
}

func WithSubmitAttempts(attempts int) FlowOption {
	return func(opts *FlowOptions) {
		opts.SubmitAttempts = attempts
	}
}

func DisableTracePersistence() FlowOption {
	return func(opts *FlowOptions) {
		opts.PersistTrace = false
	}
}

func EnableMemStore() FlowOption {
	return func(opts *FlowOptions) {
		opts.MemStore = true
	}
}

func WithPostgresConfig(config *PostgresConfig) FlowOption {
	return func(opts *FlowOptions) {
		opts.PostgresConfig = config
	}
}

func WithObserver(observer ExecutionObserver) FlowOption {
	return func(opts *FlowOptions) {
		opts.Observers = append(opts.Observers, observer)
	}
}
