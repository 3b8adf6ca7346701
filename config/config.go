package config

import (
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/mcuadros/go-defaults"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/warriorguo/stepflow/steps"
	"github.com/warriorguo/stepflow/types"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "STEPFLOW_"

	StoreNone     = "none"
	StoreMem      = "mem"
	StorePostgres = "postgres"
)

type Config struct {
	Listen          string        `yaml:"listen" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`

	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
	Neto   steps.Config `yaml:"neto"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"text"` // text, json
}

type EngineConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency" default:"64"`
	StepTimeout    time.Duration `yaml:"step_timeout" default:"10s"`
	SubmitAttempts int           `yaml:"submit_attempts" default:"1"`
	PersistTrace   bool          `yaml:"persist_trace" default:"true"`
	// ForgetAfter drops finished background executions from memory.
	ForgetAfter time.Duration `yaml:"forget_after" default:"1h"`
}

type StoreConfig struct {
	Driver   string               `yaml:"driver" default:"mem"` // none, mem, postgres
	DSN      string               `yaml:"dsn"`
	Postgres types.PostgresConfig `yaml:"postgres"`
}

func Default() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads defaults, then the YAML file at path when it is not empty, then
// the environment.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, errors.Annotatef(err, "parse config %s", path)
		}
	}
	if err := c.applyEnv(lookup); err != nil {
		return nil, errors.Trace(err)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return c, nil
}

/**
 * applyEnv lets STEPFLOW_* variables override the file. The unprefixed
 * hostname, user and key variables the storefront credentials were always
 * deployed with are honoured as well, below their STEPFLOW_NETO_* forms.
 */
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(target *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*target = v
				return
			}
		}
	}
	var err error
	duration := func(target *time.Duration, name string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" && err == nil {
			if *target, err = cast.ToDurationE(v); err != nil {
				err = errors.NotValidf("%s%s=%q", EnvPrefix, name, v)
			}
		}
	}
	integer := func(target *int, name string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" && err == nil {
			if *target, err = cast.ToIntE(v); err != nil {
				err = errors.NotValidf("%s%s=%q", EnvPrefix, name, v)
			}
		}
	}
	boolean := func(target *bool, name string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" && err == nil {
			if *target, err = cast.ToBoolE(v); err != nil {
				err = errors.NotValidf("%s%s=%q", EnvPrefix, name, v)
			}
		}
	}

	str(&c.Listen, EnvPrefix+"LISTEN")
	str(&c.Log.Level, EnvPrefix+"LOG_LEVEL")
	str(&c.Log.Format, EnvPrefix+"LOG_FORMAT")
	str(&c.Store.Driver, EnvPrefix+"STORE_DRIVER")
	str(&c.Store.DSN, EnvPrefix+"POSTGRES_DSN")
	str(&c.Neto.Hostname, EnvPrefix+"NETO_HOSTNAME", "hostname")
	str(&c.Neto.User, EnvPrefix+"NETO_USER", "user")
	str(&c.Neto.Key, EnvPrefix+"NETO_KEY", "key")
	str(&c.Neto.BaseURL, EnvPrefix+"NETO_BASE_URL")
	str(&c.Neto.CustomerLabel, EnvPrefix+"CUSTOMER_LABEL")

	duration(&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	duration(&c.Engine.StepTimeout, "STEP_TIMEOUT")
	duration(&c.Engine.ForgetAfter, "FORGET_AFTER")
	duration(&c.Neto.Timeout, "NETO_TIMEOUT")
	integer(&c.Engine.MaxConcurrency, "MAX_CONCURRENCY")
	integer(&c.Engine.SubmitAttempts, "SUBMIT_ATTEMPTS")
	boolean(&c.Engine.PersistTrace, "PERSIST_TRACE")
	return err
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.NotValidf("empty listen address")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NotValidf("log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.NotValidf("log format %q", c.Log.Format)
	}
	if c.Engine.MaxConcurrency < 1 {
		return errors.NotValidf("max_concurrency %d", c.Engine.MaxConcurrency)
	}
	if c.Engine.StepTimeout < 0 {
		return errors.NotValidf("step_timeout %s", c.Engine.StepTimeout)
	}
	if c.Engine.SubmitAttempts < 1 {
		return errors.NotValidf("submit_attempts %d", c.Engine.SubmitAttempts)
	}

	c.Store.Driver = strings.ToLower(c.Store.Driver)
	switch c.Store.Driver {
	case StoreNone, StoreMem:
	case StorePostgres:
		if c.Store.DSN == "" && c.Store.Postgres.Host == "" {
			return errors.NotValidf("postgres store without dsn or host")
		}
	default:
		return errors.NotValidf("store driver %q", c.Store.Driver)
	}
	return errors.Trace(c.Neto.Validate())
}

// FlowOptions turns the engine section into engine options. The store is
// chosen by the caller.
func (c *Config) FlowOptions() []types.FlowOption {
	opts := []types.FlowOption{
		types.SetMaxConcurrency(c.Engine.MaxConcurrency),
		types.WithStepTimeout(c.Engine.StepTimeout),
		types.WithSubmitAttempts(c.Engine.SubmitAttempts),
	}
	if !c.Engine.PersistTrace {
		opts = append(opts, types.DisableTracePersistence())
	}
	return opts
}

// ConfigureLogger applies the log section to the standard logrus logger.
func (c *Config) ConfigureLogger() {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
