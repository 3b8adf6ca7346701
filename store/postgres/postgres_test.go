package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/stepflow/store"
)

// getTestConfig reads POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER,
// POSTGRES_PASSWORD and POSTGRES_DB on top of the defaults.
func getTestConfig() *Config {
	config := DefaultConfig()
	config.Table = "stepflow_trace_test"
	config.ConnectTimeout = time.Second

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		config.Host = host
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		config.User = user
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		config.Password = password
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		config.Database = db
	}
	return config
}

func skipIfNoPostgres(t *testing.T) store.Store {
	s, err := NewPostgresStore(getTestConfig())
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
		return nil
	}
	t.Cleanup(func() {
		if closer, ok := s.(interface{ Close() error }); ok {
			closer.Close()
		}
	})
	return s
}

func TestPostgresStore_SetGetRemove(t *testing.T) {
	s := skipIfNoPostgres(t)
	ctx := context.Background()

	require.Nil(t, s.Set(ctx, "/trace/", "exec-1", []byte(`{"a":1}`)))
	value, err := s.Get(ctx, "/trace/", "exec-1")
	assert.Nil(t, err)
	assert.Equal(t, []byte(`{"a":1}`), value)

	require.Nil(t, s.Set(ctx, "/trace/", "exec-1", []byte(`{"a":2}`)))
	value, err = s.Get(ctx, "/trace/", "exec-1")
	assert.Nil(t, err)
	assert.Equal(t, []byte(`{"a":2}`), value)

	value, err = s.Get(ctx, "/trace/", "non-existent")
	assert.Nil(t, err)
	assert.Nil(t, value)

	assert.Nil(t, s.Remove(ctx, "/trace/", "exec-1"))
	assert.Nil(t, s.Remove(ctx, "/trace/", "exec-1"))
	value, err = s.Get(ctx, "/trace/", "exec-1")
	assert.Nil(t, err)
	assert.Nil(t, value)
}

func TestPostgresStore_List(t *testing.T) {
	s := skipIfNoPostgres(t)
	ctx := context.Background()

	for _, key := range []string{"k2", "k1", "k3"} {
		require.Nil(t, s.Set(ctx, "/list-test/", key, []byte(key)))
	}
	defer func() {
		for _, key := range []string{"k1", "k2", "k3"} {
			s.Remove(ctx, "/list-test/", key)
		}
	}()

	keys := make([]string, 0)
	assert.Nil(t, s.List(ctx, "/list-test/", func(key string) bool {
		keys = append(keys, key)
		return len(keys) < 2
	}))
	assert.Equal(t, []string{"k1", "k2"}, keys)
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	c.SSLMode = ""
	c.Table = ""
	assert.Nil(t, c.Validate())
	assert.Equal(t, "disable", c.SSLMode)
	assert.Equal(t, DefaultTable, c.Table)

	for _, mutate := range []func(*Config){
		func(c *Config) { c.Host = "" },
		func(c *Config) { c.Port = 0 },
		func(c *Config) { c.Port = 70000 },
		func(c *Config) { c.User = "" },
		func(c *Config) { c.Database = "" },
		func(c *Config) { c.SSLMode = "sometimes" },
		func(c *Config) { c.Table = "traces; DROP TABLE x" },
	} {
		c := DefaultConfig()
		mutate(c)
		assert.NotNil(t, c.Validate())
	}
}

func TestParseDSN(t *testing.T) {
	c, err := ParseDSN("host=db port=6543 user=svc password=secret dbname=orders sslmode=require table=traces")
	require.Nil(t, err)
	assert.Equal(t, "db", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, "svc", c.User)
	assert.Equal(t, "secret", c.Password)
	assert.Equal(t, "orders", c.Database)
	assert.Equal(t, "require", c.SSLMode)
	assert.Equal(t, "traces", c.Table)

	_, err = ParseDSN("host=db port=abc")
	assert.NotNil(t, err)

	_, err = ParseDSN("sslmode=bogus")
	assert.NotNil(t, err)
}

func TestDSN(t *testing.T) {
	c := DefaultConfig()
	c.ConnectTimeout = 0
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=stepflow sslmode=disable", c.DSN())

	c.ConnectTimeout = 200 * time.Millisecond
	assert.Contains(t, c.DSN(), "connect_timeout=1")
}
