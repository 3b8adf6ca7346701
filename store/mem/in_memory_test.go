package mem

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	value, err := s.Get(ctx, "/trace/", "missing")
	assert.Nil(t, err)
	assert.Nil(t, value)

	assert.Nil(t, s.Set(ctx, "/trace/", "b", []byte("2")))
	assert.Nil(t, s.Set(ctx, "/trace/", "a", []byte("1")))
	assert.Nil(t, s.Set(ctx, "/other/", "c", []byte("3")))

	value, err = s.Get(ctx, "/trace/", "a")
	assert.Nil(t, err)
	assert.Equal(t, []byte("1"), value)

	keys := make([]string, 0)
	assert.Nil(t, s.List(ctx, "/trace/", func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Equal(t, []string{"a", "b"}, keys)

	keys = keys[:0]
	assert.Nil(t, s.List(ctx, "/trace/", func(key string) bool {
		keys = append(keys, key)
		return false
	}))
	assert.Equal(t, []string{"a"}, keys)

	assert.Nil(t, s.Remove(ctx, "/trace/", "a"))
	assert.Nil(t, s.Remove(ctx, "/trace/", "a"))
	value, err = s.Get(ctx, "/trace/", "a")
	assert.Nil(t, err)
	assert.Nil(t, value)
}

func TestMemStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	buf := []byte("abc")
	assert.Nil(t, s.Set(ctx, "/p/", "k", buf))
	buf[0] = 'x'

	value, _ := s.Get(ctx, "/p/", "k")
	assert.Equal(t, []byte("abc"), value)
}

func TestMemStoreErrHandler(t *testing.T) {
	ctx := context.Background()
	var injected error
	s := NewMemStoreWithErrHandler(func() error { return injected })

	assert.Nil(t, s.Set(ctx, "/p/", "k", []byte("v")))

	injected = errors.New("disk on fire")
	assert.NotNil(t, s.Set(ctx, "/p/", "k2", []byte("v")))
	_, err := s.Get(ctx, "/p/", "k")
	assert.NotNil(t, err)
	assert.NotNil(t, s.List(ctx, "/p/", func(string) bool { return true }))

	injected = nil
	value, err := s.Get(ctx, "/p/", "k2")
	assert.Nil(t, err)
	assert.Nil(t, value)
}
