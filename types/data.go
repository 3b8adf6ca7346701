package types

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

// Data is the payload carried between steps. A step's output Data is the
// next step's input as-is.
type Data map[string]any

func (d Data) Get(key string) (any, bool) {
	v, exists := d[key]
	return v, exists
}

func (d Data) GetString(key string) (string, bool) {
	v, exists := d.Get(key)
	return cast.ToString(v), exists
}

func (d Data) GetInt(key string) (int, bool) {
	v, exists := d.Get(key)
	return cast.ToInt(v), exists
}

func (d Data) GetFloat64(key string) (float64, bool) {
	v, exists := d.Get(key)
	return cast.ToFloat64(v), exists
}

func (d Data) GetSlice(key string) ([]any, bool) {
	v, exists := d.Get(key)
	if !exists {
		return nil, false
	}
	s, err := cast.ToSliceE(v)
	if err != nil {
		return nil, false
	}
	return s, true
}

// GetStruct decodes the value stored under key into s through its JSON form.
func (d Data) GetStruct(key string, s any) error {
	v, exists := d.Get(key)
	if !exists {
		return errors.NotFoundf("key %q", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Annotatef(err, "marshal %q", key)
	}
	return errors.Trace(json.Unmarshal(b, s))
}

func (d Data) Set(key string, value any) {
	d[key] = value
}

// Clone returns a shallow copy, nil stays nil.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	c := make(Data, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
