package compiler

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// RawConfiguration is the ordered set of form values submitted by the dashboard.
// Keys are not known statically; Keys returns them in insertion order.
type RawConfiguration struct {
	keys   []string
	values map[string]any
}

// NewRawConfiguration returns an empty configuration.
func NewRawConfiguration() *RawConfiguration {
	return &RawConfiguration{values: make(map[string]any)}
}

// ParseRawConfiguration decodes a JSON object into a RawConfiguration, keeping
// document key order. Numbers decode as float64, nested objects as map[string]any.
func ParseRawConfiguration(data []byte) (*RawConfiguration, error) {
	if !gjson.ValidBytes(data) {
		return nil, &LocalParseError{Msg: "invalid JSON document"}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, &LocalParseError{Msg: fmt.Sprintf("expected a JSON object, got %s", doc.Type)}
	}
	raw := NewRawConfiguration()
	doc.ForEach(func(key, value gjson.Result) bool {
		raw.Set(key.String(), value.Value())
		return true
	})
	return raw, nil
}

// Set stores v under key. A new key is appended; an existing key keeps its position.
func (r *RawConfiguration) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *RawConfiguration) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Delete removes key, preserving the order of the remaining keys.
func (r *RawConfiguration) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (r *RawConfiguration) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r *RawConfiguration) Len() int { return len(r.keys) }

// Clone returns a shallow copy. Values are shared, the key set is not.
func (r *RawConfiguration) Clone() *RawConfiguration {
	c := &RawConfiguration{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// isEmpty reports whether a form value counts as "not provided".
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
