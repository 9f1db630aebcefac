package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MergeJSON parses the JSON object held in field and copies its keys into
// dst, overwriting existing keys. An empty value is a no-op. On failure dst is
// left untouched.
func MergeJSON(field string, v any, dst map[string]any) error {
	if isEmpty(v) {
		return nil
	}
	var text []byte
	switch t := v.(type) {
	case string:
		text = []byte(t)
	case map[string]any:
		// Already decoded by the form layer.
		for k, val := range t {
			dst[k] = val
		}
		return nil
	default:
		return &LocalParseError{Field: field, Msg: fmt.Sprintf("expected JSON text, got %T", v)}
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	var parsed map[string]any
	if err := dec.Decode(&parsed); err != nil {
		return &LocalParseError{Field: field, Err: err}
	}
	if dec.More() {
		return &LocalParseError{Field: field, Msg: "unexpected data after JSON object"}
	}
	if parsed == nil {
		return &LocalParseError{Field: field, Msg: "expected a JSON object, got null"}
	}
	for k, val := range parsed {
		dst[k] = val
	}
	return nil
}
