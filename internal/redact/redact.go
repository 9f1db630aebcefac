// Package redact masks credentials in compiled payloads before they are
// logged or echoed to the dashboard.
package redact

import (
	"strings"

	"github.com/af-corp/aegis-admin/internal/compiler"
)

const mask = "****"

// Redactor masks credential keys and secret-looking values.
type Redactor struct {
	patterns []Pattern
}

// New creates a redactor with the default secret patterns.
func New() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// Detect returns the names of patterns found in text.
func (r *Redactor) Detect(text string) []string {
	var names []string
	for _, p := range r.patterns {
		if p.Regex.MatchString(text) {
			names = append(names, p.Name)
		}
	}
	return names
}

// Request returns a copy of req with secrets masked. req is not modified.
func (r *Redactor) Request(req compiler.CompiledRequest) compiler.CompiledRequest {
	return compiler.CompiledRequest{
		Name:       req.Name,
		Connection: compiler.ConnectionParameters(r.Map(req.Connection)),
		Metadata:   compiler.ModelMetadata(r.Map(req.Metadata)),
	}
}

// Requests masks every request in reqs.
func (r *Redactor) Requests(reqs []compiler.CompiledRequest) []compiler.CompiledRequest {
	out := make([]compiler.CompiledRequest, len(reqs))
	for i, req := range reqs {
		out[i] = r.Request(req)
	}
	return out
}

// Map returns a deep copy of m with credential keys and secret values masked.
func (r *Redactor) Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if credentialKeys[strings.ToLower(k)] && v != nil && v != "" {
			out[k] = maskValue(v)
			continue
		}
		out[k] = r.value(v)
	}
	return out
}

func (r *Redactor) value(v any) any {
	switch t := v.(type) {
	case string:
		return r.String(t)
	case map[string]any:
		return r.Map(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.value(item)
		}
		return out
	default:
		return v
	}
}

// String replaces every secret match in s with a mask.
func (r *Redactor) String(s string) string {
	for _, p := range r.patterns {
		s = p.Regex.ReplaceAllStringFunc(s, func(match string) string {
			return maskString(match)
		})
	}
	return s
}

func maskValue(v any) any {
	if s, ok := v.(string); ok {
		return maskString(s)
	}
	return mask
}

// maskString keeps a short prefix of long values so operators can tell keys apart.
func maskString(s string) string {
	if len(s) <= 12 {
		return mask
	}
	return s[:4] + mask
}
