// Package compiler turns the dashboard's add-model form values into model-create
// payloads for the proxy backend.
//
// A compile runs: wildcard expansion, pricing normalization (once), then for
// every model mapping a fresh pair of output buckets filled by the field
// routing table and the embedded-JSON merge.
package compiler

// Compiler compiles form values against a provider table. It holds no mutable
// state and is safe for concurrent use.
type Compiler struct {
	providers ProviderTable
}

// New returns a Compiler that resolves provider names through providers.
func New(providers ProviderTable) *Compiler {
	return &Compiler{providers: providers}
}

// Compile returns one CompiledRequest per model mapping, in mapping order. raw
// is not modified. On any error no request is returned.
func (c *Compiler) Compile(raw *RawConfiguration) ([]CompiledRequest, error) {
	if raw == nil {
		return []CompiledRequest{}, nil
	}
	cfg := raw.Clone()

	mappings, err := ExpandMappings(cfg, c.providers)
	if err != nil {
		return nil, err
	}
	if err := NormalizePricing(cfg); err != nil {
		return nil, err
	}

	out := make([]CompiledRequest, 0, len(mappings))
	for _, m := range mappings {
		req, err := c.assemble(cfg, m)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// assemble builds the request for one mapping from fresh buckets.
func (c *Compiler) assemble(cfg *RawConfiguration, m ModelMapping) (CompiledRequest, error) {
	conn := ConnectionParameters{FieldModel: m.BackingModel}
	meta := ModelMetadata{}
	if err := routeFields(cfg, c.providers, conn, meta); err != nil {
		return CompiledRequest{}, err
	}
	return CompiledRequest{
		Name:       m.PublicName,
		Connection: conn,
		Metadata:   meta,
	}, nil
}
