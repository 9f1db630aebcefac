package compiler

import "fmt"

// IsWildcard reports whether the model selection holds the wildcard sentinel.
// The selection is either a single string or a multi-select list.
func IsWildcard(v any) bool {
	switch sel := v.(type) {
	case string:
		return sel == WildcardSentinel
	case []string:
		for _, s := range sel {
			if s == WildcardSentinel {
				return true
			}
		}
	case []any:
		for _, s := range sel {
			if s == WildcardSentinel {
				return true
			}
		}
	}
	return false
}

// ExpandMappings consumes the explicit mapping list from raw and returns the
// mappings to assemble. When the model selection holds the wildcard sentinel a
// "<provider-token>/*" mapping is appended after the explicit ones and raw's
// model field is overwritten with that string.
func ExpandMappings(raw *RawConfiguration, table ProviderTable) ([]ModelMapping, error) {
	explicit, err := takeMappings(raw)
	if err != nil {
		return nil, err
	}

	sel, _ := raw.Get(FieldModel)
	if !IsWildcard(sel) {
		return explicit, nil
	}

	provider, _ := raw.Get(FieldCustomProvider)
	name := fmt.Sprint(provider)
	if provider == nil {
		name = ""
	}
	token, ok := table.Resolve(name)
	if !ok {
		return nil, &UnresolvedProviderError{Field: FieldCustomProvider, Provider: name}
	}

	wildcard := token + "/*"
	raw.Set(FieldModel, wildcard)
	return append(explicit, ModelMapping{PublicName: wildcard, BackingModel: wildcard}), nil
}

// takeMappings removes the model_mappings field from raw and decodes it.
func takeMappings(raw *RawConfiguration) ([]ModelMapping, error) {
	v, ok := raw.Get(FieldModelMappings)
	if !ok {
		return nil, nil
	}
	raw.Delete(FieldModelMappings)

	switch list := v.(type) {
	case nil:
		return nil, nil
	case []ModelMapping:
		out := make([]ModelMapping, len(list))
		copy(out, list)
		return out, nil
	case []any:
		out := make([]ModelMapping, 0, len(list))
		for i, item := range list {
			m, err := decodeMapping(item)
			if err != nil {
				return nil, &LocalParseError{Field: FieldModelMappings, Msg: fmt.Sprintf("entry %d: %v", i, err)}
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, &LocalParseError{Field: FieldModelMappings, Msg: fmt.Sprintf("expected a list, got %T", v)}
	}
}

func decodeMapping(item any) (ModelMapping, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return ModelMapping{}, fmt.Errorf("expected an object, got %T", item)
	}
	public, ok := obj["public_name"].(string)
	if !ok || public == "" {
		return ModelMapping{}, fmt.Errorf("public_name must be a non-empty string")
	}
	backing, ok := obj["llm_model"].(string)
	if !ok || backing == "" {
		return ModelMapping{}, fmt.Errorf("llm_model must be a non-empty string")
	}
	return ModelMapping{PublicName: public, BackingModel: backing}, nil
}
