package compiler

import "fmt"

type target int

const (
	toConnection target = iota
	toMetadata
	mergeIntoConnection
	mergeIntoMetadata
	drop
)

// phase orders placements that write the same output slot. Placements run
// phase by phase, so the outcome does not depend on form key order.
type phase int

const (
	phaseFields phase = iota
	phaseMerge
	phaseModelName
	phaseCustomModelName
	numPhases
)

// transform rewrites a value before placement. keep=false omits the field.
type transform func(table ProviderTable, field string, v any) (out any, keep bool, err error)

type route struct {
	target    target
	key       string // output key; defaults to the field name
	phase     phase
	transform transform
}

// routes maps form fields to their output slot. Fields not listed go to the
// connection parameters verbatim.
var routes = map[string]route{
	FieldModelName:       {target: toConnection, key: FieldModel, phase: phaseModelName},
	FieldCustomProvider:  {target: toConnection, transform: resolveProvider},
	FieldModel:           {target: drop},
	FieldModelMappings:   {target: drop},
	FieldCustomPricing:   {target: drop},
	FieldPricingModel:    {target: drop},
	FieldBaseModel:       {target: toMetadata},
	FieldTeamID:          {target: toMetadata},
	FieldMode:            {target: toMetadata},
	FieldCustomModelName: {target: toConnection, key: FieldModel, phase: phaseCustomModelName},
	FieldExtraParams:     {target: mergeIntoConnection, phase: phaseMerge},
	FieldModelInfoParams: {target: mergeIntoMetadata, phase: phaseMerge},

	FieldInputCostPerToken:  {target: toConnection, transform: price},
	FieldOutputCostPerToken: {target: toConnection, transform: price},
	FieldInputCostPerSecond: {target: toConnection, transform: price},
}

var defaultRoute = route{target: toConnection}

// RouteOf returns the routing decision for a form field, for display and tests.
func RouteOf(field string) (bucket string, key string) {
	r, ok := routes[field]
	if !ok {
		r = defaultRoute
	}
	key = r.key
	if key == "" {
		key = field
	}
	switch r.target {
	case toConnection, mergeIntoConnection:
		return "llm_params", key
	case toMetadata, mergeIntoMetadata:
		return "model_info", key
	default:
		return "", ""
	}
}

type placement struct {
	field string
	value any
	route route
}

// routeFields places every non-empty field of raw into conn or meta.
func routeFields(raw *RawConfiguration, table ProviderTable, conn ConnectionParameters, meta ModelMetadata) error {
	var byPhase [numPhases][]placement
	for _, field := range raw.Keys() {
		v, _ := raw.Get(field)
		if isEmpty(v) {
			continue
		}
		r, ok := routes[field]
		if !ok {
			r = defaultRoute
		}
		if r.target == drop {
			continue
		}
		byPhase[r.phase] = append(byPhase[r.phase], placement{field: field, value: v, route: r})
	}

	for _, placements := range byPhase {
		for _, p := range placements {
			if err := p.apply(table, conn, meta); err != nil {
				return err
			}
		}
	}

	// mode is metadata only, even when it arrives through extra params.
	if m, ok := conn[FieldMode]; ok {
		delete(conn, FieldMode)
		if _, set := meta[FieldMode]; !set {
			meta[FieldMode] = m
		}
	}
	return nil
}

func (p placement) apply(table ProviderTable, conn ConnectionParameters, meta ModelMetadata) error {
	r := p.route
	switch r.target {
	case mergeIntoConnection:
		return MergeJSON(p.field, p.value, conn)
	case mergeIntoMetadata:
		return MergeJSON(p.field, p.value, meta)
	}

	v := p.value
	if r.transform != nil {
		out, keep, err := r.transform(table, p.field, v)
		if err != nil {
			return err
		}
		if !keep {
			return nil
		}
		v = out
	}

	key := r.key
	if key == "" {
		key = p.field
	}
	if r.target == toMetadata {
		meta[key] = v
	} else {
		conn[key] = v
	}
	return nil
}

func resolveProvider(table ProviderTable, field string, v any) (any, bool, error) {
	name := fmt.Sprint(v)
	token, ok := table.Resolve(name)
	if !ok {
		return nil, false, &UnresolvedProviderError{Field: field, Provider: name}
	}
	return token, true, nil
}

// price copies pricing fields as numbers; zero counts as unset.
func price(_ ProviderTable, field string, v any) (any, bool, error) {
	n, err := toNumber(v)
	if err != nil {
		return nil, false, &LocalParseError{Field: field, Err: err}
	}
	if n == 0 {
		return nil, false, nil
	}
	return n, true, nil
}
