package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// tokensPerPriceUnit is the number of tokens the form's per-token prices are quoted for.
const tokensPerPriceUnit = 1_000_000

var perTokenPriceFields = []string{FieldInputCostPerToken, FieldOutputCostPerToken}

// NormalizePricing converts the per-million-token prices in raw to per-token
// numbers, in place. input_cost_per_second is left untouched and absent fields
// stay absent.
//
// It is not idempotent: a second call divides again.
func NormalizePricing(raw *RawConfiguration) error {
	for _, field := range perTokenPriceFields {
		v, ok := raw.Get(field)
		if !ok || isEmpty(v) {
			continue
		}
		n, err := toNumber(v)
		if err != nil {
			return &LocalParseError{Field: field, Err: err}
		}
		raw.Set(field, n/tokensPerPriceUnit)
	}
	return nil
}

// toNumber converts a numeric form value to a finite float64. A blank string
// counts as zero.
func toNumber(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", v)
	}
	return f, nil
}
