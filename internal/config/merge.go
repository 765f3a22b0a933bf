package config

import (
	"fmt"

	"dario.cat/mergo"
)

// Merge returns a new tree in which every key present in overlay takes
// precedence and keys absent from the overlay fall back to the base
// value, recursively for nested objects. Neither input is mutated.
//
// The same function serves both overlay directions: the environment
// overlay calls Merge(base, overlay) and the store overlay calls
// Merge(local, stored), so stored keys win there.
func Merge(base, overlay map[string]any) (map[string]any, error) {
	out := DeepCopy(base)
	if err := mergo.Merge(&out, DeepCopy(overlay), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config trees: %w", err)
	}
	return out, nil
}

// DeepCopy returns a structural copy of a raw configuration tree. Nested
// maps and sequences are copied; scalar leaves are shared.
func DeepCopy(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopy(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
