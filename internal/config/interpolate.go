package config

import (
	"os"
	"regexp"
)

// envRefPattern matches ${VAR} environment variable references.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate resolves environment variable references in every
// string-valued leaf of the tree, descending through nested objects and
// sequences. References to unset variables are left as the literal
// ${VAR} token rather than substituted with an empty string, so a
// misconfigured reference stays visible in the resolved configuration.
//
// Non-string leaves and strings without a reference are untouched. The
// input tree is not mutated and the process environment is only read.
func Interpolate(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = interpolateValue(v)
	}
	return out
}

func interpolateValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvRefs(val)
	case map[string]any:
		return Interpolate(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = interpolateValue(item)
		}
		return out
	default:
		return v
	}
}

// expandEnvRefs substitutes every set ${VAR} reference in s.
func expandEnvRefs(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envRefPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}
