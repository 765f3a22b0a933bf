package config

// arrayPaths is the fixed set of dotted field paths whose values users
// may write as a bare scalar instead of a one-element list. A "*"
// element matches every key of the map at that position, which covers
// the cache and cors maps keyed by arbitrary user-chosen names.
var arrayPaths = [][]string{
	{"database", "redis", "cluster"},
	{"database", "redis", "sentinel", "nodes"},
	{"gateway", "filter"},
	{"gateway", "admin", "filter"},
	{"gateway", "serviceDiscovery", "provider"},
	{"gateway", "logger", "console", "stderrLevels"},
	{"gateway", "accessLogger", "console", "stderrLevels"},
	{"gateway", "cache", "*", "preserveHeaders"},
	{"gateway", "cors", "*", "allowedHeaders"},
	{"gateway", "cors", "*", "exposedHeaders"},
	{"gateway", "cors", "*", "methods"},
}

// NormalizeArrays coerces a present scalar value at each designated path
// into a one-element sequence. Values that are already sequences and
// paths that do not exist are left untouched, which makes the operation
// idempotent. The tree is mutated in place.
func NormalizeArrays(raw map[string]any) {
	for _, path := range arrayPaths {
		normalizePath(raw, path)
	}
}

func normalizePath(node map[string]any, path []string) {
	if node == nil || len(path) == 0 {
		return
	}

	key := path[0]
	if key == "*" {
		for _, v := range node {
			if child, ok := v.(map[string]any); ok {
				normalizePath(child, path[1:])
			}
		}
		return
	}

	if len(path) == 1 {
		v, ok := node[key]
		if !ok {
			return
		}
		if _, isSequence := v.([]any); isSequence {
			return
		}
		node[key] = []any{v}
		return
	}

	child, ok := node[key].(map[string]any)
	if !ok {
		return
	}
	normalizePath(child, path[1:])
}
