package config

import (
	"path/filepath"
	"strings"
)

// ApplyPathDefaults fills the well-known path fields and resolves
// relative values against their anchors, in order:
//
//  1. rootPath absent → directory containing the base config file
//  2. relative rootPath → resolved against the config file directory
//  3. middlewarePath absent → rootPath/middleware
//  4. relative middlewarePath → resolved against rootPath, not against
//     the config file directory
//  5. relative TLS privateKey/cert under gateway.protocol.https →
//     resolved against rootPath
//
// A value is considered relative only when it starts with ".". Absolute
// values and values already defaulted are left untouched. The tree is
// mutated in place.
func ApplyPathDefaults(raw map[string]any, configDir string) {
	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}

	rootPath, ok := stringAt(raw, "rootPath")
	switch {
	case !ok || rootPath == "":
		rootPath = configDir
	case isDotRelative(rootPath):
		rootPath = filepath.Join(configDir, rootPath)
	}
	raw["rootPath"] = rootPath

	middlewarePath, ok := stringAt(raw, "middlewarePath")
	switch {
	case !ok || middlewarePath == "":
		middlewarePath = filepath.Join(rootPath, "middleware")
	case isDotRelative(middlewarePath):
		// Anchored on rootPath, not on the config file directory.
		middlewarePath = filepath.Join(rootPath, middlewarePath)
	}
	raw["middlewarePath"] = middlewarePath

	https := mapAt(raw, "gateway", "protocol", "https")
	if https == nil {
		return
	}
	for _, field := range []string{"privateKey", "cert"} {
		if v, ok := stringAt(https, field); ok && isDotRelative(v) {
			https[field] = filepath.Join(rootPath, v)
		}
	}
}

// isDotRelative reports whether a path value is relative in the sense
// the path defaulter cares about. This is deliberately a "starts with ."
// test rather than general relative-path detection.
func isDotRelative(path string) bool {
	return strings.HasPrefix(path, ".")
}

// stringAt returns the string value at a top-level key.
func stringAt(node map[string]any, key string) (string, bool) {
	v, ok := node[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// mapAt descends through nested map keys, returning nil when any level
// is absent or not a map.
func mapAt(node map[string]any, keys ...string) map[string]any {
	current := node
	for _, key := range keys {
		child, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = child
	}
	return current
}
