package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avtreegw/internal/util"
)

// formatExtensions is the fixed probe order for configuration files.
var formatExtensions = []string{".yml", ".yaml", ".json"}

// StripKnownExtension removes a trailing .yml, .yaml, or .json extension
// so that callers can pass either "tree-gateway" or "tree-gateway.yaml".
func StripKnownExtension(path string) string {
	ext := filepath.Ext(path)
	for _, known := range formatExtensions {
		if ext == known {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

// LoadFile locates and parses a configuration file. It probes, in order,
// <path>.yml, <path>.yaml, and <path>.json and parses the first file that
// exists into a raw tree. When no file exists in any format it returns
// util.ErrFileAbsent. Malformed content is a fatal parse error; there is
// no fallback to the next extension once a file is found.
func LoadFile(path string) (map[string]any, string, error) {
	base := StripKnownExtension(path)

	for _, ext := range formatExtensions {
		candidate := base + ext
		info, err := os.Stat(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", fmt.Errorf("failed to stat config file %s: %w", candidate, err)
		}
		if info.IsDir() {
			continue
		}

		raw, err := parseFile(candidate, ext)
		if err != nil {
			return nil, "", err
		}
		return raw, candidate, nil
	}

	return nil, "", fmt.Errorf("no config file found for %s: %w", base, util.ErrFileAbsent)
}

// parseFile reads and parses a single configuration file.
func parseFile(path, ext string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	raw := make(map[string]any)
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, util.NewParseError(path, "json", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, util.NewParseError(path, "yaml", err)
		}
	}

	return raw, nil
}

// LoadLayered loads the base configuration file and, when environment is
// non-empty, the <base>-<environment> overlay. Overlay keys take
// precedence; keys absent from the overlay fall back to the base value,
// recursively. The returned path is the base file the configuration was
// resolved from (the overlay file when no base exists).
//
// util.ErrFileAbsent is returned only when neither the base nor the
// overlay file exists; callers fall through to bootstrap in that case.
func LoadLayered(path, environment string) (map[string]any, string, error) {
	base, basePath, err := LoadFile(path)
	if err != nil && !isAbsent(err) {
		return nil, "", err
	}
	baseFound := err == nil

	if environment == "" {
		if !baseFound {
			return nil, "", err
		}
		return base, basePath, nil
	}

	overlayName := StripKnownExtension(path) + "-" + environment
	overlay, overlayPath, err := LoadFile(overlayName)
	if err != nil {
		if !isAbsent(err) {
			return nil, "", err
		}
		if !baseFound {
			return nil, "", fmt.Errorf("no config file found for %s: %w",
				StripKnownExtension(path), util.ErrFileAbsent)
		}
		return base, basePath, nil
	}

	if !baseFound {
		return overlay, overlayPath, nil
	}

	merged, err := Merge(base, overlay)
	if err != nil {
		return nil, "", fmt.Errorf("failed to merge environment overlay %s: %w", overlayPath, err)
	}
	return merged, basePath, nil
}

// SaveFile writes a raw configuration tree as YAML.
func SaveFile(raw map[string]any, path string) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil { //nolint:gosec // config files need broader read permissions
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func isAbsent(err error) bool {
	return errors.Is(err, util.ErrFileAbsent)
}
