package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyPathDefaultsAbsentValues(t *testing.T) {
	configDir := filepath.Join(string(filepath.Separator), "etc", "gateway")
	raw := map[string]any{}

	ApplyPathDefaults(raw, configDir)

	assert.Equal(t, configDir, raw["rootPath"])
	assert.Equal(t, filepath.Join(configDir, "middleware"), raw["middlewarePath"])
}

func TestApplyPathDefaultsRelativeRootPath(t *testing.T) {
	configDir := filepath.Join(string(filepath.Separator), "etc", "gateway")
	raw := map[string]any{"rootPath": "./data"}

	ApplyPathDefaults(raw, configDir)

	assert.Equal(t, filepath.Join(configDir, "data"), raw["rootPath"])
}

// Relative rootPath resolves against the config file directory while
// relative middlewarePath resolves against rootPath. The same-looking
// relative string must produce different absolute results when the two
// anchors differ.
func TestPathAnchorsAreDistinct(t *testing.T) {
	configDir := filepath.Join(string(filepath.Separator), "etc", "gateway")
	raw := map[string]any{
		"rootPath":       "./nested",
		"middlewarePath": "./nested",
	}

	ApplyPathDefaults(raw, configDir)

	rootPath := raw["rootPath"].(string)
	middlewarePath := raw["middlewarePath"].(string)

	assert.Equal(t, filepath.Join(configDir, "nested"), rootPath)
	assert.Equal(t, filepath.Join(configDir, "nested", "nested"), middlewarePath)
	assert.NotEqual(t, rootPath, middlewarePath)
}

func TestApplyPathDefaultsAbsoluteValuesUntouched(t *testing.T) {
	raw := map[string]any{
		"rootPath":       "/srv/root",
		"middlewarePath": "/srv/mw",
	}

	ApplyPathDefaults(raw, "/etc/gateway")

	assert.Equal(t, "/srv/root", raw["rootPath"])
	assert.Equal(t, "/srv/mw", raw["middlewarePath"])
}

func TestApplyPathDefaultsTLSPaths(t *testing.T) {
	raw := map[string]any{
		"rootPath": "/srv/root",
		"gateway": map[string]any{
			"protocol": map[string]any{
				"https": map[string]any{
					"listenPort": 8443,
					"privateKey": "./certs/key.pem",
					"cert":       "/abs/cert.pem",
				},
			},
		},
	}

	ApplyPathDefaults(raw, "/etc/gateway")

	https := raw["gateway"].(map[string]any)["protocol"].(map[string]any)["https"].(map[string]any)
	assert.Equal(t, filepath.Join("/srv/root", "certs", "key.pem"), https["privateKey"])
	assert.Equal(t, "/abs/cert.pem", https["cert"], "absolute cert path untouched")
}

func TestApplyPathDefaultsNoGatewaySection(t *testing.T) {
	raw := map[string]any{"rootPath": "/srv/root"}
	assert.NotPanics(t, func() {
		ApplyPathDefaults(raw, "/etc/gateway")
	})
}
