package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeServer converts a raw configuration tree into a typed
// ServerConfig. The gateway subtree is decoded as well when present, but
// store-overlay reconciliation re-decodes it after merging.
func DecodeServer(raw map[string]any) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := decodeInto(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server configuration: %w", err)
	}
	return &cfg, nil
}

// DecodeGateway converts a raw gateway subtree into a typed
// GatewayConfig.
func DecodeGateway(raw map[string]any) (*GatewayConfig, error) {
	var gw GatewayConfig
	if err := decodeInto(raw, &gw); err != nil {
		return nil, fmt.Errorf("failed to decode gateway configuration: %w", err)
	}
	return &gw, nil
}

// GatewaySubtree extracts the raw gateway subtree from a resolved tree.
// It returns nil when the tree has no gateway section.
func GatewaySubtree(raw map[string]any) map[string]any {
	gw, _ := raw["gateway"].(map[string]any)
	return gw
}

// decodeInto round-trips a raw tree through YAML into a typed value.
// YAML is the lingua franca for both file formats here: JSON-parsed
// trees (with float64 numbers) re-encode to the same scalars.
func decodeInto(raw map[string]any, out any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
