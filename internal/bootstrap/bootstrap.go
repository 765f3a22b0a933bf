// Package bootstrap produces a brand-new default configuration on first
// run, when no configuration file exists in any format. It loads a
// packaged template, collects the store connection topology
// interactively, and persists the assembled file so that subsequent
// loads skip this stage entirely.
package bootstrap

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avtreegw/internal/config"
	"github.com/vyrodovalexey/avtreegw/internal/observability"
	"github.com/vyrodovalexey/avtreegw/internal/util"
)

//go:embed templates/tree-gateway.yml templates/gateway.yml
var templates embed.FS

// Provider assembles and persists a first-run configuration.
type Provider struct {
	prompter Prompter
	logger   observability.Logger
}

// NewProvider creates a bootstrap provider.
func NewProvider(prompter Prompter, logger observability.Logger) *Provider {
	return &Provider{prompter: prompter, logger: logger}
}

// Run produces a new base configuration: it loads the packaged server
// template, collects the store connection parameters, writes the result
// as <basePath>.yml, and returns the assembled raw tree together with
// the path of the written file. Any prompt or write failure is a
// BootstrapError, fatal to the initial load.
func (p *Provider) Run(basePath string) (map[string]any, string, error) {
	raw, err := loadTemplate("templates/tree-gateway.yml")
	if err != nil {
		return nil, "", util.NewBootstrapError("template load", err)
	}

	answers, err := p.prompter.CollectDatabase()
	if err != nil {
		return nil, "", util.NewBootstrapError("database prompt", err)
	}

	redis, err := redisSubtree(answers)
	if err != nil {
		return nil, "", util.NewBootstrapError("database prompt", err)
	}
	raw["database"] = map[string]any{"redis": redis}

	target := config.StripKnownExtension(basePath) + ".yml"
	if err := config.SaveFile(raw, target); err != nil {
		return nil, "", util.NewBootstrapError("config write", err)
	}

	p.logger.Info("bootstrapped new configuration file",
		observability.String("path", target),
		observability.String("topology", answers.Topology))

	return raw, target, nil
}

// redisSubtree builds the database.redis subtree from the collected
// answers. A cluster topology always produces a one-element array, even
// though only one node is collected here; operators may add more nodes
// to the file later.
func redisSubtree(answers *DatabaseAnswers) (map[string]any, error) {
	endpoint := map[string]any{
		"host": answers.Host,
		"port": answers.Port,
	}

	options := map[string]any{}
	if answers.DB != 0 {
		options["db"] = answers.DB
	}
	if answers.Password != "" {
		options["password"] = answers.Password
	}

	redis := map[string]any{}
	switch answers.Topology {
	case TopologyStandalone:
		redis["standalone"] = endpoint
	case TopologyCluster:
		redis["cluster"] = []any{endpoint}
	default:
		return nil, fmt.Errorf("unknown topology %q", answers.Topology)
	}

	if len(options) > 0 {
		redis["options"] = options
	}
	return redis, nil
}

// DefaultGateway returns the packaged default gateway configuration
// tree. The store overlay synthesizes the initial stored value from it
// when neither a stored nor a local gateway configuration exists.
func DefaultGateway() (map[string]any, error) {
	return loadTemplate("templates/gateway.yml")
}

func loadTemplate(name string) (map[string]any, error) {
	data, err := templates.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read packaged template %s: %w", name, err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse packaged template %s: %w", name, err)
	}
	return raw, nil
}
