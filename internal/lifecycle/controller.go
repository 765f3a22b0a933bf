package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/vyrodovalexey/avtreegw/internal/bootstrap"
	"github.com/vyrodovalexey/avtreegw/internal/config"
	"github.com/vyrodovalexey/avtreegw/internal/observability"
	"github.com/vyrodovalexey/avtreegw/internal/store"
	"github.com/vyrodovalexey/avtreegw/internal/util"
)

// DefaultConfigPath is the base configuration file name probed when no
// explicit path is given, relative to the working directory and without
// extension.
const DefaultConfigPath = "tree-gateway"

// StoreFactory builds a ConfigStore from resolved database parameters.
// The default factory connects to Redis; tests inject factories bound to
// an in-process server.
type StoreFactory func(*config.DatabaseConfig) (store.ConfigStore, error)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithEnvironment sets the deployment environment name used for the
// <base>-<environment> overlay file.
func WithEnvironment(environment string) Option {
	return func(c *Controller) { c.environment = environment }
}

// WithStoreFactory overrides how the configuration store is
// constructed.
func WithStoreFactory(factory StoreFactory) Option {
	return func(c *Controller) { c.storeFactory = factory }
}

// WithPrompter overrides the interactive prompter used by first-run
// bootstrap.
func WithPrompter(prompter bootstrap.Prompter) Option {
	return func(c *Controller) { c.prompter = prompter }
}

// Controller owns the single in-memory ServerConfig instance and drives
// the resolution pipeline. It is the only component with external state;
// consumers receive read-only snapshots.
//
// Construction never triggers a load: callers invoke Load explicitly and
// either subscribe to events or, for reloads, handle the returned error.
type Controller struct {
	path        string
	environment string
	logger      observability.Logger

	storeFactory StoreFactory
	prompter     bootstrap.Prompter

	// pipelineMu serializes Load and Reload so that overlapping calls
	// can never observe or clobber an in-flight resolution.
	pipelineMu sync.Mutex

	mu           sync.RWMutex
	state        LoadState
	cfg          *config.ServerConfig
	resolvedPath string

	cbMu        sync.Mutex
	loadSubs    []func(*config.ServerConfig)
	errorSubs   []func(error)
	gatewaySubs []func(*config.GatewayConfig)
}

// New creates a Controller for the given base configuration path (with
// or without extension).
func New(path string, opts ...Option) *Controller {
	if path == "" {
		path = DefaultConfigPath
	}

	c := &Controller{
		path:   path,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.storeFactory == nil {
		c.storeFactory = func(db *config.DatabaseConfig) (store.ConfigStore, error) {
			return store.NewRedisStore(db, c.logger)
		}
	}
	if c.prompter == nil {
		c.prompter = bootstrap.NewTerminalPrompter()
	}
	return c
}

// OnLoad subscribes to successful initial loads. The callback receives
// the resolved configuration snapshot.
func (c *Controller) OnLoad(fn func(*config.ServerConfig)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.loadSubs = append(c.loadSubs, fn)
}

// OnError subscribes to load failures. Initial-load failures are
// delivered here only; they are never returned from Load.
func (c *Controller) OnError(fn func(error)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.errorSubs = append(c.errorSubs, fn)
}

// OnGatewayUpdate subscribes to reload results. The callback receives
// only the new gateway subtree, for live-reload consumers.
func (c *Controller) OnGatewayUpdate(fn func(*config.GatewayConfig)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.gatewaySubs = append(c.gatewaySubs, fn)
}

// State returns the current lifecycle state.
func (c *Controller) State() LoadState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Config returns the resolved configuration snapshot. It is valid only
// while the controller is in StateLoaded.
func (c *Controller) Config() *config.ServerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Gateway returns the resolved gateway subtree, or nil before a
// successful load.
func (c *Controller) Gateway() *config.GatewayConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		return nil
	}
	return c.cfg.Gateway
}

// ResolvedPath returns the path of the base configuration file the
// current configuration was resolved from.
func (c *Controller) ResolvedPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolvedPath
}

// Load resolves the configuration once. It is idempotent: when the
// controller is already loaded it returns immediately without re-running
// the pipeline. After a failure the state is StateErrored and a later
// Load retries.
//
// Initial load is fire-and-subscribe by design: failures are converted
// into an error notification for OnError subscribers instead of being
// returned, while Reload reports its failure synchronously to the
// caller. Callers of Load must therefore not assume synchronous failure
// reporting.
func (c *Controller) Load(ctx context.Context) {
	c.pipelineMu.Lock()
	defer c.pipelineMu.Unlock()

	if c.State() == StateLoaded {
		return
	}
	c.setState(StateLoading)

	cfg, resolvedPath, err := c.resolve(ctx)
	if err != nil {
		c.setState(StateErrored)
		c.logger.Error("configuration load failed", observability.Error(err))
		c.emitError(err)
		return
	}

	c.install(cfg, resolvedPath)
	c.logger.Info("configuration loaded",
		observability.String("path", resolvedPath),
		observability.String("environment", c.environment))
	c.emitLoad(cfg)
}

// Reload forces a full re-resolution regardless of the current state and
// returns the failure, if any, to the caller. The previous configuration
// stays in place until the new value is fully computed and validated, so
// a failed reload never leaves partially-applied state; on failure the
// previous state and configuration are restored.
func (c *Controller) Reload(ctx context.Context) error {
	c.pipelineMu.Lock()
	defer c.pipelineMu.Unlock()

	previous := c.State()
	c.setState(StateLoading)

	cfg, resolvedPath, err := c.resolve(ctx)
	if err != nil {
		c.setState(previous)
		c.logger.Error("configuration reload failed", observability.Error(err))
		return err
	}

	c.install(cfg, resolvedPath)
	c.logger.Info("configuration reloaded",
		observability.String("path", resolvedPath))
	c.emitGatewayUpdate(cfg.Gateway)
	return nil
}

// resolve runs the full resolution pipeline: file layers, interpolation,
// path defaults, array normalization, decode, validation, and the store
// overlay.
func (c *Controller) resolve(ctx context.Context) (*config.ServerConfig, string, error) {
	raw, resolvedPath, err := config.LoadLayered(c.path, c.environment)
	if errors.Is(err, util.ErrFileAbsent) {
		provider := bootstrap.NewProvider(c.prompter, c.logger)
		raw, resolvedPath, err = provider.Run(c.path)
	}
	if err != nil {
		return nil, "", err
	}

	raw = config.Interpolate(raw)
	config.ApplyPathDefaults(raw, filepath.Dir(resolvedPath))
	config.NormalizeArrays(raw)

	cfg, err := config.DecodeServer(raw)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	gateway, err := c.resolveGateway(ctx, config.GatewaySubtree(raw), cfg.Database)
	if err != nil {
		return nil, "", err
	}
	cfg.Gateway = gateway

	return cfg, resolvedPath, nil
}

func (c *Controller) install(cfg *config.ServerConfig, resolvedPath string) {
	c.mu.Lock()
	c.cfg = cfg
	c.resolvedPath = resolvedPath
	c.state = StateLoaded
	c.mu.Unlock()
}

func (c *Controller) setState(state LoadState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) emitLoad(cfg *config.ServerConfig) {
	for _, fn := range c.loadSubscribers() {
		fn(cfg)
	}
}

func (c *Controller) emitError(err error) {
	c.cbMu.Lock()
	subs := append([]func(error){}, c.errorSubs...)
	c.cbMu.Unlock()
	for _, fn := range subs {
		fn(err)
	}
}

func (c *Controller) emitGatewayUpdate(gw *config.GatewayConfig) {
	c.cbMu.Lock()
	subs := append([]func(*config.GatewayConfig){}, c.gatewaySubs...)
	c.cbMu.Unlock()
	for _, fn := range subs {
		fn(gw)
	}
}

func (c *Controller) loadSubscribers() []func(*config.ServerConfig) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	return append([]func(*config.ServerConfig){}, c.loadSubs...)
}
