// Package lifecycle orchestrates configuration resolution and owns the
// load/reload lifecycle.
//
// The Controller drives the resolution pipeline in order: file layer
// loading, environment overlay, variable interpolation, path defaulting,
// array normalization, and finally the store overlay that reconciles the
// dynamic gateway subtree with the persisted value. Only the store
// overlay performs network I/O; everything before it is local.
//
// # Error contracts
//
// Load and Reload deliberately differ in how failures are delivered.
// Load is fire-and-subscribe: it never returns an error, converting
// every failure into a notification for OnError subscribers. Reload is
// call-and-await: it returns the failure to the caller synchronously and
// leaves the previous configuration in place. Consumers that need the
// initial load outcome must subscribe before calling Load.
//
// # Usage
//
//	ctrl := lifecycle.New("tree-gateway",
//	    lifecycle.WithEnvironment(os.Getenv("GATEWAY_ENVIRONMENT")),
//	    lifecycle.WithLogger(logger),
//	)
//	ctrl.OnLoad(func(cfg *config.ServerConfig) {
//	    // configuration is resolved and validated
//	})
//	ctrl.OnError(func(err error) {
//	    // initial load failed
//	})
//	ctrl.Load(ctx)
//
// Load and Reload are serialized internally; overlapping calls queue
// rather than clobbering the in-flight resolution.
package lifecycle
