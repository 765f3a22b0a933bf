// Package config provides the layered configuration model and the
// local resolution stages for the gateway.
//
// A configuration is resolved from several layers, applied in order:
//
//   - base file discovery (<path>.yml, <path>.yaml, <path>.json)
//   - environment overlay (<path>-<environment>, same discovery order)
//   - environment variable interpolation on string leaves
//   - path defaulting (rootPath, middlewarePath, TLS file paths)
//   - array normalization (scalars coerced to one-element sequences at
//     designated paths)
//
// All stages in this package are pure and local: they read files and the
// process environment but never touch the network. The store overlay and
// the load/reload lifecycle live in the lifecycle package.
//
// # Loading
//
// Load the local layers of a configuration:
//
//	raw, path, err := config.LoadLayered("tree-gateway", "production")
//	if err != nil {
//	    // util.ErrFileAbsent means no file exists in any format
//	}
//	raw = config.Interpolate(raw)
//	config.ApplyPathDefaults(raw, filepath.Dir(path))
//	config.NormalizeArrays(raw)
//	cfg, err := config.DecodeServer(raw)
package config
