package lifecycle

// LoadState tracks the resolution lifecycle of the controller.
type LoadState int

// Lifecycle states.
const (
	// StateUnloaded is the initial state before the first Load.
	StateUnloaded LoadState = iota

	// StateLoading is set while a pipeline run is in flight.
	StateLoading

	// StateLoaded is set after a successful resolution. Load becomes a
	// no-op in this state; Reload still re-runs the pipeline.
	StateLoaded

	// StateErrored is set when a pipeline run failed. The controller
	// remains usable and a later Load retries, since the already-loaded
	// guard only blocks on success.
	StateErrored
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "error"
	default:
		return "unknown"
	}
}
