package bootstrap

// Topology names for the store connection collected during bootstrap.
const (
	TopologyStandalone = "standalone"
	TopologyCluster    = "cluster"
)

// DatabaseAnswers holds the store connection parameters collected during
// first-run bootstrap.
type DatabaseAnswers struct {
	// Topology is TopologyStandalone or TopologyCluster.
	Topology string

	Host string
	Port int

	// DB is the logical database index, standalone topology only.
	DB int

	// Password is the optional credential.
	Password string
}

// Prompter collects store connection parameters from the operator.
// The terminal implementation runs an interactive form; tests inject a
// scripted implementation.
type Prompter interface {
	CollectDatabase() (*DatabaseAnswers, error)
}
