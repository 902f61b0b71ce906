package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default packlaunch data directory name (relative to home).
	DefaultDataDir = ".packlaunch"
	// InstancesDir is the subdirectory for installed instances.
	InstancesDir = "instances"
	// DBFile is the SQLite database filename.
	DBFile = "packlaunch.db"

	// Config files looked up in the data directory, in order.

	// ConfigYAMLFile is the YAML launcher configuration filename.
	ConfigYAMLFile = "config.yaml"
	// ConfigTOMLFile is the TOML launcher configuration filename.
	ConfigTOMLFile = "config.toml"

	// DefaultHubAddr is the default listen address of the realtime hub.
	DefaultHubAddr = ":8081"
	// HubWSPath is the websocket path of the realtime hub.
	HubWSPath = "/ws"
)

// InstanceDir returns the directory for a specific instance.
func InstanceDir(dataDir, instanceName string) string {
	return filepath.Join(dataDir, InstancesDir, instanceName)
}

// DBPath returns the path of the instances database.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}
