package config

import "time"

// Config represents the main configuration for a dsql node
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Gateway GatewayConfig `yaml:"gateway"`
	Cluster ClusterConfig `yaml:"cluster"`
	Logging LoggingConfig `yaml:"logging"`
}

// NodeConfig contains node-specific configuration
type NodeConfig struct {
	ID         string `yaml:"id"`          // Node identifier reported by the status endpoint, as configured
	DataDir    string `yaml:"data_dir"`    // Directory holding database files
	ListenAddr string `yaml:"listen_addr"` // Client protocol listen address (e.g., ":9001")
	StatusAddr string `yaml:"status_addr"` // HTTP status endpoint address, empty disables it
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Colors bool   `yaml:"colors"` // Enable ANSI colors on console output
}

// Default returns a Config populated with working defaults for a single node.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			DataDir:    "./data",
			ListenAddr: ":9001",
			StatusAddr: ":9091",
		},
		Gateway: GatewayConfig{
			CheckpointThreshold: 1000,
			HeartbeatTimeout:    15 * time.Second,
			PageSize:            4096,
			VFS:                 "",
			WALReplication:      "dsql",
		},
		Cluster: ClusterConfig{
			Addresses:      []string{"http://localhost:4001"},
			ConnectTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Colors: true,
		},
	}
}
