package config

import "time"

// ClusterConfig contains the consensus layer client configuration
type ClusterConfig struct {
	Addresses      []string      `yaml:"addresses"`       // HTTP addresses of the cluster members
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // Total time budget for the initial connection
}
