package config

import "time"

// GatewayConfig contains per-connection gateway options
type GatewayConfig struct {
	CheckpointThreshold uint32        `yaml:"checkpoint_threshold"` // WAL frames accumulated before a cluster checkpoint is attempted
	HeartbeatTimeout    time.Duration `yaml:"heartbeat_timeout"`    // Heartbeat interval announced to clients; a connection silent for twice this long is closed
	VFS                 string        `yaml:"vfs"`                  // SQLite VFS name, empty selects the default
	PageSize            int           `yaml:"page_size"`            // Database page size in bytes
	WALReplication      string        `yaml:"wal_replication"`      // Registered WAL replication implementation name
}
