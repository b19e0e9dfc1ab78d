// Package cluster defines the consensus layer surface the gateway
// consumes: leader lookup, membership, the log barrier, connection
// registration and the replicated checkpoint.
package cluster

import (
	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
)

// Codes returned by Barrier and Checkpoint. The zero value means success;
// failures reuse the engine code space so they pass through to failure
// responses unchanged.
const (
	CodeOK    = 0
	CodeError = 1
	CodeBusy  = 5
	CodeIOErr = 10
)

// Cluster is the consensus collaborator shared by all gateways on a node.
// Implementations must be safe for concurrent use; the gateway never
// synchronizes around it.
type Cluster interface {
	// Leader returns the address of the current cluster leader, or an
	// empty string when none is known.
	Leader() string

	// Servers returns the current cluster membership. The returned
	// slice is owned by the caller.
	Servers() ([]protocol.ServerInfo, int)

	// Register notifies the cluster that a new database connection
	// exists on this node.
	Register(conn engine.Conn)

	// Unregister undoes Register when the connection closes.
	Unregister(conn engine.Conn)

	// Barrier returns once all log entries committed so far have been
	// applied to the local engine, guaranteeing read-your-writes for
	// any prior write on any member.
	Barrier() int

	// Checkpoint truncates the WAL on all replicas together.
	Checkpoint(conn engine.Conn) int
}
