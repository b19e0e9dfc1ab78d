// Package rqlite implements the cluster collaborator against an rqlite
// consensus cluster reachable over HTTP.
package rqlite

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rqlite/gorqlite"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/dsql/pkg/cluster"
	"github.com/DeBrosOfficial/dsql/pkg/config"
	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/logging"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
)

// Cluster talks to an rqlite cluster. It is shared by every gateway on the
// node and safe for concurrent use.
type Cluster struct {
	conn   *gorqlite.Connection
	logger *logging.ColoredLogger

	mu    sync.Mutex
	conns map[engine.Conn]struct{}
}

// Connect dials the first reachable cluster member, retrying with
// exponential backoff until the configured timeout elapses.
func Connect(ctx context.Context, cfg *config.ClusterConfig, logger *logging.ColoredLogger) (*Cluster, error) {
	open := func() (*gorqlite.Connection, error) {
		var lastErr error
		for _, addr := range cfg.Addresses {
			conn, err := gorqlite.Open(addr)
			if err == nil {
				return conn, nil
			}
			lastErr = err
			logger.ComponentDebug(logging.ComponentCluster, "Cluster member not reachable",
				zap.String("address", addr), zap.Error(err))
		}
		return nil, lastErr
	}

	conn, err := backoff.Retry(ctx, open,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	// A barrier needs linearizable reads.
	if err := conn.SetConsistencyLevel(gorqlite.ConsistencyLevelStrong); err != nil {
		return nil, fmt.Errorf("failed to set consistency level: %w", err)
	}

	logger.ComponentInfo(logging.ComponentCluster, "Connected to cluster",
		zap.Strings("addresses", cfg.Addresses))

	return &Cluster{
		conn:   conn,
		logger: logger,
		conns:  make(map[engine.Conn]struct{}),
	}, nil
}

// Leader returns the address of the current leader, or an empty string.
func (c *Cluster) Leader() string {
	leader, err := c.conn.Leader()
	if err != nil {
		c.logger.ComponentDebug(logging.ComponentCluster, "Leader lookup failed", zap.Error(err))
		return ""
	}
	return leader
}

// Servers returns the current membership. Server IDs are derived from the
// member address so they stay stable across lookups.
func (c *Cluster) Servers() ([]protocol.ServerInfo, int) {
	peers, err := c.conn.Peers()
	if err != nil {
		c.logger.ComponentDebug(logging.ComponentCluster, "Membership lookup failed", zap.Error(err))
		return nil, cluster.CodeError
	}
	servers := make([]protocol.ServerInfo, 0, len(peers))
	for _, addr := range peers {
		servers = append(servers, protocol.ServerInfo{ID: serverID(addr), Address: addr})
	}
	return servers, cluster.CodeOK
}

// Register records a new database connection on this node.
func (c *Cluster) Register(conn engine.Conn) {
	c.mu.Lock()
	c.conns[conn] = struct{}{}
	c.mu.Unlock()
}

// Unregister drops a closed database connection.
func (c *Cluster) Unregister(conn engine.Conn) {
	c.mu.Lock()
	delete(c.conns, conn)
	c.mu.Unlock()
}

// Connections returns the number of registered database connections.
func (c *Cluster) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// Barrier runs a linearizable no-op read. It returns once every log entry
// committed before the call has been applied locally.
func (c *Cluster) Barrier() int {
	if _, err := c.conn.QueryOne("SELECT 1"); err != nil {
		c.logger.ComponentDebug(logging.ComponentCluster, "Barrier failed", zap.Error(err))
		return cluster.CodeError
	}
	return cluster.CodeOK
}

// Checkpoint asks the cluster to truncate the WAL on all replicas.
func (c *Cluster) Checkpoint(conn engine.Conn) int {
	start := time.Now()
	if _, err := c.conn.WriteOne("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		c.logger.ComponentDebug(logging.ComponentCluster, "Replicated checkpoint failed", zap.Error(err))
		return cluster.CodeError
	}
	c.logger.ComponentDebug(logging.ComponentCluster, "Replicated checkpoint done",
		zap.Duration("elapsed", time.Since(start)))
	return cluster.CodeOK
}

// Close drops the cluster connection.
func (c *Cluster) Close() {
	c.conn.Close()
}

// serverID derives a stable numeric identifier from a member address.
func serverID(addr string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(addr))
	return h.Sum64()
}
