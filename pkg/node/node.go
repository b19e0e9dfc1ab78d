// Package node wires the pieces of a dsql node together: configuration,
// the engine, the cluster client, the client protocol server and the
// status endpoint.
package node

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	rqlitecluster "github.com/DeBrosOfficial/dsql/pkg/cluster/rqlite"
	"github.com/DeBrosOfficial/dsql/pkg/config"
	"github.com/DeBrosOfficial/dsql/pkg/engine/sqlite"
	"github.com/DeBrosOfficial/dsql/pkg/logging"
	"github.com/DeBrosOfficial/dsql/pkg/server"
)

// Node is one dsql server process.
type Node struct {
	config *config.Config
	logger *logging.ColoredLogger

	cluster *rqlitecluster.Cluster
	server  *server.Server
	status  *http.Server
}

// NewNode creates a node from a validated configuration.
func NewNode(cfg *config.Config) (*Node, error) {
	logger, err := logging.NewColoredLogger(logging.ComponentNode, cfg.Logging.Colors, logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &Node{
		config: cfg,
		logger: logger,
	}, nil
}

// Start connects to the cluster and begins serving clients.
func (n *Node) Start(ctx context.Context) error {
	if err := os.MkdirAll(n.config.Node.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	cl, err := rqlitecluster.Connect(ctx, &n.config.Cluster, n.logger)
	if err != nil {
		return err
	}
	n.cluster = cl

	eng := sqlite.New(n.config.Node.DataDir)
	n.server = server.New(cl, eng, &n.config.Gateway, n.logger)

	listener, err := net.Listen("tcp", n.config.Node.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.config.Node.ListenAddr, err)
	}

	go func() {
		if err := n.server.Serve(listener); err != nil {
			n.logger.ComponentError(logging.ComponentNode, "Server stopped", zap.Error(err))
		}
	}()

	if n.config.Node.StatusAddr != "" {
		n.startStatus()
	}

	n.logger.ComponentInfo(logging.ComponentNode, "Node started",
		zap.String("listen_addr", n.config.Node.ListenAddr),
		zap.String("data_dir", n.config.Node.DataDir))

	return nil
}

// Stop tears the node down in reverse start order.
func (n *Node) Stop(ctx context.Context) {
	if n.status != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = n.status.Shutdown(shutdownCtx)
	}
	if n.server != nil {
		n.server.Close()
	}
	if n.cluster != nil {
		n.cluster.Close()
	}
	n.logger.ComponentInfo(logging.ComponentNode, "Node stopped")
}
