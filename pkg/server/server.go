// Package server accepts client connections and runs one gateway per
// connection.
package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/dsql/pkg/cluster"
	"github.com/DeBrosOfficial/dsql/pkg/config"
	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/gateway"
	"github.com/DeBrosOfficial/dsql/pkg/logging"
)

// Server owns the listener and the set of live connections.
type Server struct {
	cluster cluster.Cluster
	opener  engine.Opener
	options *config.GatewayConfig
	logger  *logging.ColoredLogger

	listener net.Listener
	nextID   uint64
	closed   atomic.Bool

	mu    sync.Mutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
}

// New creates a server handing accepted connections to fresh gateways.
func New(c cluster.Cluster, opener engine.Opener, options *config.GatewayConfig, logger *logging.ColoredLogger) *Server {
	return &Server{
		cluster: c,
		opener:  opener,
		options: options,
		logger:  logger,
		conns:   make(map[*Conn]struct{}),
	}
}

// Serve accepts connections until the listener closes.
func (s *Server) Serve(listener net.Listener) error {
	s.listener = listener
	s.logger.ComponentInfo(logging.ComponentServer, "Accepting connections",
		zap.String("address", listener.Addr().String()))

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.startConn(netConn)
	}
}

// ConnCount returns the number of live connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops accepting and tears down every live connection.
func (s *Server) Close() {
	s.closed.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		conn.netConn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) startConn(netConn net.Conn) {
	clientID := atomic.AddUint64(&s.nextID, 1)
	conn := &Conn{
		id:      uuid.New(),
		netConn: netConn,
		logger:  s.logger,
		// The client must heartbeat well within this budget; a
		// silent connection is assumed dead.
		idleTimeout: 2 * s.options.HeartbeatTimeout,
	}
	conn.gateway = gateway.New(clientID, s.cluster, s.opener, s.options, conn.flush, s.logger)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.logger.ComponentDebug(logging.ComponentServer, "Connection accepted",
		zap.String("conn_id", conn.id.String()),
		zap.String("remote", netConn.RemoteAddr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		conn.serve()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
}
