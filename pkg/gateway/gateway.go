// Package gateway dispatches the requests of a single client connection
// to the SQL engine and the cluster. One gateway exists per connection;
// all its methods run on the connection's executor, so the struct needs
// no locking.
package gateway

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/dsql/pkg/cluster"
	"github.com/DeBrosOfficial/dsql/pkg/config"
	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/logging"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
)

// FlushFn publishes a completed response to the I/O layer. The callee owns
// the response buffer until it hands it back through Flushed.
type FlushFn func(resp *protocol.Response)

// Slot indices. The first slot serves database requests, the second
// control ones, so a heartbeat always gets through while a query streams.
const (
	slotData    = 0
	slotControl = 1
	numSlots    = 2
)

// slot binds one in-flight request to its reusable response buffer.
type slot struct {
	request  *protocol.Request
	response *protocol.Response

	// stmt is set while a query on this slot has more batches to
	// deliver. Only the data slot ever uses it.
	stmt engine.Stmt

	// tempStmt marks a statement prepared ad hoc for a query_sql
	// request; it is finalized once the last batch is out.
	tempStmt bool
}

// Gateway handles the requests of one client connection.
type Gateway struct {
	clientID  uint64
	heartbeat uint64 // Timestamp of the last heartbeat request
	errmsg    string // Backing buffer for failure messages

	slots [numSlots]slot
	db    *db

	cluster cluster.Cluster
	opener  engine.Opener
	options *config.GatewayConfig
	flush   FlushFn
	logger  *logging.ColoredLogger
}

// New creates a gateway for a freshly accepted connection.
func New(clientID uint64, c cluster.Cluster, opener engine.Opener, options *config.GatewayConfig, flush FlushFn, logger *logging.ColoredLogger) *Gateway {
	g := &Gateway{
		clientID: clientID,
		cluster:  c,
		opener:   opener,
		options:  options,
		flush:    flush,
		logger:   logger,
	}
	for i := range g.slots {
		g.slots[i].response = protocol.NewResponse()
	}
	return g
}

// slotFor maps a request kind to its slot index.
func slotFor(kind uint8) int {
	switch kind {
	case protocol.RequestHeartbeat, protocol.RequestInterrupt:
		return slotControl
	default:
		return slotData
	}
}

// OkToAccept reports whether a request of the given kind can be handled
// right now.
func (g *Gateway) OkToAccept(kind uint8) bool {
	return g.slots[slotFor(kind)].request == nil
}

// Handle dispatches a request. The only error it returns is a protocol
// violation when the target slot is still occupied; every other failure
// becomes a failure response delivered through the flush callback.
func (g *Gateway) Handle(req *protocol.Request) error {
	if !g.OkToAccept(req.Type) {
		g.errmsg = "concurrent request limit exceeded"
		return protocol.NewError(protocol.CodeProto, g.errmsg)
	}

	s := &g.slots[slotFor(req.Type)]
	s.request = req

	switch req.Type {
	case protocol.RequestLeader:
		g.leader(s)
	case protocol.RequestClient:
		g.client(s)
	case protocol.RequestHeartbeat:
		g.handleHeartbeat(s)
	case protocol.RequestOpen:
		g.open(s)
	case protocol.RequestPrepare:
		g.prepare(s)
	case protocol.RequestExec:
		g.exec(s)
	case protocol.RequestQuery:
		g.query(s)
	case protocol.RequestFinalize:
		g.finalize(s)
	case protocol.RequestExecSQL:
		g.execSQL(s)
	case protocol.RequestQuerySQL:
		g.querySQL(s)
	case protocol.RequestInterrupt:
		g.interrupt(s)
	default:
		g.failuref(s, protocol.CodeError, "invalid request type %d", req.Type)
	}

	g.flush(s.response)
	return nil
}

// Flushed releases the slot whose response has been transmitted. A slot
// holding a partially delivered query immediately produces the next batch
// and fires the flush callback again.
func (g *Gateway) Flushed(resp *protocol.Response) {
	for i := range g.slots {
		s := &g.slots[i]
		if s.response != resp {
			continue
		}
		resp.Reset()
		if s.stmt != nil {
			g.queryResume(s)
		} else {
			s.request = nil
		}
		return
	}
	g.logger.ComponentWarn(logging.ComponentGateway, "Flushed response matches no slot",
		zap.Uint64("client_id", g.clientID))
}

// Aborted is invoked when the I/O layer failed to transmit a response.
// The connection is about to close; nothing to do here.
func (g *Gateway) Aborted(resp *protocol.Response) {
}

// Heartbeat returns the timestamp of the last heartbeat request.
func (g *Gateway) Heartbeat() uint64 {
	return g.heartbeat
}

// Close releases the database connection and all prepared statements.
func (g *Gateway) Close() {
	if g.db == nil {
		return
	}
	g.cluster.Unregister(g.db.conn)
	if err := g.db.close(); err != nil {
		g.logger.ComponentWarn(logging.ComponentGateway, "Failed to close database",
			zap.Uint64("client_id", g.clientID), zap.Error(err))
	}
	g.db = nil
}

// failure renders a failure response on the slot, pointing its message
// into the gateway error buffer.
func (g *Gateway) failure(s *slot, code uint64, message string) {
	g.errmsg = message
	s.response.Type = protocol.ResponseFailure
	s.response.Failure.Code = code
	s.response.Failure.Message = g.errmsg
}

func (g *Gateway) failuref(s *slot, code uint64, format string, args ...interface{}) {
	g.failure(s, code, fmt.Sprintf(format, args...))
}
