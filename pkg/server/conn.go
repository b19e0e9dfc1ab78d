package server

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/dsql/pkg/gateway"
	"github.com/DeBrosOfficial/dsql/pkg/logging"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
)

// Conn runs the I/O loop of one client connection. Requests are decoded
// and handled one at a time on this goroutine; the gateway's flush
// callback writes the response out and the loop acknowledges it back,
// which keeps streamed queries going until their last batch.
type Conn struct {
	id      uuid.UUID
	netConn net.Conn
	gateway *gateway.Gateway
	logger  *logging.ColoredLogger

	// Responses written but not yet acknowledged to the gateway.
	pending []*protocol.Response

	// First write error; poisons the connection.
	writeErr error

	// Read deadline budget; a client silent for this long is gone.
	idleTimeout time.Duration
}

// flush transmits a completed response. It runs on the connection
// goroutine, called from inside the gateway.
func (c *Conn) flush(resp *protocol.Response) {
	if c.writeErr != nil {
		c.gateway.Aborted(resp)
		return
	}
	if err := protocol.EncodeResponse(c.netConn, resp); err != nil {
		c.writeErr = err
		c.gateway.Aborted(resp)
		return
	}
	c.pending = append(c.pending, resp)
}

// serve reads and handles requests until the client goes away or breaks
// the protocol.
func (c *Conn) serve() {
	defer func() {
		c.gateway.Close()
		c.netConn.Close()
		c.logger.ComponentDebug(logging.ComponentServer, "Connection closed",
			zap.String("conn_id", c.id.String()))
	}()

	for {
		if err := c.netConn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			return
		}
		req, err := protocol.DecodeRequest(c.netConn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.ComponentDebug(logging.ComponentServer, "Read failed",
					zap.String("conn_id", c.id.String()), zap.Error(err))
			}
			return
		}

		if err := c.gateway.Handle(req); err != nil {
			// Admission refusal is the one error that tears the
			// connection down.
			c.logger.ComponentWarn(logging.ComponentServer, "Protocol violation",
				zap.String("conn_id", c.id.String()), zap.Error(err))
			return
		}

		// Acknowledge every transmitted response. A partial query
		// batch re-fires the flush callback from inside Flushed, so
		// the queue drains only when the stream is done.
		for len(c.pending) > 0 {
			resp := c.pending[0]
			c.pending = c.pending[1:]
			c.gateway.Flushed(resp)
			if c.writeErr != nil {
				return
			}
		}
	}
}
