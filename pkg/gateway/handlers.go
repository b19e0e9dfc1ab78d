package gateway

import (
	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
)

// leader answers with the address of the current cluster leader.
func (g *Gateway) leader(s *slot) {
	address := g.cluster.Leader()
	if address == "" {
		g.failure(s, protocol.CodeNoMem, "failed to get cluster leader")
		return
	}
	s.response.Type = protocol.ResponseServer
	s.response.Server.Address = address
}

// client acknowledges a client registration with the heartbeat timeout the
// client must honor.
func (g *Gateway) client(s *slot) {
	s.response.Type = protocol.ResponseWelcome
	s.response.Welcome.HeartbeatTimeout = uint64(g.options.HeartbeatTimeout.Milliseconds())
}

// handleHeartbeat answers with the current cluster membership and records
// the client's timestamp.
func (g *Gateway) handleHeartbeat(s *slot) {
	servers, rc := g.cluster.Servers()
	if rc != 0 {
		g.failure(s, uint64(rc), "failed to get cluster servers")
		return
	}
	s.response.Type = protocol.ResponseServers
	s.response.Servers = servers

	g.heartbeat = s.request.Timestamp
}

// open creates the one database connection of this gateway.
func (g *Gateway) open(s *slot) {
	if g.db != nil {
		g.failure(s, protocol.CodeBusy, "a database for this connection is already open")
		return
	}

	conn, err := g.opener.Open(
		s.request.Open.Name,
		s.request.Open.Flags,
		g.options.VFS,
		g.options.PageSize,
		g.options.WALReplication,
	)
	if err != nil {
		g.failure(s, uint64(engine.ErrCode(err)), err.Error())
		return
	}

	g.db = newDb(conn, 0)

	conn.RegisterWALHook(g.maybeCheckpoint)

	s.response.Type = protocol.ResponseDb
	s.response.Db.ID = g.db.id

	// Notify the cluster implementation about the new connection.
	g.cluster.Register(conn)
}

// barrier flushes pending replicated log entries through to the local
// engine. It reports false after rendering a failure response, in which
// case the handler must not touch the engine.
func (g *Gateway) barrier(s *slot) bool {
	if rc := g.cluster.Barrier(); rc != 0 {
		g.failure(s, uint64(rc), "raft barrier failed")
		return false
	}
	return true
}

// lookupDb resolves the database addressed by a request.
func (g *Gateway) lookupDb(s *slot, id uint32) *db {
	if g.db == nil || g.db.id != id {
		g.failuref(s, protocol.CodeNotFound, "no db with id %d", id)
		return nil
	}
	return g.db
}

// lookupStmt resolves the statement addressed by a request.
func (g *Gateway) lookupStmt(s *slot, d *db, id uint32) engine.Stmt {
	stmt := d.stmt(id)
	if stmt == nil {
		g.failuref(s, protocol.CodeNotFound, "no stmt with id %d", id)
	}
	return stmt
}

// bind applies the request's trailing parameter bytes to a statement.
func (g *Gateway) bind(s *slot, stmt engine.Stmt) bool {
	values, err := protocol.DecodeParams(s.request.Message)
	if err != nil {
		g.failure(s, protocol.CodeError, err.Error())
		return false
	}
	if err := stmt.Bind(values); err != nil {
		g.failure(s, uint64(engine.ErrCode(err)), err.Error())
		return false
	}
	return true
}

func (g *Gateway) prepare(s *slot) {
	if !g.barrier(s) {
		return
	}
	d := g.lookupDb(s, s.request.Prepare.DbID)
	if d == nil {
		return
	}

	stmt, _, err := d.conn.Prepare(s.request.Prepare.SQL)
	if err != nil {
		g.failure(s, uint64(engine.ErrCode(err)), err.Error())
		return
	}
	if stmt == nil {
		g.failure(s, protocol.CodeError, "empty statement")
		return
	}

	s.response.Type = protocol.ResponseStmt
	s.response.Stmt.DbID = d.id
	s.response.Stmt.ID = d.register(stmt)
	s.response.Stmt.Params = uint64(stmt.NumParams())
}

func (g *Gateway) exec(s *slot) {
	if !g.barrier(s) {
		return
	}
	d := g.lookupDb(s, s.request.Exec.DbID)
	if d == nil {
		return
	}
	stmt := g.lookupStmt(s, d, s.request.Exec.StmtID)
	if stmt == nil {
		return
	}

	if !g.bind(s, stmt) {
		return
	}

	lastInsertID, rowsAffected, err := stmt.Exec()
	if err != nil {
		g.failure(s, uint64(engine.ErrCode(err)), err.Error())
		return
	}
	s.response.Type = protocol.ResponseResult
	s.response.Result.LastInsertID = lastInsertID
	s.response.Result.RowsAffected = rowsAffected
}

func (g *Gateway) query(s *slot) {
	if !g.barrier(s) {
		return
	}
	d := g.lookupDb(s, s.request.Query.DbID)
	if d == nil {
		return
	}
	stmt := g.lookupStmt(s, d, s.request.Query.StmtID)
	if stmt == nil {
		return
	}

	if !g.bind(s, stmt) {
		return
	}

	s.tempStmt = false
	g.queryBatch(s, stmt)
}

func (g *Gateway) finalize(s *slot) {
	if !g.barrier(s) {
		return
	}
	d := g.lookupDb(s, s.request.Finalize.DbID)
	if d == nil {
		return
	}
	if g.lookupStmt(s, d, s.request.Finalize.StmtID) == nil {
		return
	}

	if err := d.finalize(s.request.Finalize.StmtID); err != nil {
		g.failure(s, uint64(engine.ErrCode(err)), err.Error())
		return
	}
	s.response.Type = protocol.ResponseEmpty
}

// execSQL prepares and executes each statement of a SQL text in order. The
// response carries the result of the last statement executed. Bind
// parameters apply to the first statement only; later statements in the
// batch must be parameterless.
func (g *Gateway) execSQL(s *slot) {
	if !g.barrier(s) {
		return
	}
	d := g.lookupDb(s, s.request.ExecSQL.DbID)
	if d == nil {
		return
	}

	// An empty text is accepted and answered without engine work.
	s.response.Type = protocol.ResponseEmpty

	sql := s.request.ExecSQL.SQL
	first := true
	for sql != "" {
		stmt, tail, err := d.conn.Prepare(sql)
		if err != nil {
			g.failure(s, uint64(engine.ErrCode(err)), err.Error())
			return
		}
		if stmt == nil {
			// Only whitespace or comments were left.
			return
		}

		if first {
			if !g.bind(s, stmt) {
				_ = d.conn.Finalize(stmt)
				return
			}
			first = false
		}

		lastInsertID, rowsAffected, err := stmt.Exec()
		// The temporary statement never outlives its iteration.
		_ = d.conn.Finalize(stmt)
		if err != nil {
			g.failure(s, uint64(engine.ErrCode(err)), err.Error())
			return
		}

		s.response.Type = protocol.ResponseResult
		s.response.Result.LastInsertID = lastInsertID
		s.response.Result.RowsAffected = rowsAffected

		sql = tail
	}
}

// querySQL prepares a single statement from a SQL text and streams its
// rows. The statement is owned by the slot until the last batch is out.
func (g *Gateway) querySQL(s *slot) {
	if !g.barrier(s) {
		return
	}
	d := g.lookupDb(s, s.request.QuerySQL.DbID)
	if d == nil {
		return
	}

	stmt, _, err := d.conn.Prepare(s.request.QuerySQL.SQL)
	if err != nil {
		g.failure(s, uint64(engine.ErrCode(err)), err.Error())
		return
	}
	if stmt == nil {
		g.failure(s, protocol.CodeError, "empty statement")
		return
	}

	if !g.bind(s, stmt) {
		_ = d.conn.Finalize(stmt)
		return
	}

	s.tempStmt = true
	g.queryBatch(s, stmt)
}

// interrupt aborts the engine operation in flight on the data slot, if
// any. It always succeeds.
func (g *Gateway) interrupt(s *slot) {
	if g.db != nil && g.slots[slotData].request != nil {
		g.db.conn.Interrupt()
	}
	s.response.Type = protocol.ResponseEmpty
}

// queryBatch steps the statement and fills the slot's response with one
// batch of rows.
func (g *Gateway) queryBatch(s *slot, stmt engine.Stmt) {
	more, err := stmt.Query(s.response.Message)
	if err != nil {
		// Rows already written into the message are abandoned by
		// the response reset after flush.
		g.failure(s, uint64(engine.ErrCode(err)), err.Error())
		g.releaseQueryStmt(s, stmt)
		return
	}

	s.response.Type = protocol.ResponseRows
	if more {
		s.response.Rows.EOF = protocol.RowsPart
		s.stmt = stmt
	} else {
		s.response.Rows.EOF = protocol.RowsDone
		g.releaseQueryStmt(s, stmt)
	}
}

// queryResume produces the next batch of a partially delivered query and
// announces it to the I/O layer.
func (g *Gateway) queryResume(s *slot) {
	g.queryBatch(s, s.stmt)
	g.flush(s.response)
}

// releaseQueryStmt clears the slot's resumable statement and finalizes the
// given one when it was prepared ad hoc for a query_sql request.
func (g *Gateway) releaseQueryStmt(s *slot, stmt engine.Stmt) {
	if s.tempStmt && g.db != nil {
		_ = g.db.conn.Finalize(stmt)
	}
	s.stmt = nil
	s.tempStmt = false
}
