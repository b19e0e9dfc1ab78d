package gateway

import (
	"strings"

	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
	"github.com/DeBrosOfficial/dsql/pkg/wal"
)

// fakeCluster scripts the cluster collaborator and records every call in
// the shared operation log, so tests can assert ordering against engine
// calls.
type fakeCluster struct {
	leader          string
	servers         []protocol.ServerInfo
	serversRC       int
	barrierRC       int
	checkpointRC    int
	checkpointCalls int
	barrierCalls    int
	registered      []engine.Conn
	unregistered    []engine.Conn
	log             *[]string
}

func (c *fakeCluster) record(op string) {
	if c.log != nil {
		*c.log = append(*c.log, op)
	}
}

func (c *fakeCluster) Leader() string {
	c.record("cluster.leader")
	return c.leader
}

func (c *fakeCluster) Servers() ([]protocol.ServerInfo, int) {
	c.record("cluster.servers")
	if c.serversRC != 0 {
		return nil, c.serversRC
	}
	return c.servers, 0
}

func (c *fakeCluster) Register(conn engine.Conn) {
	c.record("cluster.register")
	c.registered = append(c.registered, conn)
}

func (c *fakeCluster) Unregister(conn engine.Conn) {
	c.record("cluster.unregister")
	c.unregistered = append(c.unregistered, conn)
}

func (c *fakeCluster) Barrier() int {
	c.record("cluster.barrier")
	c.barrierCalls++
	return c.barrierRC
}

func (c *fakeCluster) Checkpoint(conn engine.Conn) int {
	c.record("cluster.checkpoint")
	c.checkpointCalls++
	return c.checkpointRC
}

// fakeOpener opens fakeConn databases.
type fakeOpener struct {
	openErr *engine.Error
	conns   []*fakeConn
	log     *[]string
}

func (o *fakeOpener) Open(name string, flags uint64, vfs string, pageSize int, walReplication string) (engine.Conn, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	conn := &fakeConn{
		name:  name,
		stmts: map[string]*fakeStmt{},
		log:   o.log,
	}
	o.conns = append(o.conns, conn)
	return conn, nil
}

// fakeConn is a scripted engine connection. Prepare resolves statements by
// their trimmed SQL text; multi-statement texts split on semicolons.
type fakeConn struct {
	name         string
	stmts        map[string]*fakeStmt
	prepareErr   *engine.Error
	prepareCalls int
	finalized    []*fakeStmt
	interrupted  bool
	closed       bool
	hook         engine.WALHook
	shm          *fakeShm
	shmErr       error
	log          *[]string
}

func (c *fakeConn) record(op string) {
	if c.log != nil {
		*c.log = append(*c.log, op)
	}
}

// script registers a statement under its SQL text.
func (c *fakeConn) script(sql string, stmt *fakeStmt) {
	stmt.conn = c
	c.stmts[strings.TrimSpace(sql)] = stmt
}

func (c *fakeConn) Prepare(sql string) (engine.Stmt, string, error) {
	c.record("engine.prepare")
	c.prepareCalls++
	if c.prepareErr != nil {
		return nil, "", c.prepareErr
	}
	first, tail := sql, ""
	if i := strings.IndexByte(sql, ';'); i >= 0 {
		first, tail = sql[:i], sql[i+1:]
	}
	first = strings.TrimSpace(first)
	if first == "" {
		return nil, "", nil
	}
	stmt, ok := c.stmts[first]
	if !ok {
		return nil, "", &engine.Error{Code: engine.CodeError, Message: "near \"" + first + "\": syntax error"}
	}
	return stmt, tail, nil
}

func (c *fakeConn) Finalize(s engine.Stmt) error {
	c.record("engine.finalize")
	c.finalized = append(c.finalized, s.(*fakeStmt))
	return nil
}

func (c *fakeConn) RegisterWALHook(hook engine.WALHook) {
	c.hook = hook
}

func (c *fakeConn) Interrupt() {
	c.interrupted = true
}

func (c *fakeConn) ShmFile() (wal.ShmFile, error) {
	if c.shmErr != nil {
		return nil, c.shmErr
	}
	return c.shm, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeStmt is a scripted statement: fixed columns and rows for queries, a
// fixed result for exec.
type fakeStmt struct {
	conn      *fakeConn
	numParams int

	bound   []protocol.Value
	bindErr *engine.Error

	lastInsertID uint64
	rowsAffected uint64
	execErr      *engine.Error
	execCalls    int

	columns  []string
	rows     [][]protocol.Value
	queryErr *engine.Error
	cursor   int
	queries  int
}

func (s *fakeStmt) NumParams() int {
	return s.numParams
}

func (s *fakeStmt) Bind(values []protocol.Value) error {
	s.conn.record("engine.bind")
	if s.bindErr != nil {
		return s.bindErr
	}
	s.bound = values
	return nil
}

func (s *fakeStmt) Exec() (uint64, uint64, error) {
	s.conn.record("engine.exec")
	s.execCalls++
	if s.execErr != nil {
		return 0, 0, s.execErr
	}
	return s.lastInsertID, s.rowsAffected, nil
}

func (s *fakeStmt) Query(msg *protocol.Message) (bool, error) {
	s.conn.record("engine.query")
	s.queries++
	if s.queryErr != nil {
		return false, s.queryErr
	}
	writer, err := protocol.NewRowWriter(msg, s.columns)
	if err != nil {
		return false, err
	}
	for s.cursor < len(s.rows) {
		if err := writer.WriteRow(s.rows[s.cursor]); err != nil {
			return false, err
		}
		s.cursor++
		if msg.Full() {
			return s.cursor < len(s.rows), nil
		}
	}
	return false, nil
}

// fakeShm implements wal.ShmFile over an in-memory region with scripted
// lock outcomes.
type fakeShm struct {
	region      []byte
	regionReads int
	busy        map[int]bool
	locked      []int
	unlocked    []int
}

func (s *fakeShm) Region0() ([]byte, error) {
	s.regionReads++
	return s.region, nil
}

func (s *fakeShm) TryLockReader(n int) error {
	if s.busy[n] {
		return wal.ErrBusy
	}
	s.locked = append(s.locked, n)
	return nil
}

func (s *fakeShm) UnlockReader(n int) error {
	s.unlocked = append(s.unlocked, n)
	return nil
}

func (s *fakeShm) Close() error {
	return nil
}

// flushRecorder captures a snapshot of every flushed response; the live
// buffers are reused between requests so the fields are copied out.
type flushRecorder struct {
	flushed []responseSnapshot
}

type responseSnapshot struct {
	Type    uint8
	Failure protocol.FailureBody
	Server  protocol.ServerBody
	Welcome protocol.WelcomeBody
	Servers []protocol.ServerInfo
	Db      protocol.DbBody
	Stmt    protocol.StmtBody
	Result  protocol.ResultBody
	Rows    protocol.RowsBody

	// Decoded rows payload for rows responses.
	Columns []string
	RowData [][]protocol.Value

	// Identity of the live buffer, needed to acknowledge it.
	live *protocol.Response
}

func (r *flushRecorder) flush(resp *protocol.Response) {
	snapshot := responseSnapshot{
		Type:    resp.Type,
		Failure: resp.Failure,
		Server:  resp.Server,
		Welcome: resp.Welcome,
		Servers: append([]protocol.ServerInfo(nil), resp.Servers...),
		Db:      resp.Db,
		Stmt:    resp.Stmt,
		Result:  resp.Result,
		Rows:    resp.Rows,
		live:    resp,
	}
	if resp.Type == protocol.ResponseRows {
		body := append([]byte(nil), resp.Message.Bytes()...)
		reader, err := protocol.NewRowReader(protocol.FromBytes(body))
		if err == nil {
			snapshot.Columns = reader.Columns()
			for reader.More() {
				row, err := reader.ReadRow()
				if err != nil {
					break
				}
				snapshot.RowData = append(snapshot.RowData, row)
			}
		}
	}
	r.flushed = append(r.flushed, snapshot)
}

func (r *flushRecorder) last() responseSnapshot {
	return r.flushed[len(r.flushed)-1]
}
