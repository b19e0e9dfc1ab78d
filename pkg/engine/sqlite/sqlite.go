// Package sqlite implements the engine interfaces on top of the
// driver-level API of mattn/go-sqlite3.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/wal"
)

// walFrameHeaderSize is the per-frame header in the "-wal" file.
const walFrameHeaderSize = 24

// walHeaderSize is the header at the start of the "-wal" file.
const walHeaderSize = 32

// Engine opens SQLite databases under a data directory.
type Engine struct {
	dir string
}

// New creates an engine storing databases under dir.
func New(dir string) *Engine {
	return &Engine{dir: dir}
}

// Open opens or creates the named database in WAL mode.
func (e *Engine) Open(name string, flags uint64, vfs string, pageSize int, walReplication string) (engine.Conn, error) {
	path := name
	if name != ":memory:" {
		path = filepath.Join(e.dir, name)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	if vfs != "" {
		dsn += "&vfs=" + vfs
	}

	d := &sqlite3.SQLiteDriver{}
	dc, err := d.Open(dsn)
	if err != nil {
		return nil, wrapError(err)
	}
	sc, ok := dc.(*sqlite3.SQLiteConn)
	if !ok {
		dc.Close()
		return nil, &engine.Error{Code: engine.CodeError, Message: "unexpected driver connection type"}
	}

	c := &conn{
		sc:             sc,
		path:           path,
		pageSize:       pageSize,
		walReplication: walReplication,
	}

	// The page size must be set before the first write creates the
	// database, and WAL mode before any transaction runs.
	if _, err := sc.Exec(fmt.Sprintf("PRAGMA page_size=%d", pageSize), nil); err != nil {
		sc.Close()
		return nil, wrapError(err)
	}
	if _, err := sc.Exec("PRAGMA journal_mode=wal", nil); err != nil {
		sc.Close()
		return nil, wrapError(err)
	}
	// Cluster-wide checkpoints replace the engine's automatic local one.
	if _, err := sc.Exec("PRAGMA wal_autocheckpoint=0", nil); err != nil {
		sc.Close()
		return nil, wrapError(err)
	}

	sc.RegisterCommitHook(func() int {
		return c.afterCommit()
	})

	return c, nil
}

// conn implements engine.Conn over a driver-level SQLite connection.
type conn struct {
	sc             *sqlite3.SQLiteConn
	path           string
	pageSize       int
	walReplication string

	mu     sync.Mutex
	hook   engine.WALHook
	cancel context.CancelFunc // Cancels the in-flight query, if any
}

// afterCommit runs inside the engine's commit hook and forwards the
// current WAL frame count to the registered WAL hook. Returning zero
// keeps the commit.
func (c *conn) afterCommit() int {
	c.mu.Lock()
	hook := c.hook
	c.mu.Unlock()
	if hook == nil {
		return 0
	}
	hook(c.walFrames())
	return 0
}

// walFrames derives the number of frames in the WAL from the size of the
// "-wal" file. A missing or truncated file counts as empty.
func (c *conn) walFrames() int {
	info, err := os.Stat(c.path + "-wal")
	if err != nil || info.Size() < walHeaderSize {
		return 0
	}
	return int((info.Size() - walHeaderSize) / int64(walFrameHeaderSize+c.pageSize))
}

func (c *conn) Prepare(sql string) (engine.Stmt, string, error) {
	first, tail := splitSQL(sql)
	// Empty statements (lone semicolons) ahead of the first real one
	// are skipped.
	for first == "" && tail != "" {
		first, tail = splitSQL(tail)
	}
	if first == "" {
		return nil, "", nil
	}
	ds, err := c.sc.Prepare(first)
	if err != nil {
		return nil, "", wrapError(err)
	}
	ss, ok := ds.(*sqlite3.SQLiteStmt)
	if !ok {
		ds.Close()
		return nil, "", &engine.Error{Code: engine.CodeError, Message: "unexpected driver statement type"}
	}
	return &stmt{c: c, ss: ss}, tail, nil
}

func (c *conn) Finalize(s engine.Stmt) error {
	st, ok := s.(*stmt)
	if !ok {
		return &engine.Error{Code: engine.CodeError, Message: "statement belongs to a different engine"}
	}
	return st.close()
}

func (c *conn) RegisterWALHook(hook engine.WALHook) {
	c.mu.Lock()
	c.hook = hook
	c.mu.Unlock()
}

// Interrupt cancels the context of the in-flight query, if any. The
// driver translates the cancellation into sqlite3_interrupt.
func (c *conn) Interrupt() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *conn) ShmFile() (wal.ShmFile, error) {
	return wal.OpenShm(c.path)
}

func (c *conn) Close() error {
	return wrapError(c.sc.Close())
}

// queryContext hands out a cancelable context for a statement step and
// records its cancel func so Interrupt can reach it.
func (c *conn) queryContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return ctx
}

func (c *conn) clearCancel() {
	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()
}
