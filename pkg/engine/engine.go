// Package engine defines the embedded SQL engine surface the gateway
// drives: opening databases, preparing and stepping statements, the WAL
// hook, and access to the WAL-index shared memory.
package engine

import (
	"errors"

	"github.com/DeBrosOfficial/dsql/pkg/protocol"
	"github.com/DeBrosOfficial/dsql/pkg/wal"
)

// Engine result codes, mirroring the SQLite result code space.
const (
	CodeOK       = 0
	CodeError    = 1
	CodeBusy     = 5
	CodeNoMem    = 7
	CodeIOErr    = 10
	CodeNotFound = 12
	CodeRange    = 25
)

// Error carries an engine failure with its numeric result code.
type Error struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ErrCode extracts the numeric code from an engine error, defaulting to
// the generic error code.
func ErrCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeError
}

// WALHook is invoked after a committed write transaction appended frames
// to the WAL. pages is the total number of frames currently in the WAL.
// The return value is an engine code; the commit stands whatever the hook
// returns.
type WALHook func(pages int) int

// Opener opens engine databases.
type Opener interface {
	// Open opens or creates the named database with the given flags,
	// VFS, page size and WAL replication implementation.
	Open(name string, flags uint64, vfs string, pageSize int, walReplication string) (Conn, error)
}

// Conn is a single open database connection.
type Conn interface {
	// Prepare compiles the first statement in sql and returns it along
	// with the unconsumed tail of the text. A tail-only input (e.g.
	// trailing whitespace) yields a nil statement and an empty tail.
	Prepare(sql string) (Stmt, string, error)

	// Finalize destroys a prepared statement.
	Finalize(stmt Stmt) error

	// RegisterWALHook installs the hook invoked after each committed
	// write transaction.
	RegisterWALHook(hook WALHook)

	// Interrupt aborts the currently running statement, if any.
	Interrupt()

	// ShmFile opens the WAL-index shared memory of the main database.
	ShmFile() (wal.ShmFile, error)

	// Close closes the connection, finalizing any statements still
	// registered with it.
	Close() error
}

// Stmt is a prepared statement.
type Stmt interface {
	// NumParams returns the number of bind parameters.
	NumParams() int

	// Bind stores the parameter values applied on the next Exec or
	// Query.
	Bind(values []protocol.Value) error

	// Exec steps the statement to completion.
	Exec() (lastInsertID uint64, rowsAffected uint64, err error)

	// Query produces rows into msg until the body fills up or the
	// statement is exhausted. more reports that the body filled up
	// before the end of the cursor was reached; the next Query call
	// continues where this one stopped and may find no rows left.
	Query(msg *protocol.Message) (more bool, err error)
}
