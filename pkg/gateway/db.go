package gateway

import (
	"github.com/DeBrosOfficial/dsql/pkg/engine"
)

// db wraps the one engine connection a gateway may hold, together with its
// prepared statement registry.
type db struct {
	conn  engine.Conn
	id    uint32
	stmts map[uint32]engine.Stmt
	next  uint32
}

func newDb(conn engine.Conn, id uint32) *db {
	return &db{
		conn:  conn,
		id:    id,
		stmts: make(map[uint32]engine.Stmt),
	}
}

// register adds a prepared statement and returns its identifier.
func (d *db) register(stmt engine.Stmt) uint32 {
	id := d.next
	d.next++
	d.stmts[id] = stmt
	return id
}

// stmt looks up a registered statement.
func (d *db) stmt(id uint32) engine.Stmt {
	return d.stmts[id]
}

// finalize removes a statement from the registry and destroys it.
func (d *db) finalize(id uint32) error {
	stmt := d.stmts[id]
	delete(d.stmts, id)
	return d.conn.Finalize(stmt)
}

// close finalizes every registered statement and closes the connection.
func (d *db) close() error {
	for id, stmt := range d.stmts {
		_ = d.conn.Finalize(stmt)
		delete(d.stmts, id)
	}
	return d.conn.Close()
}
