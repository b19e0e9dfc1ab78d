package sqlite

import (
	"github.com/mattn/go-sqlite3"

	"github.com/DeBrosOfficial/dsql/pkg/engine"
)

// wrapError converts a driver error into an engine.Error, preserving the
// SQLite result code when one is available.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(sqlite3.Error); ok {
		return &engine.Error{Code: int(e.Code), Message: e.Error()}
	}
	return &engine.Error{Code: engine.CodeError, Message: err.Error()}
}
