package sqlite

import (
	"database/sql/driver"
	"fmt"
	"io"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
)

// stmt implements engine.Stmt. A partially consumed query keeps its driver
// cursor open across batches.
type stmt struct {
	c      *conn
	ss     *sqlite3.SQLiteStmt
	params []driver.NamedValue
	rows   driver.Rows
}

func (s *stmt) NumParams() int {
	return s.ss.NumInput()
}

func (s *stmt) Bind(values []protocol.Value) error {
	want := s.ss.NumInput()
	if want >= 0 && len(values) != want {
		return &engine.Error{
			Code:    engine.CodeRange,
			Message: fmt.Sprintf("statement expects %d parameters, got %d", want, len(values)),
		}
	}
	params := make([]driver.NamedValue, len(values))
	for i, v := range values {
		params[i] = driver.NamedValue{Ordinal: i + 1, Value: driver.Value(v)}
	}
	s.params = params
	return nil
}

func (s *stmt) Exec() (uint64, uint64, error) {
	args := make([]driver.Value, len(s.params))
	for i, p := range s.params {
		args[i] = p.Value
	}
	res, err := s.ss.Exec(args)
	if err != nil {
		return 0, 0, wrapError(err)
	}
	last, err := res.LastInsertId()
	if err != nil {
		return 0, 0, wrapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, 0, wrapError(err)
	}
	return uint64(last), uint64(affected), nil
}

func (s *stmt) Query(msg *protocol.Message) (bool, error) {
	if s.rows == nil {
		ctx := s.c.queryContext()
		rows, err := s.ss.QueryContext(ctx, s.params)
		if err != nil {
			s.c.clearCancel()
			return false, wrapError(err)
		}
		s.rows = rows
	}

	writer, err := protocol.NewRowWriter(msg, s.rows.Columns())
	if err != nil {
		return false, s.abandon(err)
	}

	dest := make([]driver.Value, len(s.rows.Columns()))
	for {
		if err := s.rows.Next(dest); err != nil {
			if err == io.EOF {
				s.closeRows()
				return false, nil
			}
			return false, s.abandon(err)
		}
		row := make([]protocol.Value, len(dest))
		for i, v := range dest {
			row[i] = toValue(v)
		}
		if err := writer.WriteRow(row); err != nil {
			return false, s.abandon(err)
		}
		if msg.Full() {
			// One more row was written and the body is now full;
			// the rest of the cursor waits for the next batch.
			return true, nil
		}
	}
}

// abandon closes the cursor after an error so a later Query starts fresh.
func (s *stmt) abandon(err error) error {
	s.closeRows()
	return wrapError(err)
}

func (s *stmt) closeRows() {
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
	s.c.clearCancel()
}

func (s *stmt) close() error {
	s.closeRows()
	return wrapError(s.ss.Close())
}

// toValue maps a driver value to a protocol value.
func toValue(v driver.Value) protocol.Value {
	switch v := v.(type) {
	case nil:
		return nil
	case int64:
		return v
	case float64:
		return v
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case string:
		return v
	case []byte:
		return append([]byte(nil), v...)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
