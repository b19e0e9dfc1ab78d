package protocol

import "fmt"

// Column value type tags, matching the SQLite fundamental datatypes.
const (
	TypeInteger uint8 = 1
	TypeFloat   uint8 = 2
	TypeText    uint8 = 3
	TypeBlob    uint8 = 4
	TypeNull    uint8 = 5
)

// Value is a single bind parameter or column value: int64, float64, string,
// []byte or nil.
type Value interface{}

func valueType(v Value) (uint8, error) {
	switch v.(type) {
	case nil:
		return TypeNull, nil
	case int64:
		return TypeInteger, nil
	case float64:
		return TypeFloat, nil
	case string:
		return TypeText, nil
	case []byte:
		return TypeBlob, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

func putValue(m *Message, v Value) error {
	switch v := v.(type) {
	case nil:
		return nil
	case int64:
		return m.PutInt64(v)
	case float64:
		return m.PutFloat64(v)
	case string:
		return m.PutString(v)
	case []byte:
		return m.PutBlob(v)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

func getValue(m *Message, kind uint8) (Value, error) {
	switch kind {
	case TypeNull:
		return nil, nil
	case TypeInteger:
		return m.GetInt64()
	case TypeFloat:
		return m.GetFloat64()
	case TypeText:
		return m.GetString()
	case TypeBlob:
		return m.GetBlob()
	default:
		return nil, fmt.Errorf("unknown value type tag %d", kind)
	}
}

// EncodeParams appends bind parameters to a request message: a one-byte
// count, the type tags padded to a word boundary, then the values.
func EncodeParams(m *Message, values []Value) error {
	if len(values) > 255 {
		return fmt.Errorf("too many bind parameters: %d", len(values))
	}
	if err := m.PutUint8(uint8(len(values))); err != nil {
		return err
	}
	for _, v := range values {
		kind, err := valueType(v)
		if err != nil {
			return err
		}
		if err := m.PutUint8(kind); err != nil {
			return err
		}
	}
	for pad := (8 - (1+len(values))%8) % 8; pad > 0; pad-- {
		if err := m.PutUint8(0); err != nil {
			return err
		}
	}
	for _, v := range values {
		if err := putValue(m, v); err != nil {
			return err
		}
	}
	return nil
}

// DecodeParams reads bind parameters from the trailing bytes of a request
// message. An empty body decodes as no parameters.
func DecodeParams(m *Message) ([]Value, error) {
	if m.Exhausted() {
		return nil, nil
	}
	count, err := m.GetUint8()
	if err != nil {
		return nil, err
	}
	kinds := make([]uint8, count)
	for i := range kinds {
		if kinds[i], err = m.GetUint8(); err != nil {
			return nil, err
		}
	}
	for pad := (8 - (1+int(count))%8) % 8; pad > 0; pad-- {
		if _, err := m.GetUint8(); err != nil {
			return nil, err
		}
	}
	values := make([]Value, count)
	for i := range values {
		if values[i], err = getValue(m, kinds[i]); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// RowWriter encodes query result rows into a response message. The column
// header is written once at construction; each row carries its own type
// tags so a column may change type between rows.
type RowWriter struct {
	msg     *Message
	columns int
}

// NewRowWriter writes the column header and returns a writer for the rows.
func NewRowWriter(m *Message, columns []string) (*RowWriter, error) {
	if err := m.PutUint64(uint64(len(columns))); err != nil {
		return nil, err
	}
	for _, name := range columns {
		if err := m.PutString(name); err != nil {
			return nil, err
		}
	}
	return &RowWriter{msg: m, columns: len(columns)}, nil
}

// WriteRow appends one row. After a successful write the caller checks
// Message.Full to decide whether the batch is complete.
func (w *RowWriter) WriteRow(values []Value) error {
	if len(values) != w.columns {
		return fmt.Errorf("row has %d values, want %d", len(values), w.columns)
	}
	for _, v := range values {
		kind, err := valueType(v)
		if err != nil {
			return err
		}
		if err := w.msg.PutUint8(kind); err != nil {
			return err
		}
	}
	for pad := (8 - len(values)%8) % 8; pad > 0; pad-- {
		if err := w.msg.PutUint8(0); err != nil {
			return err
		}
	}
	for _, v := range values {
		if err := putValue(w.msg, v); err != nil {
			return err
		}
	}
	return nil
}

// RowReader decodes the rows payload of a response message.
type RowReader struct {
	msg     *Message
	columns []string
}

// NewRowReader reads the column header and returns a reader for the rows.
func NewRowReader(m *Message) (*RowReader, error) {
	n, err := m.GetUint64()
	if err != nil {
		return nil, err
	}
	columns := make([]string, n)
	for i := range columns {
		if columns[i], err = m.GetString(); err != nil {
			return nil, err
		}
	}
	return &RowReader{msg: m, columns: columns}, nil
}

// Columns returns the column names.
func (r *RowReader) Columns() []string {
	return r.columns
}

// More reports whether another row can be read.
func (r *RowReader) More() bool {
	return !r.msg.Exhausted()
}

// ReadRow decodes the next row.
func (r *RowReader) ReadRow() ([]Value, error) {
	kinds := make([]uint8, len(r.columns))
	for i := range kinds {
		var err error
		if kinds[i], err = r.msg.GetUint8(); err != nil {
			return nil, err
		}
	}
	for pad := (8 - len(r.columns)%8) % 8; pad > 0; pad-- {
		if _, err := r.msg.GetUint8(); err != nil {
			return nil, err
		}
	}
	values := make([]Value, len(r.columns))
	for i := range values {
		var err error
		if values[i], err = getValue(r.msg, kinds[i]); err != nil {
			return nil, err
		}
	}
	return values, nil
}
