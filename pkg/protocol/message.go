package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

// MessageBodySize is the soft limit of a message body. A streamed query
// batch stops after the row that pushes the body past this size.
const MessageBodySize = 4096

// MessageMaxSize is the hard limit of a message body. Writes past it fail.
const MessageMaxSize = 1 << 20

// ErrMessageFull is returned when a write would exceed the hard body limit.
var ErrMessageFull = errors.New("message body limit exceeded")

// ErrMessageEOF is returned when a read runs past the end of the body.
var ErrMessageEOF = errors.New("read past end of message body")

// Message is a request or response body. Values are written in 8-byte
// little-endian words; strings are null-terminated and padded to a word
// boundary.
type Message struct {
	body []byte
	off  int // Read cursor
}

// NewMessage creates an empty message with the standard body capacity.
func NewMessage() *Message {
	return &Message{body: make([]byte, 0, MessageBodySize)}
}

// FromBytes creates a message reading from the given body.
func FromBytes(body []byte) *Message {
	return &Message{body: body}
}

// Bytes returns the encoded body.
func (m *Message) Bytes() []byte {
	return m.body
}

// Len returns the current body length in bytes.
func (m *Message) Len() int {
	return len(m.body)
}

// Full reports whether the body has reached its soft size limit.
func (m *Message) Full() bool {
	return len(m.body) >= MessageBodySize
}

// Reset drops the body contents and rewinds the read cursor, keeping the
// allocated buffer for reuse.
func (m *Message) Reset() {
	m.body = m.body[:0]
	m.off = 0
}

// Rewind moves the read cursor back to the start of the body.
func (m *Message) Rewind() {
	m.off = 0
}

func (m *Message) room(n int) error {
	if len(m.body)+n > MessageMaxSize {
		return ErrMessageFull
	}
	return nil
}

// PutUint8 appends a single byte.
func (m *Message) PutUint8(v uint8) error {
	if err := m.room(1); err != nil {
		return err
	}
	m.body = append(m.body, v)
	return nil
}

// PutUint32 appends a 32-bit word.
func (m *Message) PutUint32(v uint32) error {
	if err := m.room(4); err != nil {
		return err
	}
	m.body = binary.LittleEndian.AppendUint32(m.body, v)
	return nil
}

// PutUint64 appends a 64-bit word.
func (m *Message) PutUint64(v uint64) error {
	if err := m.room(8); err != nil {
		return err
	}
	m.body = binary.LittleEndian.AppendUint64(m.body, v)
	return nil
}

// PutInt64 appends a signed 64-bit word.
func (m *Message) PutInt64(v int64) error {
	return m.PutUint64(uint64(v))
}

// PutFloat64 appends the IEEE 754 bits of a float.
func (m *Message) PutFloat64(v float64) error {
	return m.PutUint64(math.Float64bits(v))
}

// PutString appends a null-terminated string padded to a word boundary.
func (m *Message) PutString(s string) error {
	n := len(s) + 1
	padded := (n + 7) &^ 7
	if err := m.room(padded); err != nil {
		return err
	}
	m.body = append(m.body, s...)
	for i := n - 1; i < padded; i++ {
		m.body = append(m.body, 0)
	}
	return nil
}

// PutBlob appends a length-prefixed blob padded to a word boundary.
func (m *Message) PutBlob(b []byte) error {
	padded := (len(b) + 7) &^ 7
	if err := m.room(8 + padded); err != nil {
		return err
	}
	m.body = binary.LittleEndian.AppendUint64(m.body, uint64(len(b)))
	m.body = append(m.body, b...)
	for i := len(b); i < padded; i++ {
		m.body = append(m.body, 0)
	}
	return nil
}

// GetUint8 reads a single byte.
func (m *Message) GetUint8() (uint8, error) {
	if m.off+1 > len(m.body) {
		return 0, ErrMessageEOF
	}
	v := m.body[m.off]
	m.off++
	return v, nil
}

// GetUint32 reads a 32-bit word.
func (m *Message) GetUint32() (uint32, error) {
	if m.off+4 > len(m.body) {
		return 0, ErrMessageEOF
	}
	v := binary.LittleEndian.Uint32(m.body[m.off:])
	m.off += 4
	return v, nil
}

// GetUint64 reads a 64-bit word.
func (m *Message) GetUint64() (uint64, error) {
	if m.off+8 > len(m.body) {
		return 0, ErrMessageEOF
	}
	v := binary.LittleEndian.Uint64(m.body[m.off:])
	m.off += 8
	return v, nil
}

// GetInt64 reads a signed 64-bit word.
func (m *Message) GetInt64() (int64, error) {
	v, err := m.GetUint64()
	return int64(v), err
}

// GetFloat64 reads a float from its IEEE 754 bits.
func (m *Message) GetFloat64() (float64, error) {
	v, err := m.GetUint64()
	return math.Float64frombits(v), err
}

// GetString reads a null-terminated padded string.
func (m *Message) GetString() (string, error) {
	end := m.off
	for {
		if end >= len(m.body) {
			return "", ErrMessageEOF
		}
		if m.body[end] == 0 {
			break
		}
		end++
	}
	s := string(m.body[m.off:end])
	m.off += ((end - m.off + 1 + 7) &^ 7)
	if m.off > len(m.body) {
		m.off = len(m.body)
	}
	return s, nil
}

// GetBlob reads a length-prefixed padded blob.
func (m *Message) GetBlob() ([]byte, error) {
	n, err := m.GetUint64()
	if err != nil {
		return nil, err
	}
	padded := (int(n) + 7) &^ 7
	if m.off+padded > len(m.body) {
		return nil, ErrMessageEOF
	}
	b := make([]byte, n)
	copy(b, m.body[m.off:m.off+int(n)])
	m.off += padded
	return b, nil
}

// Exhausted reports whether the read cursor has consumed the whole body.
func (m *Message) Exhausted() bool {
	return m.off >= len(m.body)
}
