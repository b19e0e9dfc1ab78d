// Package wal decodes the WAL-index ("shm") header of an SQLite database
// and exposes the reader-lock probes the checkpoint decision needs. The
// layout mirrors the one in SQLite's wal.c: two copies of the 48-byte index
// header, the checkpoint info block with the backfill counter and one read
// mark per reader slot, then the lock bytes.
package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// NReader is the number of reader slots in the WAL index.
	NReader = 5

	// headerSize is the size of one copy of the index header.
	headerSize = 48

	// mxFrameOffset locates mxFrame inside a header copy: iVersion (4),
	// unused (4), iChange (4), isInit/bigEndCksum/szPage (4).
	mxFrameOffset = 16

	// nBackfillOffset locates the backfill counter, right after the two
	// header copies.
	nBackfillOffset = 2 * headerSize

	// readMarkOffset locates the first read mark.
	readMarkOffset = nBackfillOffset + 4

	// LockOffset locates the first WAL lock byte in the shm file. The
	// write, checkpoint and recovery locks come first; the read lock of
	// reader slot i is byte LockOffset+readLockBase+i.
	LockOffset = readMarkOffset + 4*NReader

	// readLockBase is the index of reader slot 0's lock among the WAL
	// lock bytes.
	readLockBase = 3

	// IndexSize is the number of bytes a region must provide to cover
	// the header and the read marks.
	IndexSize = LockOffset
)

// ErrShortIndex is returned when a region is too small to hold the header.
var ErrShortIndex = errors.New("wal index region too short")

// Index is a read-only view of the first shared-memory region of a WAL
// database. The index is written in the native byte order of the writing
// process; the supported targets are little-endian and the fields are
// decoded explicitly as such.
type Index struct {
	region []byte
}

// NewIndex wraps a shared-memory region. The region must cover at least
// the header copies and the checkpoint info block.
func NewIndex(region []byte) (*Index, error) {
	if len(region) < IndexSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortIndex, len(region))
	}
	return &Index{region: region}, nil
}

// MxFrame returns the highest valid frame number in the WAL. Frames beyond
// it are not yet committed.
func (i *Index) MxFrame() uint32 {
	return binary.LittleEndian.Uint32(i.region[mxFrameOffset:])
}

// Backfill returns the number of frames already copied back into the
// database file.
func (i *Index) Backfill() uint32 {
	return binary.LittleEndian.Uint32(i.region[nBackfillOffset:])
}

// ReadMark returns the frame frontier of reader slot n in 0..NReader-1.
// A reader holding slot n may still observe frames up to this mark.
func (i *Index) ReadMark(n int) uint32 {
	if n < 0 || n >= NReader {
		panic(fmt.Sprintf("reader slot %d out of range", n))
	}
	return binary.LittleEndian.Uint32(i.region[readMarkOffset+4*n:])
}

// ReadMarks returns all reader frontiers.
func (i *Index) ReadMarks() [NReader]uint32 {
	var marks [NReader]uint32
	for n := 0; n < NReader; n++ {
		marks[n] = i.ReadMark(n)
	}
	return marks
}
