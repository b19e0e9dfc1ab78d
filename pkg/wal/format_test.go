package wal

import (
	"encoding/binary"
	"testing"
)

func testRegion(mxFrame uint32, backfill uint32, marks [NReader]uint32) []byte {
	region := make([]byte, IndexSize)
	binary.LittleEndian.PutUint32(region[mxFrameOffset:], mxFrame)
	binary.LittleEndian.PutUint32(region[nBackfillOffset:], backfill)
	for i, mark := range marks {
		binary.LittleEndian.PutUint32(region[readMarkOffset+4*i:], mark)
	}
	return region
}

func TestIndex_Decoding(t *testing.T) {
	marks := [NReader]uint32{0, 17, 0xFFFFFFFF, 42, 1000}
	index, err := NewIndex(testRegion(1234, 56, marks))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	if index.MxFrame() != 1234 {
		t.Errorf("Expected mxFrame 1234, got %d", index.MxFrame())
	}
	if index.Backfill() != 56 {
		t.Errorf("Expected backfill 56, got %d", index.Backfill())
	}
	for i, want := range marks {
		if got := index.ReadMark(i); got != want {
			t.Errorf("Expected read mark %d for reader %d, got %d", want, i, got)
		}
	}
	if index.ReadMarks() != marks {
		t.Errorf("Expected read marks %v, got %v", marks, index.ReadMarks())
	}
}

func TestIndex_ShortRegion(t *testing.T) {
	if _, err := NewIndex(make([]byte, IndexSize-1)); err == nil {
		t.Errorf("Expected an error for a short region")
	}
}

func TestIndex_ReadMarkOutOfRange(t *testing.T) {
	index, err := NewIndex(testRegion(0, 0, [NReader]uint32{}))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("Expected a panic for an out-of-range reader slot")
		}
	}()
	index.ReadMark(NReader)
}

func TestLockLayout(t *testing.T) {
	// The lock bytes live right behind the read marks; the layout is
	// load bearing for interoperability with live engine connections.
	if LockOffset != 120 {
		t.Errorf("Expected the first lock byte at offset 120, got %d", LockOffset)
	}
	if readMarkOffset != 100 {
		t.Errorf("Expected the first read mark at offset 100, got %d", readMarkOffset)
	}
}
