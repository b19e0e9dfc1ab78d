package gateway

import (
	"encoding/binary"
	"testing"

	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/wal"
)

// walIndexRegion builds a fake WAL-index region with the given mxFrame and
// read marks, using the on-disk layout the decoder expects.
func walIndexRegion(mxFrame uint32, readMarks [wal.NReader]uint32) []byte {
	region := make([]byte, wal.IndexSize)
	binary.LittleEndian.PutUint32(region[16:], mxFrame)
	for i, mark := range readMarks {
		binary.LittleEndian.PutUint32(region[100+4*i:], mark)
	}
	return region
}

// checkpointFixture opens a database and wires a scripted shm file behind
// its WAL hook.
func checkpointFixture(t *testing.T, shm *fakeShm) (*fakeCluster, *fakeConn) {
	t.Helper()
	g, cl, opener, recorder := newTestGateway(t)
	conn := openDb(t, g, opener, recorder)
	conn.shm = shm
	return cl, conn
}

func TestCheckpoint_BelowThreshold(t *testing.T) {
	shm := &fakeShm{region: walIndexRegion(500, [wal.NReader]uint32{})}
	cl, conn := checkpointFixture(t, shm)

	rc := conn.hook(999) // Threshold is 1000
	if rc != engine.CodeOK {
		t.Fatalf("Expected ok, got %d", rc)
	}
	if shm.regionReads != 0 {
		t.Errorf("Expected zero shared-memory reads below the threshold, got %d", shm.regionReads)
	}
	if cl.checkpointCalls != 0 {
		t.Errorf("Expected no checkpoint below the threshold")
	}
}

func TestCheckpoint_AllReadersClear(t *testing.T) {
	// Readers 1 and 3 have marks behind mxFrame but hold no lock.
	shm := &fakeShm{
		region: walIndexRegion(2000, [wal.NReader]uint32{0, 100, 2000, 500, 2000}),
		busy:   map[int]bool{},
	}
	cl, conn := checkpointFixture(t, shm)

	rc := conn.hook(1500)
	if rc != engine.CodeOK {
		t.Fatalf("Expected ok, got %d", rc)
	}
	if cl.checkpointCalls != 1 {
		t.Fatalf("Expected one replicated checkpoint, got %d", cl.checkpointCalls)
	}
	// Only the lagging marks were probed, and each probe was released.
	if len(shm.locked) != 2 || shm.locked[0] != 1 || shm.locked[1] != 3 {
		t.Errorf("Expected probes on readers 1 and 3, got %v", shm.locked)
	}
	if len(shm.unlocked) != len(shm.locked) {
		t.Errorf("Expected every probe lock to be released, locked %v unlocked %v",
			shm.locked, shm.unlocked)
	}
}

func TestCheckpoint_BusyReaderPostpones(t *testing.T) {
	shm := &fakeShm{
		region: walIndexRegion(2000, [wal.NReader]uint32{0, 100, 2000, 2000, 2000}),
		busy:   map[int]bool{1: true},
	}
	cl, conn := checkpointFixture(t, shm)

	rc := conn.hook(1500)
	if rc != engine.CodeOK {
		t.Fatalf("Expected ok even when postponing, got %d", rc)
	}
	if cl.checkpointCalls != 0 {
		t.Errorf("Expected no checkpoint while a reader lock is held")
	}
}

func TestCheckpoint_FailureSwallowed(t *testing.T) {
	shm := &fakeShm{
		region: walIndexRegion(2000, [wal.NReader]uint32{}),
		busy:   map[int]bool{},
	}
	cl, conn := checkpointFixture(t, shm)
	cl.checkpointRC = 5

	rc := conn.hook(1500)
	if rc != engine.CodeOK {
		t.Fatalf("Expected the hook to swallow the checkpoint failure, got %d", rc)
	}
	if cl.checkpointCalls != 1 {
		t.Errorf("Expected the checkpoint to have been attempted")
	}
}
