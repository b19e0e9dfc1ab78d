package gateway

import (
	"errors"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/dsql/pkg/engine"
	"github.com/DeBrosOfficial/dsql/pkg/logging"
	"github.com/DeBrosOfficial/dsql/pkg/wal"
)

// maybeCheckpoint runs as the WAL hook after every committed write. It
// asks the cluster for a replicated checkpoint once the WAL has grown past
// the configured threshold and no reading transaction is in progress
// (there can be no writing transaction, since the hook runs after a
// successful commit). Errors never propagate to the engine; a skipped
// checkpoint is retried at the next commit.
func (g *Gateway) maybeCheckpoint(pages int) int {
	if uint32(pages) < g.options.CheckpointThreshold {
		// Nothing to do yet.
		return engine.CodeOK
	}

	shm, err := g.db.conn.ShmFile()
	if err != nil {
		g.logger.ComponentDebug(logging.ComponentGateway, "Checkpoint skipped: no wal index",
			zap.Error(err))
		return engine.CodeOK
	}
	defer shm.Close()

	region, err := shm.Region0()
	if err != nil {
		g.logger.ComponentDebug(logging.ComponentGateway, "Checkpoint skipped: wal index unreadable",
			zap.Error(err))
		return engine.CodeOK
	}
	index, err := wal.NewIndex(region)
	if err != nil {
		g.logger.ComponentDebug(logging.ComponentGateway, "Checkpoint skipped: wal index malformed",
			zap.Error(err))
		return engine.CodeOK
	}

	mxFrame := index.MxFrame()

	// Check each read mark and its lock. The logic mirrors the engine's
	// own walCheckpoint safety test, with a cluster-wide checkpoint at
	// the end instead of a local one.
	for i := 1; i < wal.NReader; i++ {
		if mxFrame <= index.ReadMark(i) {
			continue
		}
		// The read mark is set; a reader may still observe frames
		// that a checkpoint would move back into the database.
		if err := shm.TryLockReader(i); err != nil {
			if !errors.Is(err, wal.ErrBusy) {
				g.logger.ComponentDebug(logging.ComponentGateway, "Checkpoint skipped: lock probe failed",
					zap.Int("reader", i), zap.Error(err))
				return engine.CodeOK
			}
			// An active reader holds the slot; postpone.
			return engine.CodeOK
		}
		// Nobody was there; drop the probe lock right away.
		if err := shm.UnlockReader(i); err != nil {
			g.logger.ComponentDebug(logging.ComponentGateway, "Checkpoint skipped: unlock failed",
				zap.Int("reader", i), zap.Error(err))
			return engine.CodeOK
		}
	}

	if rc := g.cluster.Checkpoint(g.db.conn); rc != 0 {
		// The engine retries at the next commit.
		g.logger.ComponentDebug(logging.ComponentGateway, "Replicated checkpoint failed",
			zap.Int("code", rc))
	}

	return engine.CodeOK
}
