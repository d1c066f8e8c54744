package coordinator

import (
	"context"

	"github.com/tolelom/quorumchain/backup"
	"github.com/tolelom/quorumchain/core"
)

// Restore validates and installs a previously backed-up world state.
// The restored WorldState replaces the current one whole, including its
// latestHeight and latestHash, and the pending queue is cleared; block
// history is not rebuilt from the backup. The backup service guards the
// call (anti-rollback, chain at height zero unless forced).
func (c *Coordinator) Restore(ctx context.Context, req backup.RestoreRequest) error {
	if c.backupSvc == nil {
		return core.NewError(core.KindMalformedRequest, "backup service not configured")
	}
	c.mu.Lock()
	currentHeight := c.state.LatestHeight
	c.mu.Unlock()

	state, err := c.backupSvc.Restore(ctx, req, currentHeight)
	if err != nil {
		return err
	}
	return c.transact(func() error {
		c.state = state
		c.queue = core.NewPendingQueue()
		c.persistState()
		return nil
	})
}
