package coordinator

import (
	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/core"
)

// InitGenesis replaces the entire coordinator record with a freshly built
// genesis block and its resulting state, unless the chain has already
// advanced past height 0 and force is false.
func (c *Coordinator) InitGenesis(gcfg *config.GenesisConfig, force bool) error {
	return c.transact(func() error {
		if c.state.LatestHeight > 0 && !force {
			return core.NewError(core.KindAlreadyInitialised, "chain already initialised at height %d", c.state.LatestHeight)
		}
		block, state, consensus, err := config.BuildGenesisBlock(gcfg)
		if err != nil {
			return err
		}
		if c.state.LatestHeight > 0 {
			// force reinit over an already-advanced chain: wipe the old
			// chain's blocks so none of them can outlive the new genesis
			// at heights the new chain hasn't produced yet.
			if err := c.history.Reset(); err != nil {
				return err
			}
		}
		if err := c.history.Append(block); err != nil {
			return err
		}
		c.state = state
		c.queue = core.NewPendingQueue()
		c.config = consensus
		c.persistState()
		return nil
	})
}
