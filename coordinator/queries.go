package coordinator

import (
	"github.com/tolelom/quorumchain/core"
)

// AccountView is the public shape of one account's read state.
type AccountView struct {
	Address         core.Address
	Balance         core.Amount
	Sequence        uint64
	PendingSequence uint64 // last queued tx's sequence + 1, or the committed sequence if none is queued
}

// QueryState returns a point-in-time clone of the world state. Reads
// never block on the write lock longer than a map copy.
func (c *Coordinator) QueryState() *core.WorldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// QueryAccount returns balance, committed sequence, and pending sequence
// (the sequence after the sender's last queued transaction, or the
// committed sequence if the sender has nothing queued).
func (c *Coordinator) QueryAccount(addr core.Address) AccountView {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.state.SequenceOf(addr)
	pending := seq
	for _, tx := range c.queue.Transactions {
		if tx.From == addr {
			pending = tx.Sequence + 1
		}
	}
	return AccountView{
		Address:         addr,
		Balance:         c.state.BalanceOf(addr),
		Sequence:        seq,
		PendingSequence: pending,
	}
}

// QueryBlock returns the block at height h.
func (c *Coordinator) QueryBlock(h uint64) (*core.Block, error) {
	return c.history.ByHeight(h)
}

// QueryBlocksRange returns up to limit blocks starting at height start.
func (c *Coordinator) QueryBlocksRange(start uint64, limit int) ([]*core.Block, error) {
	return c.history.Range(start, limit)
}

// QueryLatestBlock returns the block at the current tip.
func (c *Coordinator) QueryLatestBlock() (*core.Block, error) {
	return c.history.Latest()
}

// QueryTransaction searches committed history and the pending queue for a
// transaction with the given hash.
func (c *Coordinator) QueryTransaction(hash string) (*core.Transaction, bool /*pending*/, error) {
	c.mu.Lock()
	for _, tx := range c.queue.Transactions {
		if tx.Hash == hash {
			c.mu.Unlock()
			return tx, true, nil
		}
	}
	height := c.state.LatestHeight
	c.mu.Unlock()

	for h := int64(height); h >= 0; h-- {
		block, err := c.history.ByHeight(uint64(h))
		if err != nil {
			if err == core.ErrNotFound {
				continue
			}
			return nil, false, err
		}
		for _, tx := range block.Transactions {
			if tx.Hash == hash {
				return tx, false, nil
			}
		}
	}
	return nil, false, core.ErrNotFound
}

// GetTransactionsByAddress returns every transaction where addr is sender
// or recipient, across the pending queue and committed history. When an
// indexer is configured, committed history is resolved through it
// instead of a linear scan over every block.
func (c *Coordinator) GetTransactionsByAddress(addr core.Address) ([]*core.Transaction, error) {
	c.mu.Lock()
	var out []*core.Transaction
	for _, tx := range c.queue.Transactions {
		if tx.From == addr || tx.To == addr {
			out = append(out, tx)
		}
	}
	height := c.state.LatestHeight
	c.mu.Unlock()

	if c.idx != nil {
		hashes, err := c.idx.GetTransactionsByAddress(addr)
		if err != nil {
			return nil, err
		}
		for _, h := range hashes {
			tx, _, err := c.QueryTransaction(h)
			if err != nil {
				return nil, err
			}
			out = append(out, tx)
		}
		return out, nil
	}

	for h := uint64(0); h <= height; h++ {
		block, err := c.history.ByHeight(h)
		if err != nil {
			return nil, err
		}
		for _, tx := range block.Transactions {
			if tx.From == addr || tx.To == addr {
				out = append(out, tx)
			}
		}
	}
	return out, nil
}
