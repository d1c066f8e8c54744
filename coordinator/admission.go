package coordinator

import (
	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/events"
)

// AddTransaction admits tx to the pending queue. The façade has already
// checked hash/from/signature; this re-checks sequence and balance. The
// expected sequence is the one after the sender's last queued transaction
// (the committed sequence when none is queued); the balance check uses the
// committed balance only, ignoring pending debits, since CommitBlock
// re-executes every transaction against the running state anyway.
func (c *Coordinator) AddTransaction(tx *core.Transaction) error {
	return c.transact(func() error {
		if c.queue.HasHash(tx.Hash) {
			return core.NewError(core.KindDuplicateTransaction, "tx %s already queued", tx.Hash)
		}
		expected := c.state.SequenceOf(tx.From)
		for _, q := range c.queue.Transactions {
			if q.From == tx.From && q.Sequence+1 > expected {
				expected = q.Sequence + 1
			}
		}
		if tx.Sequence != expected {
			return core.NewError(core.KindSequenceMismatch, "expected sequence %d, got %d", expected, tx.Sequence)
		}
		if c.state.BalanceOf(tx.From).LessThan(tx.Amount) {
			return core.NewError(core.KindInsufficientBalance, "balance %s insufficient for amount %s",
				c.state.BalanceOf(tx.From).String(), tx.Amount.String())
		}
		c.queue.Transactions = append(c.queue.Transactions, tx)
		c.state.LastUpdatedMs = nowMs()
		c.emit(events.Event{Type: events.EventTxAdmitted, TxHash: tx.Hash})
		return nil
	})
}
