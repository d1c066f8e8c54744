package coordinator

import (
	"time"

	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
	"github.com/tolelom/quorumchain/events"
)

// AcquireProcessingLock begins a round, returning a FIFO snapshot of the
// queue. A lock older than consensusTimeoutMs is considered stale and is
// silently taken over.
func (c *Coordinator) AcquireProcessingLock() ([]*core.Transaction, error) {
	var snapshot []*core.Transaction
	err := c.transact(func() error {
		if c.queue.Processing && nowMs()-c.queue.ProcessingStartedAtMs < c.config.ConsensusTimeoutMs {
			return core.NewError(core.KindRoundInProgress, "round already in progress")
		}
		if len(c.queue.Transactions) == 0 {
			return core.NewError(core.KindEmpty, "queue is empty")
		}
		c.queue.Processing = true
		c.queue.ProcessingStartedAtMs = nowMs()
		snapshot = make([]*core.Transaction, len(c.queue.Transactions))
		copy(snapshot, c.queue.Transactions)
		return nil
	})
	return snapshot, err
}

// ReleaseProcessingLock clears the round lock. clearQueue empties the
// queue entirely; in the normal flow this is always false since
// CommitBlock removes only the executed transactions.
func (c *Coordinator) ReleaseProcessingLock(clearQueue bool) error {
	err := c.transact(func() error {
		c.queue.Processing = false
		c.queue.ProcessingStartedAtMs = 0
		c.queue.CurrentBlock = nil
		if clearQueue {
			c.queue.Clear()
		}
		return nil
	})
	c.wd.Disarm()
	return err
}

// PackBlock assembles a candidate block from the first
// min(blockMaxTxs, |queue|) queued transactions and arms the watchdog.
func (c *Coordinator) PackBlock(proposerID core.Address) (*core.Block, error) {
	var block *core.Block
	err := c.transact(func() error {
		if len(c.queue.Transactions) == 0 {
			return core.NewError(core.KindEmpty, "queue is empty")
		}
		n := c.config.BlockMaxTxs
		txs := c.queue.Take(n)

		stateRoot, _, err := core.SimulateStateRoot(c.state, txs)
		if err != nil {
			return err
		}
		b, err := core.NewBlock(c.state.LatestHeight+1, c.state.LatestHash, proposerID, txs, nowMs())
		if err != nil {
			return err
		}
		b.Header.StateRoot = stateRoot
		hash, err := b.ComputeHash()
		if err != nil {
			return err
		}
		b.Hash = hash

		c.queue.Processing = true
		c.queue.CurrentBlock = b
		block = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	watchdogMs := c.Config().WatchdogTimeoutMs
	c.wd.Arm(time.Duration(watchdogMs) * time.Millisecond)
	return block, nil
}

// CommitSummary is returned to the proposer on a successful commit.
type CommitSummary struct {
	Height   uint64
	Hash     string
	TxCount  int
	ElapsedMs int64
}

// CommitBlock validates quorum and height/parent linkage, re-executes the
// block's transactions against the running state (skipping any that no
// longer validate, never aborting the whole commit), and atomically
// advances world state and history.
func (c *Coordinator) CommitBlock(block *core.Block, votes []core.Vote) (*CommitSummary, error) {
	start := nowMs()
	var summary *CommitSummary
	err := c.transact(func() error {
		if block.Header.Height != c.state.LatestHeight+1 {
			return core.NewError(core.KindWrongHeight, "expected height %d, got %d", c.state.LatestHeight+1, block.Header.Height)
		}
		if block.Header.PrevHash != c.state.LatestHash {
			return core.NewError(core.KindWrongParent, "expected prevHash %s, got %s", c.state.LatestHash, block.Header.PrevHash)
		}

		proposerPub, err := crypto.PubKeyFromHex(c.config.ProposerPublicKey)
		if err != nil {
			return core.NewError(core.KindMalformedRequest, "invalid configured proposer key: %v", err)
		}
		if err := block.VerifyProposerSignature(proposerPub); err != nil {
			return core.NewError(core.KindInvalidSignature, "proposer signature invalid")
		}

		validCount, seen := 0, make(map[string]bool)
		preimage := block.SignaturePreimage()
		for _, v := range votes {
			if !c.config.IsValidator(v.ValidatorPubKey) || seen[v.ValidatorPubKey] {
				continue
			}
			pub, err := crypto.PubKeyFromHex(v.ValidatorPubKey)
			if err != nil {
				continue
			}
			if crypto.Verify(pub, preimage, v.Signature) != nil {
				continue
			}
			seen[v.ValidatorPubKey] = true
			validCount++
		}
		if validCount < c.config.RequiredSignatures {
			return core.NewError(core.KindInsufficientSigs, "have %d valid signatures, need %d", validCount, c.config.RequiredSignatures)
		}

		running := c.state.Clone()
		res := core.Apply(running, block.Transactions)
		running.LatestHeight = block.Header.Height
		running.LatestHash = block.Hash
		running.TotalTx += uint64(len(res.Executed))
		running.LastUpdatedMs = nowMs()
		c.state = running

		if err := c.history.Append(block); err != nil {
			return err
		}

		executedHashes := make(map[string]bool, len(res.Executed))
		for _, tx := range res.Executed {
			executedHashes[tx.Hash] = true
		}
		c.queue.RemoveByHash(executedHashes)
		c.queue.Processing = false
		c.queue.ProcessingStartedAtMs = 0
		c.queue.CurrentBlock = nil

		c.persistState()
		c.emit(events.Event{Type: events.EventBlockCommitted, BlockHeight: block.Header.Height})

		summary = &CommitSummary{
			Height:    block.Header.Height,
			Hash:      block.Hash,
			TxCount:   len(res.Executed),
			ElapsedMs: nowMs() - start,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.wd.Disarm()
	c.maybeScheduleBackup()
	return summary, nil
}
