package core

// PendingQueue is the FIFO of admitted, not-yet-committed transactions,
// plus the round-in-progress bookkeeping the coordinator's lock uses.
type PendingQueue struct {
	Transactions         []*Transaction `json:"transactions"`
	Processing           bool           `json:"processing"`
	ProcessingStartedAtMs int64         `json:"processingStartedAt_ms,omitempty"`
	CurrentBlock         *Block         `json:"currentBlock,omitempty"`
}

// NewPendingQueue returns an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{}
}

// HasHash reports whether a transaction with the given hash is already
// queued.
func (q *PendingQueue) HasHash(hash string) bool {
	for _, tx := range q.Transactions {
		if tx.Hash == hash {
			return true
		}
	}
	return false
}

// Take returns the first n transactions (FIFO order), n = min(n, len).
func (q *PendingQueue) Take(n int) []*Transaction {
	if n > len(q.Transactions) {
		n = len(q.Transactions)
	}
	out := make([]*Transaction, n)
	copy(out, q.Transactions[:n])
	return out
}

// RemoveByHash drops every transaction whose hash is in hashes, preserving
// the relative order of the survivors.
func (q *PendingQueue) RemoveByHash(hashes map[string]bool) {
	if len(hashes) == 0 {
		return
	}
	kept := q.Transactions[:0:0]
	for _, tx := range q.Transactions {
		if !hashes[tx.Hash] {
			kept = append(kept, tx)
		}
	}
	q.Transactions = kept
}

// Clear empties the queue entirely.
func (q *PendingQueue) Clear() {
	q.Transactions = nil
}
