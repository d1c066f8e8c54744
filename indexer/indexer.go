// Package indexer maintains a secondary index of transaction hashes by
// address, so getTransactionsByAddress doesn't have to scan full history.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/events"
	"github.com/tolelom/quorumchain/storage"
)

const prefixAddrTxs = "idx:addr:txs:"

// Indexer subscribes to EventBlockCommitted and maintains, per address, the
// ordered list of transaction hashes where that address is sender or
// recipient.
type Indexer struct {
	db      storage.DB
	history *core.BlockHistory
	emitter *events.Emitter
}

// New creates an Indexer backed by db, reading committed blocks from
// history, and subscribes to block-commit events.
func New(db storage.DB, history *core.BlockHistory, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, history: history, emitter: emitter}
	emitter.Subscribe(events.EventBlockCommitted, idx.onBlockCommitted)
	return idx
}

// GetTransactionsByAddress returns every indexed transaction hash for
// addr, in commit order.
func (idx *Indexer) GetTransactionsByAddress(addr core.Address) ([]string, error) {
	return idx.getList(prefixAddrTxs + string(addr))
}

func (idx *Indexer) onBlockCommitted(ev events.Event) {
	block, err := idx.history.ByHeight(ev.BlockHeight)
	if err != nil {
		log.Printf("[indexer] read block %d: %v", ev.BlockHeight, err)
		return
	}
	for _, tx := range block.Transactions {
		if err := idx.addToList(prefixAddrTxs+string(tx.From), tx.Hash); err != nil {
			log.Printf("[indexer] index sender %s for tx %s: %v", tx.From, tx.Hash, err)
		}
		if tx.To != tx.From {
			if err := idx.addToList(prefixAddrTxs+string(tx.To), tx.Hash); err != nil {
				log.Printf("[indexer] index recipient %s for tx %s: %v", tx.To, tx.Hash, err)
			}
		}
	}
}

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return hashes, nil
}

func (idx *Indexer) addToList(key, value string) error {
	hashes, err := idx.getList(key)
	if err != nil {
		return fmt.Errorf("read list: %w", err)
	}
	for _, h := range hashes {
		if h == value {
			return nil
		}
	}
	hashes = append(hashes, value)
	data, err := json.Marshal(hashes)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
