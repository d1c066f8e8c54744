package storage

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/quorumchain/core"
)

// LevelBlockStore implements core.BlockStore on top of a DB.
type LevelBlockStore struct {
	db DB
}

// NewLevelBlockStore wraps a DB as a BlockStore.
func NewLevelBlockStore(db DB) *LevelBlockStore {
	return &LevelBlockStore{db: db}
}

func (s *LevelBlockStore) PutBlock(block *core.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}
	return s.db.Set([]byte("block:"+block.Hash), data)
}

func (s *LevelBlockStore) GetBlock(hash string) (*core.Block, error) {
	data, err := s.db.Get([]byte("block:" + hash))
	if err != nil {
		return nil, err
	}
	var b core.Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *LevelBlockStore) PutBlockByHeight(height uint64, hash string) error {
	return s.db.Set(heightKey(height), []byte(hash))
}

func (s *LevelBlockStore) GetBlockByHeight(height uint64) (*core.Block, error) {
	hash, err := s.db.Get(heightKey(height))
	if err != nil {
		return nil, err
	}
	return s.GetBlock(string(hash))
}

func (s *LevelBlockStore) GetTip() (string, error) {
	val, err := s.db.Get([]byte("chain:tip"))
	if err == core.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (s *LevelBlockStore) SetTip(hash string) error {
	return s.db.Set([]byte("chain:tip"), []byte(hash))
}

// CommitBlock writes the block, its height index, and the new tip as a
// single atomic batch, so a crash mid-commit can never leave the block
// store referencing a tip whose block or height index wasn't written.
func (s *LevelBlockStore) CommitBlock(block *core.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	batch.Set([]byte("block:"+block.Hash), data)
	batch.Set(heightKey(block.Header.Height), []byte(block.Hash))
	batch.Set([]byte("chain:tip"), []byte(block.Hash))
	return batch.Write()
}

func heightKey(height uint64) []byte {
	return []byte(fmt.Sprintf("height:%020d", height))
}

// Reset deletes every block, height index entry, and the tip, as a
// single atomic batch. Used by a forced genesis reinit so a previous
// chain instance's blocks at heights above the new genesis can never
// be served again once the new chain starts at height 0.
func (s *LevelBlockStore) Reset() error {
	batch := s.db.NewBatch()
	for _, prefix := range [][]byte{[]byte("block:"), []byte("height:")} {
		it := s.db.NewIterator(prefix)
		for it.Next() {
			key := make([]byte, len(it.Key()))
			copy(key, it.Key())
			batch.Delete(key)
		}
		err := it.Error()
		it.Release()
		if err != nil {
			return fmt.Errorf("reset block store: %w", err)
		}
	}
	batch.Delete([]byte("chain:tip"))
	return batch.Write()
}
