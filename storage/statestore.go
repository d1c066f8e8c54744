package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tolelom/quorumchain/core"
)

// accountRecord is the on-disk shape of one account.
type accountRecord struct {
	Balance  core.Amount `json:"balance"`
	Sequence uint64      `json:"sequence"`
}

const (
	prefixAccount = "acct:"
	metaKey       = "meta:state"
)

type metaRecord struct {
	LatestHeight      uint64 `json:"latestHeight"`
	LatestHash        string `json:"latestHash"`
	GenesisHash       string `json:"genesisHash"`
	TotalTx           uint64 `json:"totalTx"`
	LastUpdatedMs     int64  `json:"lastUpdated_ms"`
	LastProposerError string `json:"lastProposerError,omitempty"`
}

// StateStore persists the coordinator's WorldState across restarts. The
// coordinator keeps the authoritative copy resident in memory and treats
// this as a durability layer only: Load once at startup, Persist after
// every commit, off the write path (see coordinator.Coordinator).
type StateStore struct {
	db DB
}

// NewStateStore wraps a DB.
func NewStateStore(db DB) *StateStore {
	return &StateStore{db: db}
}

// Load reconstructs a WorldState from persisted account records and
// metadata. Returns a fresh, empty WorldState if nothing has been
// persisted yet.
func (s *StateStore) Load() (*core.WorldState, error) {
	state := core.NewWorldState()
	it := s.db.NewIterator([]byte(prefixAccount))
	defer it.Release()
	for it.Next() {
		addr := core.Address(strings.TrimPrefix(string(it.Key()), prefixAccount))
		var rec accountRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return nil, fmt.Errorf("state store: decode account %s: %w", addr, err)
		}
		if rec.Balance.Sign() != 0 {
			state.Balances[addr] = rec.Balance
		}
		if rec.Sequence != 0 {
			state.Sequences[addr] = rec.Sequence
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	raw, err := s.db.Get([]byte(metaKey))
	if err == core.ErrNotFound {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	var meta metaRecord
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("state store: decode meta: %w", err)
	}
	state.LatestHeight = meta.LatestHeight
	state.LatestHash = meta.LatestHash
	state.GenesisHash = meta.GenesisHash
	state.TotalTx = meta.TotalTx
	state.LastUpdatedMs = meta.LastUpdatedMs
	state.LastProposerError = meta.LastProposerError
	return state, nil
}

// Persist writes the entire WorldState as one atomic batch.
func (s *StateStore) Persist(state *core.WorldState) error {
	batch := s.db.NewBatch()
	for addr, bal := range state.Balances {
		rec := accountRecord{Balance: bal, Sequence: state.Sequences[addr]}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		batch.Set([]byte(prefixAccount+string(addr)), data)
	}
	for addr, seq := range state.Sequences {
		if _, hasBalance := state.Balances[addr]; hasBalance {
			continue
		}
		rec := accountRecord{Balance: core.ZeroAmount, Sequence: seq}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		batch.Set([]byte(prefixAccount+string(addr)), data)
	}
	meta := metaRecord{
		LatestHeight:      state.LatestHeight,
		LatestHash:        state.LatestHash,
		GenesisHash:       state.GenesisHash,
		TotalTx:           state.TotalTx,
		LastUpdatedMs:     state.LastUpdatedMs,
		LastProposerError: state.LastProposerError,
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	batch.Set([]byte(metaKey), metaData)
	return batch.Write()
}
