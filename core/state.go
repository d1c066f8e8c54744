package core

// WorldState is the committed balances and sequences for all accounts,
// plus the chain-tip bookkeeping the coordinator needs to validate the
// next block.
type WorldState struct {
	Balances          map[Address]Amount `json:"balances"`
	Sequences         map[Address]uint64 `json:"sequences"`
	LatestHeight      uint64             `json:"latestHeight"`
	LatestHash        string             `json:"latestHash"`
	GenesisHash       string             `json:"genesisHash"`
	TotalTx           uint64             `json:"totalTx"`
	LastUpdatedMs     int64              `json:"lastUpdated_ms"`
	LastProposerError string             `json:"lastProposerError,omitempty"`
}

// NewWorldState returns an empty, ready-to-use state.
func NewWorldState() *WorldState {
	return &WorldState{
		Balances:  make(map[Address]Amount),
		Sequences: make(map[Address]uint64),
	}
}

// Clone performs a deep copy suitable for simulation: mutating the clone
// never affects the original.
func (s *WorldState) Clone() *WorldState {
	out := &WorldState{
		Balances:          make(map[Address]Amount, len(s.Balances)),
		Sequences:         make(map[Address]uint64, len(s.Sequences)),
		LatestHeight:      s.LatestHeight,
		LatestHash:        s.LatestHash,
		GenesisHash:       s.GenesisHash,
		TotalTx:           s.TotalTx,
		LastUpdatedMs:     s.LastUpdatedMs,
		LastProposerError: s.LastProposerError,
	}
	for k, v := range s.Balances {
		out.Balances[k] = v
	}
	for k, v := range s.Sequences {
		out.Sequences[k] = v
	}
	return out
}

// BalanceOf returns the balance of addr, zero if the account has never
// been credited.
func (s *WorldState) BalanceOf(addr Address) Amount {
	if b, ok := s.Balances[addr]; ok {
		return b
	}
	return ZeroAmount
}

// SequenceOf returns the next-expected sequence for addr, zero if the
// account has never transacted.
func (s *WorldState) SequenceOf(addr Address) uint64 {
	return s.Sequences[addr]
}

// stateRootView is the exact shape canon.Marshal hashes for stateRoot:
// balances as an ordered list of [addr, decimal] pairs (so canon's key
// sort does not reorder an object-keyed map of addresses differently
// than the spec's own list-of-pairs shape) and sequences as an
// addr-keyed object.
type stateRootView struct {
	Balances  [][2]string        `json:"balances"`
	Sequences map[Address]uint64 `json:"sequences"`
}
