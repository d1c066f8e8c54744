package config

import (
	"fmt"
	"strings"

	"github.com/tolelom/quorumchain/core"
)

// GenesisPrevHash is the canonical all-zero prevHash recorded in the
// genesis block's header.
const GenesisPrevHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

// ValidatorInfo is one entry in the genesis validator set.
type ValidatorInfo struct {
	ID            string      `json:"id"`
	PublicKey     string      `json:"publicKey"`
	Address       core.Address `json:"address"`
	Stake         core.Amount `json:"stake"`
	CommissionPct float64     `json:"commissionPct"`
}

// PremineEntry credits Address with Amount at genesis.
type PremineEntry struct {
	Address     core.Address `json:"address"`
	Amount      core.Amount  `json:"amount"`
	Description string       `json:"description,omitempty"`
}

// GenesisConfig is DEFAULT_GENESIS_CONFIG: everything initGenesis needs to
// deterministically build block 0 and the starting ConsensusConfig.
type GenesisConfig struct {
	ChainID            string          `json:"chainId"`
	NetworkID          string          `json:"networkId"`
	GenesisTimestampMs int64           `json:"genesisTimestampMs"`
	TokenSymbol        string          `json:"tokenSymbol"`
	TokenDecimals      int             `json:"tokenDecimals"`
	Premine            []PremineEntry  `json:"premine"`
	Validators         []ValidatorInfo `json:"validators"`
	ProposerPublicKey  string          `json:"proposerPublicKey"`
	BlockTimeMs        int64           `json:"blockTimeMs"` // informational only
	BlockReward        core.Amount     `json:"blockReward"` // always zero
	BlockMaxTxs        int             `json:"blockMaxTxs"`
	BlockMinTxs        int             `json:"blockMinTxs"`
	ConsensusTimeoutMs int64           `json:"consensusTimeoutMs"`
	WatchdogTimeoutMs  int64           `json:"watchdogTimeoutMs"`
	BackupIntervalMs   int64           `json:"backupIntervalMs"`
}

// DefaultGenesisConfig returns a devnet-shaped config: two premined
// addresses are left to the caller to fill in, sane round timings.
func DefaultGenesisConfig() *GenesisConfig {
	return &GenesisConfig{
		ChainID:            "quorumchain-devnet",
		NetworkID:          "devnet",
		TokenSymbol:        "QRM",
		TokenDecimals:      18,
		BlockReward:        core.ZeroAmount,
		BlockTimeMs:        2000,
		BlockMaxTxs:        200,
		BlockMinTxs:        1,
		ConsensusTimeoutMs: 5000,
		WatchdogTimeoutMs:  8000,
		BackupIntervalMs:   60_000,
	}
}

// BuildGenesisBlock deterministically builds block 0, the starting
// WorldState, and the starting ConsensusConfig from cfg. Premine entries
// become pseudo-transactions from the zero address; they carry no
// publicKey/signature since they were never submitted by a client.
func BuildGenesisBlock(cfg *GenesisConfig) (*core.Block, *core.WorldState, *core.ConsensusConfig, error) {
	state := core.NewWorldState()
	pseudoTxs := make([]*core.Transaction, 0, len(cfg.Premine))
	for _, p := range cfg.Premine {
		tx := core.NewTransaction(core.Zero, p.Address, p.Amount, 0, cfg.GenesisTimestampMs)
		h, err := tx.ComputeHash()
		if err != nil {
			return nil, nil, nil, err
		}
		tx.Hash = h
		pseudoTxs = append(pseudoTxs, tx)
		state.Balances[p.Address] = state.BalanceOf(p.Address).Add(p.Amount)
	}

	stateRoot, err := core.ComputeStateRoot(state)
	if err != nil {
		return nil, nil, nil, err
	}
	block, err := core.NewBlock(0, GenesisPrevHash, core.Zero, pseudoTxs, cfg.GenesisTimestampMs)
	if err != nil {
		return nil, nil, nil, err
	}
	block.Header.StateRoot = stateRoot
	hash, err := block.ComputeHash()
	if err != nil {
		return nil, nil, nil, err
	}
	block.Hash = hash

	state.LatestHeight = 0
	state.LatestHash = block.Hash
	state.GenesisHash = block.Hash
	state.TotalTx = 0
	state.LastUpdatedMs = cfg.GenesisTimestampMs

	validators := make([]string, len(cfg.Validators))
	for i, v := range cfg.Validators {
		if err := validatePubKeyHex(v.PublicKey); err != nil {
			return nil, nil, nil, fmt.Errorf("genesis validator %d: %w", i, err)
		}
		validators[i] = v.PublicKey
	}
	consensus := &core.ConsensusConfig{
		NetworkID:          cfg.NetworkID,
		BlockMaxTxs:        cfg.BlockMaxTxs,
		BlockMinTxs:        cfg.BlockMinTxs,
		ConsensusTimeoutMs: cfg.ConsensusTimeoutMs,
		WatchdogTimeoutMs:  cfg.WatchdogTimeoutMs,
		Validators:         validators,
		ProposerPublicKey:  cfg.ProposerPublicKey,
	}
	if err := consensus.Validate(); err != nil {
		return nil, nil, nil, err
	}
	return block, state, consensus, nil
}

// IsGenesisPrevHash reports whether h is the canonical genesis prevHash.
func IsGenesisPrevHash(h string) bool {
	return strings.TrimPrefix(h, "0x") == GenesisPrevHash[2:]
}
