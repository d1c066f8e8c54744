// Package internalapi defines the capability interface the coordinator
// exposes to the Proposer and Validator roles, plus an HTTP transport and
// an in-process adapter satisfying it. Proposer/Validator depend only on
// the Client interface, never on the coordinator package's HTTP server,
// which keeps the ownership graph acyclic: internalapi is the only
// package that knows both the coordinator's types and how to reach it.
package internalapi

import (
	"context"

	"github.com/tolelom/quorumchain/backup"
	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/coordinator"
	"github.com/tolelom/quorumchain/core"
)

// Client is everything a Proposer or Validator needs from the
// coordinator.
type Client interface {
	AddTransaction(tx *core.Transaction) error
	AcquireProcessingLock() ([]*core.Transaction, error)
	ReleaseProcessingLock(clearQueue bool) error
	PackBlock(proposerID core.Address) (*core.Block, error)
	CommitBlock(block *core.Block, votes []core.Vote) (*coordinator.CommitSummary, error)

	Config() core.ConsensusConfig
	QueryState() *core.WorldState
	QueryAccount(addr core.Address) coordinator.AccountView
	QueryBlock(height uint64) (*core.Block, error)
	QueryBlocksRange(start uint64, limit int) ([]*core.Block, error)
	QueryLatestBlock() (*core.Block, error)
	QueryTransaction(hash string) (*core.Transaction, bool, error)
	GetTransactionsByAddress(addr core.Address) ([]*core.Transaction, error)

	InitGenesis(gcfg *config.GenesisConfig, force bool) error
	ReportError(msg string) error
	TriggerBackup(ctx context.Context) (string, error)
	Restore(ctx context.Context, req backup.RestoreRequest) error
}
