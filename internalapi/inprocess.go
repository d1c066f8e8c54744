package internalapi

import (
	"context"

	"github.com/tolelom/quorumchain/backup"
	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/coordinator"
	"github.com/tolelom/quorumchain/core"
)

// InProcess satisfies Client by calling directly into a *coordinator.Coordinator,
// with no transport in between. Used for single-process devnets and tests,
// exactly as the teacher's integration tests wire one node entirely in memory.
type InProcess struct {
	c *coordinator.Coordinator
}

// NewInProcess wraps a Coordinator.
func NewInProcess(c *coordinator.Coordinator) *InProcess {
	return &InProcess{c: c}
}

func (p *InProcess) AddTransaction(tx *core.Transaction) error { return p.c.AddTransaction(tx) }

func (p *InProcess) AcquireProcessingLock() ([]*core.Transaction, error) {
	return p.c.AcquireProcessingLock()
}

func (p *InProcess) ReleaseProcessingLock(clearQueue bool) error {
	return p.c.ReleaseProcessingLock(clearQueue)
}

func (p *InProcess) PackBlock(proposerID core.Address) (*core.Block, error) {
	return p.c.PackBlock(proposerID)
}

func (p *InProcess) CommitBlock(block *core.Block, votes []core.Vote) (*coordinator.CommitSummary, error) {
	return p.c.CommitBlock(block, votes)
}

func (p *InProcess) Config() core.ConsensusConfig { return p.c.Config() }

func (p *InProcess) QueryState() *core.WorldState { return p.c.QueryState() }

func (p *InProcess) QueryAccount(addr core.Address) coordinator.AccountView {
	return p.c.QueryAccount(addr)
}

func (p *InProcess) QueryBlock(height uint64) (*core.Block, error) { return p.c.QueryBlock(height) }

func (p *InProcess) QueryBlocksRange(start uint64, limit int) ([]*core.Block, error) {
	return p.c.QueryBlocksRange(start, limit)
}

func (p *InProcess) QueryLatestBlock() (*core.Block, error) { return p.c.QueryLatestBlock() }

func (p *InProcess) QueryTransaction(hash string) (*core.Transaction, bool, error) {
	return p.c.QueryTransaction(hash)
}

func (p *InProcess) GetTransactionsByAddress(addr core.Address) ([]*core.Transaction, error) {
	return p.c.GetTransactionsByAddress(addr)
}

func (p *InProcess) InitGenesis(gcfg *config.GenesisConfig, force bool) error {
	return p.c.InitGenesis(gcfg, force)
}

func (p *InProcess) ReportError(msg string) error { return p.c.ReportError(msg) }

func (p *InProcess) TriggerBackup(ctx context.Context) (string, error) {
	return p.c.TriggerBackup(ctx)
}

func (p *InProcess) Restore(ctx context.Context, req backup.RestoreRequest) error {
	return p.c.Restore(ctx, req)
}
