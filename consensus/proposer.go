package consensus

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
	"github.com/tolelom/quorumchain/internalapi"
	"github.com/tolelom/quorumchain/validatorapi"
)

// Proposer is the single logical role per chain: on trigger it acquires
// the coordinator's write lock, assembles a candidate block, fans it out
// to every validator in parallel, gathers signatures, and submits the
// signed block back for atomic commit. Stateless between rounds.
type Proposer struct {
	id         core.Address
	priv       crypto.PrivateKey
	client     internalapi.Client
	validators map[string]validatorapi.Client // validatorId -> client
}

// NewProposer builds a Proposer identified by id, holding its private key,
// a capability handle on the coordinator, and one client per validator
// endpoint (keyed by validator id, for error attribution).
func NewProposer(id core.Address, priv crypto.PrivateKey, client internalapi.Client, validators map[string]validatorapi.Client) *Proposer {
	return &Proposer{id: id, priv: priv, client: client, validators: validators}
}

// TriggerResult is the compact summary returned to callers of Trigger.
type TriggerResult struct {
	NoOp      bool
	Height    uint64
	Hash      string
	TxCount   int
	ElapsedMs int64
}

// Trigger runs one round. It is idempotent under concurrent calls: the
// coordinator's lock is the serialising primitive, so a second call
// arriving mid-round returns immediately with NoOp=true.
func (p *Proposer) Trigger() (*TriggerResult, error) {
	start := time.Now()

	_, err := p.client.AcquireProcessingLock()
	if err != nil {
		switch core.KindOf(err) {
		case core.KindRoundInProgress, core.KindEmpty:
			return &TriggerResult{NoOp: true}, nil
		default:
			return nil, err
		}
	}

	block, err := p.client.PackBlock(p.id)
	if err != nil {
		_ = p.client.ReleaseProcessingLock(false)
		p.reportError(err)
		return nil, err
	}

	if err := block.Sign(p.priv); err != nil {
		_ = p.client.ReleaseProcessingLock(false)
		p.reportError(err)
		return nil, err
	}

	cfg := p.client.Config()
	votes := p.fanOut(block, cfg.ConsensusTimeoutMs)

	if len(votes) < cfg.RequiredSignatures {
		_ = p.client.ReleaseProcessingLock(false)
		return nil, core.NewError(core.KindInsufficientSigs, "have %d votes, need %d", len(votes), cfg.RequiredSignatures)
	}

	block.Votes = votes
	summary, err := p.client.CommitBlock(block, votes)
	if err != nil {
		_ = p.client.ReleaseProcessingLock(false)
		p.reportError(err)
		return nil, err
	}
	return &TriggerResult{
		Height:    summary.Height,
		Hash:      summary.Hash,
		TxCount:   summary.TxCount,
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

// fanOut dispatches /validate to every configured validator concurrently,
// bounded by a single deadline covering the whole fan-out. Late responses
// are discarded by the context expiring, never cancelled mid-flight by one
// validator's failure: errgroup is used purely as a bounded
// concurrent-join primitive here, and worker functions never return a
// non-nil error, so one validator's rejection or timeout never aborts the
// others.
func (p *Proposer) fanOut(block *core.Block, timeoutMs int64) []core.Vote {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	g, _ := errgroup.WithContext(context.Background())
	var mu sync.Mutex
	var votes []core.Vote

	req := validatorapi.ValidateRequest{Block: block, ProposerID: p.id}
	for id, client := range p.validators {
		id, client := id, client
		g.Go(func() error {
			done := make(chan *validatorapi.ValidateResponse, 1)
			go func() {
				resp, err := client.Validate(req)
				if err != nil {
					done <- nil
					return
				}
				done <- resp
			}()
			select {
			case resp := <-done:
				if resp != nil && resp.Valid {
					mu.Lock()
					votes = append(votes, core.Vote{
						ValidatorID:     id,
						ValidatorPubKey: resp.ValidatorPubKey,
						Signature:       resp.Signature,
						TimestampMs:     resp.TimestampMs,
					})
					mu.Unlock()
				}
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = g.Wait()
	return votes
}

func (p *Proposer) reportError(err error) {
	_ = p.client.ReportError(err.Error())
}
