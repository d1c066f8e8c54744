package coordinator

import (
	"testing"
	"time"

	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
	"github.com/tolelom/quorumchain/events"
	"github.com/tolelom/quorumchain/internal/testutil"
)

// testValidator is one validator's key pair, known to the test so it can
// forge votes without going through consensus.Validator.
type testValidator struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// testChain wires a Coordinator against in-memory stores with a genesis
// block premining one account whose private key the test retains, so
// tests can submit real signed transfers without a separate faucet.
type testChain struct {
	c            *Coordinator
	proposer     crypto.PrivateKey
	proposerID   core.Address
	validators   []testValidator
	premined     core.Address
	preminedPriv crypto.PrivateKey
}

func testValidatorID(i int) string {
	return "validator-" + string(rune('a'+i))
}

func newTestChain(t *testing.T, numValidators int) *testChain {
	t.Helper()
	return newTestChainWithOptions(t, numValidators, nil, nil)
}

// newTestChainWithOptions is newTestChain plus two hooks tests reach for
// less often: mutate can tune consensus/watchdog timeouts or batch size
// on the genesis config before InitGenesis, and emitter (if non-nil) is
// wired into the coordinator so a test can subscribe to its events.
func newTestChainWithOptions(t *testing.T, numValidators int, mutate func(*config.GenesisConfig), emitter *events.Emitter) *testChain {
	t.Helper()

	history := core.NewBlockHistory(testutil.NewMemBlockStore())
	stateStore := testutil.NewStateStore()
	c, err := New(Options{History: history, StateStore: stateStore, Emitter: emitter})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	proposerPriv, proposerPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	validators := make([]testValidator, numValidators)
	validatorInfos := make([]config.ValidatorInfo, numValidators)
	for i := range validators {
		priv, pub, err := crypto.GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair: %v", err)
		}
		validators[i] = testValidator{priv: priv, pub: pub}
		validatorInfos[i] = config.ValidatorInfo{ID: testValidatorID(i), PublicKey: pub.Hex()}
	}

	preminePriv, preminePub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	premined := core.AddressOf(preminePub)

	gcfg := config.DefaultGenesisConfig()
	gcfg.ProposerPublicKey = proposerPub.Hex()
	gcfg.Premine = []config.PremineEntry{{Address: premined, Amount: core.AmountFromUint64(1_000_000)}}
	gcfg.Validators = validatorInfos
	gcfg.BlockMaxTxs = 5
	if mutate != nil {
		mutate(gcfg)
	}

	if err := c.InitGenesis(gcfg, false); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}

	return &testChain{
		c: c, proposer: proposerPriv, proposerID: core.AddressOf(proposerPub),
		validators: validators, premined: premined, preminedPriv: preminePriv,
	}
}

// submitFromPremine signs and admits a transfer from the genesis-funded
// account at its current pending sequence.
func (tc *testChain) submitFromPremine(t *testing.T, to core.Address, amount core.Amount) *core.Transaction {
	t.Helper()
	seq := tc.c.QueryAccount(tc.premined).PendingSequence
	tx := core.NewTransaction(tc.premined, to, amount, seq, 1_700_000_000_000)
	if err := tx.Sign(tc.preminedPriv); err != nil {
		t.Fatalf("tx.Sign: %v", err)
	}
	if err := tc.c.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	return tx
}

// signAllVotes forges a valid vote from every configured validator.
func (tc *testChain) signAllVotes(block *core.Block) []core.Vote {
	votes := make([]core.Vote, 0, len(tc.validators))
	for i, v := range tc.validators {
		votes = append(votes, core.Vote{
			ValidatorID:     testValidatorID(i),
			ValidatorPubKey: v.pub.Hex(),
			Signature:       crypto.Sign(v.priv, block.SignaturePreimage()),
		})
	}
	return votes
}

// runRound drives one full Trigger-shaped round by hand: acquire, pack,
// sign, collect votes from every validator, commit.
func (tc *testChain) runRound(t *testing.T) *CommitSummary {
	t.Helper()
	if _, err := tc.c.AcquireProcessingLock(); err != nil {
		t.Fatalf("AcquireProcessingLock: %v", err)
	}
	block, err := tc.c.PackBlock(tc.proposerID)
	if err != nil {
		t.Fatalf("PackBlock: %v", err)
	}
	if err := block.Sign(tc.proposer); err != nil {
		t.Fatalf("block.Sign: %v", err)
	}
	summary, err := tc.c.CommitBlock(block, tc.signAllVotes(block))
	if err != nil {
		t.Fatalf("CommitBlock: %v", err)
	}
	return summary
}

func mustTestWallet(t *testing.T) (crypto.PrivateKey, core.Address) {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return priv, core.AddressOf(pub)
}

func TestAddTransactionRejectsDuplicate(t *testing.T) {
	tc := newTestChain(t, 3)
	_, to := mustTestWallet(t)
	tx := core.NewTransaction(tc.premined, to, core.AmountFromUint64(1), 0, 1_700_000_000_000)
	if err := tx.Sign(tc.preminedPriv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tc.c.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := tc.c.AddTransaction(tx); core.KindOf(err) != core.KindDuplicateTransaction {
		t.Fatalf("expected KindDuplicateTransaction on resubmit, got %v", err)
	}
}

func TestAddTransactionRejectsSequenceMismatch(t *testing.T) {
	tc := newTestChain(t, 3)
	_, to := mustTestWallet(t)
	tx := core.NewTransaction(tc.premined, to, core.AmountFromUint64(1), 7, 1_700_000_000_000)
	if err := tx.Sign(tc.preminedPriv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tc.c.AddTransaction(tx); core.KindOf(err) != core.KindSequenceMismatch {
		t.Fatalf("expected KindSequenceMismatch, got %v", err)
	}
}

func TestAddTransactionRejectsInsufficientBalance(t *testing.T) {
	tc := newTestChain(t, 3)
	priv, from := mustTestWallet(t)
	tx := core.NewTransaction(from, tc.premined, core.AmountFromUint64(1), 0, 1_700_000_000_000)
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tc.c.AddTransaction(tx); core.KindOf(err) != core.KindInsufficientBalance {
		t.Fatalf("expected KindInsufficientBalance, got %v", err)
	}
}

func TestFullRoundCommitsAndDrainsQueue(t *testing.T) {
	tc := newTestChain(t, 4) // requires ceil(2*4/3) = 3 signatures
	_, to := mustTestWallet(t)

	tx := tc.submitFromPremine(t, to, core.AmountFromUint64(100))
	summary := tc.runRound(t)

	if summary.TxCount != 1 {
		t.Fatalf("expected 1 tx committed, got %d", summary.TxCount)
	}
	if tc.c.QueryState().BalanceOf(to).String() != "100" {
		t.Fatalf("recipient balance: got %s, want 100", tc.c.QueryState().BalanceOf(to).String())
	}
	if got, _, err := tc.c.QueryTransaction(tx.Hash); err != nil || got.Hash != tx.Hash {
		t.Fatalf("QueryTransaction: got %v, %v", got, err)
	}

	state := tc.c.QueryState()
	if state.LatestHeight != 1 {
		t.Fatalf("LatestHeight: got %d, want 1", state.LatestHeight)
	}
	// queue must be drained of the executed transaction.
	if _, pending, _ := tc.c.QueryTransaction(tx.Hash); pending {
		t.Fatal("expected the committed transaction to no longer be pending")
	}
}

func TestDoubleSpendSecondSubmissionRejectedAtAdmission(t *testing.T) {
	tc := newTestChain(t, 3)
	_, to := mustTestWallet(t)

	tc.submitFromPremine(t, to, core.AmountFromUint64(999_999))
	// a second transfer at the same sequence is a replay attempt.
	tx := core.NewTransaction(tc.premined, to, core.AmountFromUint64(1), 0, 1_700_000_000_000)
	if err := tx.Sign(tc.preminedPriv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tc.c.AddTransaction(tx); core.KindOf(err) != core.KindSequenceMismatch {
		t.Fatalf("expected KindSequenceMismatch for the replayed sequence, got %v", err)
	}
}

func TestCommitBlockRejectsInsufficientSignatures(t *testing.T) {
	tc := newTestChain(t, 4) // quorum is 3
	_, to := mustTestWallet(t)
	tc.submitFromPremine(t, to, core.AmountFromUint64(1))

	if _, err := tc.c.AcquireProcessingLock(); err != nil {
		t.Fatalf("AcquireProcessingLock: %v", err)
	}
	block, err := tc.c.PackBlock(tc.proposerID)
	if err != nil {
		t.Fatalf("PackBlock: %v", err)
	}
	if err := block.Sign(tc.proposer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	votes := tc.signAllVotes(block)[:2] // only 2 of 4, below quorum
	if _, err := tc.c.CommitBlock(block, votes); core.KindOf(err) != core.KindInsufficientSigs {
		t.Fatalf("expected KindInsufficientSigs, got %v", err)
	}
	if err := tc.c.ReleaseProcessingLock(false); err != nil {
		t.Fatalf("ReleaseProcessingLock: %v", err)
	}
	// the queue must still hold the transaction: a rejected commit must
	// not silently drop it.
	if tc.c.QueryAccount(tc.premined).PendingSequence == tc.c.QueryAccount(tc.premined).Sequence {
		t.Fatal("expected the uncommitted transaction to remain pending")
	}
}

func TestCommitBlockRejectsWrongHeight(t *testing.T) {
	tc := newTestChain(t, 3)
	_, to := mustTestWallet(t)
	tc.submitFromPremine(t, to, core.AmountFromUint64(1))

	if _, err := tc.c.AcquireProcessingLock(); err != nil {
		t.Fatalf("AcquireProcessingLock: %v", err)
	}
	block, err := tc.c.PackBlock(tc.proposerID)
	if err != nil {
		t.Fatalf("PackBlock: %v", err)
	}
	block.Header.Height = 99
	if err := block.Sign(tc.proposer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := tc.c.CommitBlock(block, tc.signAllVotes(block)); core.KindOf(err) != core.KindWrongHeight {
		t.Fatalf("expected KindWrongHeight, got %v", err)
	}
}

func TestCommitBlockRejectsForgedVotesFromUnknownValidator(t *testing.T) {
	tc := newTestChain(t, 3)
	_, to := mustTestWallet(t)
	tc.submitFromPremine(t, to, core.AmountFromUint64(1))

	if _, err := tc.c.AcquireProcessingLock(); err != nil {
		t.Fatalf("AcquireProcessingLock: %v", err)
	}
	block, err := tc.c.PackBlock(tc.proposerID)
	if err != nil {
		t.Fatalf("PackBlock: %v", err)
	}
	if err := block.Sign(tc.proposer); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	outsiderPriv, outsiderPub, _ := crypto.GenerateKeyPair()
	votes := []core.Vote{
		{ValidatorID: "outsider", ValidatorPubKey: outsiderPub.Hex(), Signature: crypto.Sign(outsiderPriv, block.SignaturePreimage())},
		{ValidatorID: "outsider", ValidatorPubKey: outsiderPub.Hex(), Signature: crypto.Sign(outsiderPriv, block.SignaturePreimage())},
		{ValidatorID: "outsider", ValidatorPubKey: outsiderPub.Hex(), Signature: crypto.Sign(outsiderPriv, block.SignaturePreimage())},
	}
	if _, err := tc.c.CommitBlock(block, votes); core.KindOf(err) != core.KindInsufficientSigs {
		t.Fatalf("expected votes from an unconfigured validator to be discarded entirely, got %v", err)
	}
}

func TestAcquireProcessingLockRejectsConcurrentRound(t *testing.T) {
	tc := newTestChain(t, 3)
	_, to := mustTestWallet(t)
	tc.submitFromPremine(t, to, core.AmountFromUint64(1))

	if _, err := tc.c.AcquireProcessingLock(); err != nil {
		t.Fatalf("AcquireProcessingLock: %v", err)
	}
	if _, err := tc.c.AcquireProcessingLock(); core.KindOf(err) != core.KindRoundInProgress {
		t.Fatalf("expected KindRoundInProgress on a second concurrent acquire, got %v", err)
	}
}

func TestAcquireProcessingLockRejectsEmptyQueue(t *testing.T) {
	tc := newTestChain(t, 3)
	if _, err := tc.c.AcquireProcessingLock(); core.KindOf(err) != core.KindEmpty {
		t.Fatalf("expected KindEmpty for an empty queue, got %v", err)
	}
}

func TestAcquireProcessingLockTakesOverAfterProposerCrash(t *testing.T) {
	tc := newTestChainWithOptions(t, 3, func(g *config.GenesisConfig) {
		g.ConsensusTimeoutMs = 30
	}, nil)
	_, to := mustTestWallet(t)
	tc.submitFromPremine(t, to, core.AmountFromUint64(1))

	if _, err := tc.c.AcquireProcessingLock(); err != nil {
		t.Fatalf("AcquireProcessingLock: %v", err)
	}
	if _, err := tc.c.PackBlock(tc.proposerID); err != nil {
		t.Fatalf("PackBlock: %v", err)
	}
	// the proposer crashes here: it never signs or commits the packed
	// block, leaving the round lock held with no one to release it.

	time.Sleep(50 * time.Millisecond) // past ConsensusTimeoutMs

	snapshot, err := tc.c.AcquireProcessingLock()
	if err != nil {
		t.Fatalf("expected the next trigger to take over the stale lock, got %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected the crashed round's transaction still queued, got %d", len(snapshot))
	}

	block, err := tc.c.PackBlock(tc.proposerID)
	if err != nil {
		t.Fatalf("PackBlock: %v", err)
	}
	if err := block.Sign(tc.proposer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	summary, err := tc.c.CommitBlock(block, tc.signAllVotes(block))
	if err != nil {
		t.Fatalf("CommitBlock: %v", err)
	}
	if summary.Height != 1 {
		t.Fatalf("Height: got %d, want 1", summary.Height)
	}
}

func TestWatchdogRescuesStuckRoundAfterPackBlock(t *testing.T) {
	emitter := events.NewEmitter()
	fired := make(chan struct{}, 1)
	emitter.Subscribe(events.EventWatchdogFired, func(events.Event) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	tc := newTestChainWithOptions(t, 3, func(g *config.GenesisConfig) {
		g.WatchdogTimeoutMs = 30
	}, emitter)
	_, to := mustTestWallet(t)
	tc.submitFromPremine(t, to, core.AmountFromUint64(1))

	if _, err := tc.c.AcquireProcessingLock(); err != nil {
		t.Fatalf("AcquireProcessingLock: %v", err)
	}
	if _, err := tc.c.PackBlock(tc.proposerID); err != nil {
		t.Fatalf("PackBlock: %v", err)
	}
	// the proposer crashes here: packBlock armed the watchdog, and
	// nothing ever disarms it with a commit or an explicit release.

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the watchdog to fire and rescue the stuck round")
	}

	snapshot, err := tc.c.AcquireProcessingLock()
	if err != nil {
		t.Fatalf("expected the rescued round to be immediately acquirable, got %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected the stuck round's transaction still queued, got %d", len(snapshot))
	}
}

func TestRoundCommitsBatchOfTwentyAndDrainsQueue(t *testing.T) {
	tc := newTestChainWithOptions(t, 3, func(g *config.GenesisConfig) {
		g.BlockMaxTxs = 50
	}, nil)
	_, to := mustTestWallet(t)
	for i := 0; i < 20; i++ {
		tc.submitFromPremine(t, to, core.AmountFromUint64(1))
	}

	summary := tc.runRound(t)
	if summary.TxCount != 20 {
		t.Fatalf("TxCount: got %d, want 20", summary.TxCount)
	}

	acct := tc.c.QueryAccount(tc.premined)
	if acct.PendingSequence != acct.Sequence {
		t.Fatalf("expected the queue to be fully drained, pending=%d sequence=%d", acct.PendingSequence, acct.Sequence)
	}
	if tc.c.QueryState().BalanceOf(to).String() != "20" {
		t.Fatalf("recipient balance: got %s, want 20", tc.c.QueryState().BalanceOf(to).String())
	}
}
