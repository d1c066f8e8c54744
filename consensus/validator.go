// Package consensus implements the Proposer and Validator roles: stateless
// processes that depend only on the internalapi.Client capability surface,
// never on the coordinator's internals.
package consensus

import (
	"time"

	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
	"github.com/tolelom/quorumchain/internalapi"
	"github.com/tolelom/quorumchain/validatorapi"
)

// clockSkewTolerance bounds how far a transaction's or block's timestamp
// may sit in the future relative to the validator's own clock.
const clockSkewTolerance = 60 * time.Second

// Validator is a stateless verifier: given a candidate block, it checks
// structural, cryptographic, and state-transition validity against the
// coordinator's current state and signs the block hash if everything
// holds.
type Validator struct {
	id     string
	priv   crypto.PrivateKey
	pub    crypto.PublicKey
	client internalapi.Client
}

// NewValidator builds a Validator identified by id, holding its own key
// pair and a capability handle on the coordinator.
func NewValidator(id string, priv crypto.PrivateKey, client internalapi.Client) *Validator {
	return &Validator{id: id, priv: priv, pub: priv.Public(), client: client}
}

// Validate runs the eight ordered checks and returns a vote or a reason
// for rejection. It never returns a transport error — a failed check is
// reported as Valid=false so the proposer counts it as a negative vote,
// not a missing one.
func (v *Validator) Validate(req validatorapi.ValidateRequest) *validatorapi.ValidateResponse {
	block := req.Block
	now := time.Now()

	if err := block.VerifyHash(); err != nil {
		return reject("BadHash")
	}
	if len(block.Transactions) != block.Header.TxCount {
		return reject("TxCountMismatch")
	}
	txRoot, err := core.ComputeTxRoot(block.Transactions)
	if err != nil || txRoot != block.Header.TxRoot {
		return reject("BadTxRoot")
	}
	for _, tx := range block.Transactions {
		if err := checkTransactionShape(tx, now); err != nil {
			return reject(err.Error())
		}
	}
	if block.Header.TimestampMs > now.Add(clockSkewTolerance).UnixMilli() {
		return reject("block timestamp too far in the future")
	}

	state := v.client.QueryState()
	if block.Header.Height != state.LatestHeight+1 {
		return reject("WrongHeight")
	}
	if block.Header.PrevHash != state.LatestHash {
		return reject("WrongParent")
	}

	stateRoot, _, err := core.SimulateStateRoot(state, block.Transactions)
	if err != nil {
		return reject("BadStateRoot")
	}
	if stateRoot != block.Header.StateRoot {
		return reject("BadStateRoot")
	}

	sig := crypto.Sign(v.priv, block.SignaturePreimage())
	return &validatorapi.ValidateResponse{
		Valid:           true,
		ValidatorID:     v.id,
		ValidatorPubKey: v.pub.Hex(),
		Signature:       sig,
		TimestampMs:     now.UnixMilli(),
	}
}

func reject(reason string) *validatorapi.ValidateResponse {
	return &validatorapi.ValidateResponse{Valid: false, Error: reason}
}

// checkTransactionShape recomputes a transaction's hash, checks its
// timestamp against clock skew tolerance, requires a non-negative amount,
// and re-verifies the sender's signature — the permitted hardening spec.md
// names alongside the minimum required checks.
func checkTransactionShape(tx *core.Transaction, now time.Time) error {
	if tx.PublicKey == "" || tx.Signature == "" {
		return core.NewError(core.KindMalformedRequest, "tx %s missing publicKey/signature", tx.Hash)
	}
	if tx.Amount.Sign() < 0 {
		return core.NewError(core.KindMalformedRequest, "tx %s has negative amount", tx.Hash)
	}
	if tx.TimestampMs > now.Add(clockSkewTolerance).UnixMilli() {
		return core.NewError(core.KindMalformedRequest, "tx %s timestamp too far in the future", tx.Hash)
	}
	if err := tx.Verify(); err != nil {
		return err
	}
	return nil
}
