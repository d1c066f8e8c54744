package core

import (
	"sort"

	"github.com/tolelom/quorumchain/canon"
	"github.com/tolelom/quorumchain/crypto"
)

// ApplyResult reports which transactions a simulated or real execution
// accepted, in order, so callers can remove exactly those from the queue.
type ApplyResult struct {
	Executed []*Transaction
	Skipped  []*Transaction
}

// Apply runs txs against state in order, debiting/crediting/incrementing
// sequence for each that passes its sequence and balance check against
// the *running* state, and silently skipping any that doesn't — the same
// rule packBlock's simulation and commitBlock's re-execution both use, so
// they must never diverge. state is mutated in place; pass a Clone() to
// simulate without touching the committed state.
func Apply(state *WorldState, txs []*Transaction) ApplyResult {
	var res ApplyResult
	for _, tx := range txs {
		if state.SequenceOf(tx.From) != tx.Sequence {
			res.Skipped = append(res.Skipped, tx)
			continue
		}
		bal := state.BalanceOf(tx.From)
		if bal.LessThan(tx.Amount) {
			res.Skipped = append(res.Skipped, tx)
			continue
		}
		newFromBal, err := bal.Sub(tx.Amount)
		if err != nil {
			res.Skipped = append(res.Skipped, tx)
			continue
		}
		state.Balances[tx.From] = newFromBal
		state.Balances[tx.To] = state.BalanceOf(tx.To).Add(tx.Amount)
		state.Sequences[tx.From] = tx.Sequence + 1
		res.Executed = append(res.Executed, tx)
	}
	return res
}

// ComputeStateRoot hashes the canonical {balances,sequences} view of
// state, matching the spec's stateRoot shape exactly so proposer and
// validator reach byte-identical roots for identical states.
func ComputeStateRoot(state *WorldState) (string, error) {
	view := stateRootView{
		Balances:  make([][2]string, 0, len(state.Balances)),
		Sequences: state.Sequences,
	}
	for addr, bal := range state.Balances {
		view.Balances = append(view.Balances, [2]string{string(addr), bal.String()})
	}
	sort.Slice(view.Balances, func(i, j int) bool { return view.Balances[i][0] < view.Balances[j][0] })
	data, err := canon.Marshal(view)
	if err != nil {
		return "", NewError(KindMalformedRequest, "compute state root: %v", err)
	}
	return "0x" + crypto.Hash(data), nil
}

// SimulateStateRoot clones state, applies txs, and returns the resulting
// root without mutating the caller's state — exactly what packBlock and
// the validator need.
func SimulateStateRoot(state *WorldState, txs []*Transaction) (string, ApplyResult, error) {
	sim := state.Clone()
	res := Apply(sim, txs)
	root, err := ComputeStateRoot(sim)
	return root, res, err
}
