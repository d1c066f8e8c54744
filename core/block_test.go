package core

import (
	"testing"

	"github.com/tolelom/quorumchain/crypto"
)

func TestBlockSignAndVerify(t *testing.T) {
	priv, proposer := mustWallet(t)
	proposerPub := priv.Public()

	txPriv, from := mustWallet(t)
	_, to := mustWallet(t)
	tx := signedTransfer(t, txPriv, from, to, AmountFromUint64(5), 0)

	block, err := NewBlock(1, GenesisForTestPrevHash, proposer, []*Transaction{tx}, 1_700_000_000_000)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if err := block.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := block.VerifyHash(); err != nil {
		t.Fatalf("VerifyHash: %v", err)
	}
	if err := block.VerifyProposerSignature(proposerPub); err != nil {
		t.Fatalf("VerifyProposerSignature: %v", err)
	}

	var otherPriv crypto.PrivateKey
	otherPriv, _, _ = crypto.GenerateKeyPair()
	if block.VerifyProposerSignature(otherPriv.Public()) == nil {
		t.Fatal("VerifyProposerSignature: expected failure against the wrong key")
	}
}

func TestBlockVerifyHashDetectsTamper(t *testing.T) {
	priv, proposer := mustWallet(t)
	block, err := NewBlock(1, GenesisForTestPrevHash, proposer, nil, 1_700_000_000_000)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if err := block.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	block.Header.Height = 2
	if KindOf(block.VerifyHash()) != KindBadHash {
		t.Fatalf("VerifyHash: expected KindBadHash after mutating header, got %s", KindOf(block.VerifyHash()))
	}
}

func TestComputeTxRootOrderSensitive(t *testing.T) {
	_, a := mustWallet(t)
	_, b := mustWallet(t)
	priv1, from1 := mustWallet(t)
	priv2, from2 := mustWallet(t)

	tx1 := signedTransfer(t, priv1, from1, a, AmountFromUint64(1), 0)
	tx2 := signedTransfer(t, priv2, from2, b, AmountFromUint64(2), 0)

	root1, err := ComputeTxRoot([]*Transaction{tx1, tx2})
	if err != nil {
		t.Fatalf("ComputeTxRoot: %v", err)
	}
	root2, err := ComputeTxRoot([]*Transaction{tx2, tx1})
	if err != nil {
		t.Fatalf("ComputeTxRoot: %v", err)
	}
	if root1 == root2 {
		t.Fatal("ComputeTxRoot: expected different roots for different transaction orderings")
	}

	rootAgain, err := ComputeTxRoot([]*Transaction{tx1, tx2})
	if err != nil {
		t.Fatalf("ComputeTxRoot: %v", err)
	}
	if root1 != rootAgain {
		t.Fatal("ComputeTxRoot: not deterministic for the same input")
	}
}

// GenesisForTestPrevHash stands in for config.GenesisPrevHash without
// importing config (which would import core, forming a cycle).
const GenesisForTestPrevHash = "0x0000000000000000000000000000000000000000000000000000000000000000"
