package wallet

import (
	"testing"

	"github.com/tolelom/quorumchain/core"
)

func TestGenerateProducesDistinctWallets(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Address() == b.Address() {
		t.Fatal("Generate: expected two independently generated wallets to differ")
	}
}

func TestTransferProducesVerifiableTransaction(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	to, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tx, err := w.Transfer(to.Address(), core.AmountFromUint64(42), 0)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if tx.From != w.Address() {
		t.Fatalf("Transfer: From = %s, want %s", tx.From, w.Address())
	}
	if tx.To != to.Address() {
		t.Fatalf("Transfer: To = %s, want %s", tx.To, to.Address())
	}
	if err := tx.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestNewWrapsExistingKey(t *testing.T) {
	generated, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	wrapped := New(generated.PrivKey())
	if wrapped.Address() != generated.Address() {
		t.Fatal("New: expected the same address when wrapping the same private key")
	}
	if wrapped.PubKey() != generated.PubKey() {
		t.Fatal("New: expected the same public key when wrapping the same private key")
	}
}
