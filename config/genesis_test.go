package config

import (
	"testing"

	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
)

func TestBuildGenesisBlockDeterministic(t *testing.T) {
	_, proposerPub, _ := crypto.GenerateKeyPair()
	_, validatorPub, _ := crypto.GenerateKeyPair()
	_, accountPub, _ := crypto.GenerateKeyPair()
	addr := core.AddressOf(accountPub)

	gcfg := DefaultGenesisConfig()
	gcfg.ProposerPublicKey = proposerPub.Hex()
	gcfg.Validators = []ValidatorInfo{{ID: "v0", PublicKey: validatorPub.Hex()}}
	gcfg.Premine = []PremineEntry{{Address: addr, Amount: core.AmountFromUint64(1000)}}

	block1, state1, cfg1, err := BuildGenesisBlock(gcfg)
	if err != nil {
		t.Fatalf("BuildGenesisBlock: %v", err)
	}
	block2, _, _, err := BuildGenesisBlock(gcfg)
	if err != nil {
		t.Fatalf("BuildGenesisBlock: %v", err)
	}
	if block1.Hash != block2.Hash {
		t.Fatalf("BuildGenesisBlock not deterministic: %s != %s", block1.Hash, block2.Hash)
	}
	if block1.Header.Height != 0 {
		t.Fatalf("genesis height: got %d, want 0", block1.Header.Height)
	}
	if !IsGenesisPrevHash(block1.Header.PrevHash) {
		t.Fatal("genesis prevHash should be the canonical all-zero hash")
	}
	if state1.BalanceOf(addr).String() != "1000" {
		t.Fatalf("premine balance: got %s, want 1000", state1.BalanceOf(addr).String())
	}
	if state1.GenesisHash != block1.Hash {
		t.Fatal("state.GenesisHash must equal the genesis block hash")
	}
	if cfg1.RequiredSignatures != core.RequiredSignaturesFor(1) {
		t.Fatalf("RequiredSignatures: got %d, want %d", cfg1.RequiredSignatures, core.RequiredSignaturesFor(1))
	}
}

func TestBuildGenesisBlockRejectsBadValidatorKey(t *testing.T) {
	_, proposerPub, _ := crypto.GenerateKeyPair()
	gcfg := DefaultGenesisConfig()
	gcfg.ProposerPublicKey = proposerPub.Hex()
	gcfg.Validators = []ValidatorInfo{{ID: "v0", PublicKey: "not-hex"}}

	if _, _, _, err := BuildGenesisBlock(gcfg); err == nil {
		t.Fatal("BuildGenesisBlock: expected an error for a malformed validator public key")
	}
}

func TestBuildGenesisBlockPseudoTransactionsHaveNoSignature(t *testing.T) {
	_, proposerPub, _ := crypto.GenerateKeyPair()
	_, validatorPub, _ := crypto.GenerateKeyPair()
	_, accountPub, _ := crypto.GenerateKeyPair()

	gcfg := DefaultGenesisConfig()
	gcfg.ProposerPublicKey = proposerPub.Hex()
	gcfg.Validators = []ValidatorInfo{{ID: "v0", PublicKey: validatorPub.Hex()}}
	gcfg.Premine = []PremineEntry{{Address: core.AddressOf(accountPub), Amount: core.AmountFromUint64(5)}}

	block, _, _, err := BuildGenesisBlock(gcfg)
	if err != nil {
		t.Fatalf("BuildGenesisBlock: %v", err)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("expected 1 pseudo-transaction, got %d", len(block.Transactions))
	}
	tx := block.Transactions[0]
	if tx.From != core.Zero {
		t.Fatalf("pseudo-transaction From: got %s, want %s", tx.From, core.Zero)
	}
	if tx.Signature != "" || tx.PublicKey != "" {
		t.Fatal("pseudo-transactions must carry no publicKey/signature")
	}
}
