package wallet

import (
	"time"

	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
)

// Wallet holds a key pair and builds signed transfer transactions, the
// minimal signing helper the façade's faucet route and test suite need —
// not the client wallet/UI that is out of scope.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey { return w.priv }

// PubKey returns the hex-encoded ed25519 public key.
func (w *Wallet) PubKey() string { return w.pub.Hex() }

// Address returns the wallet's 0x-prefixed address.
func (w *Wallet) Address() core.Address { return core.AddressOf(w.pub) }

// Transfer builds and signs a transfer from this wallet to recipient at
// the given sequence.
func (w *Wallet) Transfer(to core.Address, amount core.Amount, sequence uint64) (*core.Transaction, error) {
	tx := core.NewTransaction(w.Address(), to, amount, sequence, time.Now().UnixMilli())
	if err := tx.Sign(w.priv); err != nil {
		return nil, err
	}
	return tx, nil
}
