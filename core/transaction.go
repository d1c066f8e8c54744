package core

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/tolelom/quorumchain/canon"
	"github.com/tolelom/quorumchain/crypto"
)

// DefaultGasLimit is the fixed gas limit carried by every transaction.
// Gas metering is out of scope; this field exists only because the wire
// format names it.
const DefaultGasLimit = 21000

// Transaction is a signed transfer: the only economic effect this chain
// supports.
type Transaction struct {
	Hash        string  `json:"hash"`
	From        Address `json:"from"`
	To          Address `json:"to"`
	Amount      Amount  `json:"amount"`
	Sequence    uint64  `json:"sequence"`
	TimestampMs int64   `json:"timestamp_ms"`
	PublicKey   string  `json:"publicKey"` // hex-encoded ed25519 public key
	Signature   string  `json:"signature"` // hex-encoded ed25519 signature
	GasPrice    Amount  `json:"gasPrice"`
	GasLimit    uint64  `json:"gasLimit"`
}

// hashPreimage is every field of Transaction except Hash itself, the
// exact set the spec's hash computation covers.
type hashPreimage struct {
	From        Address `json:"from"`
	To          Address `json:"to"`
	Amount      Amount  `json:"amount"`
	Sequence    uint64  `json:"sequence"`
	TimestampMs int64   `json:"timestamp_ms"`
	PublicKey   string  `json:"publicKey"`
	Signature   string  `json:"signature"`
	GasPrice    Amount  `json:"gasPrice"`
	GasLimit    string  `json:"gasLimit"` // decimal string, as canon.Marshal expects
}

// signingPreimage is the strict subset of fields the sender's signature
// covers.
type signingPreimage struct {
	From        Address `json:"from"`
	To          Address `json:"to"`
	Amount      Amount  `json:"amount"`
	Sequence    uint64  `json:"sequence"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// ComputeHash returns the canonical SHA-256 hash of every field except
// Hash, 0x-prefixed.
func (tx *Transaction) ComputeHash() (string, error) {
	pre := hashPreimage{
		From: tx.From, To: tx.To, Amount: tx.Amount, Sequence: tx.Sequence,
		TimestampMs: tx.TimestampMs, PublicKey: tx.PublicKey,
		Signature: tx.Signature, GasPrice: tx.GasPrice, GasLimit: strconv.FormatUint(tx.GasLimit, 10),
	}
	data, err := canon.Marshal(pre)
	if err != nil {
		return "", fmt.Errorf("compute tx hash: %w", err)
	}
	return "0x" + crypto.Hash(data), nil
}

// SigningPreimage returns the canonical bytes the sender's signature
// covers: {from,to,amount,sequence,timestamp_ms}.
func (tx *Transaction) SigningPreimage() ([]byte, error) {
	pre := signingPreimage{
		From: tx.From, To: tx.To, Amount: tx.Amount,
		Sequence: tx.Sequence, TimestampMs: tx.TimestampMs,
	}
	data, err := canon.Marshal(pre)
	if err != nil {
		return nil, fmt.Errorf("tx signing preimage: %w", err)
	}
	return data, nil
}

// Sign signs the transaction's signing preimage and sets PublicKey,
// Signature, and Hash.
func (tx *Transaction) Sign(priv crypto.PrivateKey) error {
	tx.PublicKey = priv.Public().Hex()
	pre, err := tx.SigningPreimage()
	if err != nil {
		return err
	}
	tx.Signature = crypto.Sign(priv, pre)
	h, err := tx.ComputeHash()
	if err != nil {
		return err
	}
	tx.Hash = h
	return nil
}

// Verify checks tx.Hash against a fresh computation, tx.From against
// addressOf(publicKey), and the sender's signature over the signing
// preimage.
func (tx *Transaction) Verify() error {
	pub, err := crypto.PubKeyFromHex(tx.PublicKey)
	if err != nil {
		return NewError(KindInvalidSignature, "invalid publicKey: %v", err)
	}
	if AddressOf(pub) != tx.From {
		return NewError(KindAddressMismatch, "from %s does not match publicKey", tx.From)
	}
	computed, err := tx.ComputeHash()
	if err != nil {
		return NewError(KindMalformedRequest, "%v", err)
	}
	if computed != tx.Hash {
		return NewError(KindBadHash, "tx hash mismatch: have %s want %s", tx.Hash, computed)
	}
	pre, err := tx.SigningPreimage()
	if err != nil {
		return NewError(KindMalformedRequest, "%v", err)
	}
	sigBytes, err := hex.DecodeString(tx.Signature)
	if err != nil {
		return NewError(KindInvalidSignature, "invalid signature hex: %v", err)
	}
	if err := crypto.Verify(pub, pre, hex.EncodeToString(sigBytes)); err != nil {
		return NewError(KindInvalidSignature, "signature verification failed")
	}
	return nil
}

// NewTransaction builds an unsigned transaction with the fixed gas fields.
func NewTransaction(from, to Address, amount Amount, sequence uint64, timestampMs int64) *Transaction {
	return &Transaction{
		From: from, To: to, Amount: amount, Sequence: sequence,
		TimestampMs: timestampMs, GasPrice: ZeroAmount, GasLimit: DefaultGasLimit,
	}
}
