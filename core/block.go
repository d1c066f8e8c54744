package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tolelom/quorumchain/canon"
	"github.com/tolelom/quorumchain/crypto"
	"github.com/tolelom/quorumchain/merkle"
)

// BlockHeader is hashed (and only it) to produce Block.Hash.
type BlockHeader struct {
	Height      uint64  `json:"height"`
	TimestampMs int64   `json:"timestamp_ms"`
	PrevHash    string  `json:"prevHash"`
	TxRoot      string  `json:"txRoot"`
	StateRoot   string  `json:"stateRoot"`
	Proposer    Address `json:"proposer"`
	TxCount     int     `json:"txCount"`
}

// Vote is one validator's signature over a block hash.
type Vote struct {
	ValidatorID     string `json:"validatorId"`
	ValidatorPubKey string `json:"validatorPubKey"`
	Signature       string `json:"signature"`
	TimestampMs     int64  `json:"timestamp_ms"`
}

// Block pairs a signed header with its transactions and the quorum of
// validator votes gathered for it.
type Block struct {
	Header             BlockHeader    `json:"header"`
	Transactions       []*Transaction `json:"transactions"`
	Hash               string         `json:"hash"`
	ProposerSignature  string         `json:"proposerSignature"`
	Votes              []Vote         `json:"votes"`
}

// ComputeHash returns the canonical SHA-256 hash of the header only,
// 0x-prefixed.
func (b *Block) ComputeHash() (string, error) {
	data, err := canon.Marshal(b.Header)
	if err != nil {
		return "", fmt.Errorf("compute block hash: %w", err)
	}
	return "0x" + crypto.Hash(data), nil
}

// SignaturePreimage is the ASCII string every proposer/validator signature
// over this block covers: "block:" + hex(hash).
func (b *Block) SignaturePreimage() []byte {
	return []byte("block:" + b.Hash)
}

// Sign computes Hash and sets ProposerSignature.
func (b *Block) Sign(priv crypto.PrivateKey) error {
	h, err := b.ComputeHash()
	if err != nil {
		return err
	}
	b.Hash = h
	b.ProposerSignature = crypto.Sign(priv, b.SignaturePreimage())
	return nil
}

// VerifyProposerSignature checks ProposerSignature against pub.
func (b *Block) VerifyProposerSignature(pub crypto.PublicKey) error {
	return crypto.Verify(pub, b.SignaturePreimage(), b.ProposerSignature)
}

// VerifyHash recomputes the header hash and compares it to b.Hash.
func (b *Block) VerifyHash() error {
	computed, err := b.ComputeHash()
	if err != nil {
		return NewError(KindMalformedRequest, "%v", err)
	}
	if computed != b.Hash {
		return NewError(KindBadHash, "block hash mismatch: have %s want %s", b.Hash, computed)
	}
	return nil
}

// ComputeTxRoot builds the Merkle root (see package merkle) over the
// transaction hashes, in order, 0x-prefixed.
func ComputeTxRoot(txs []*Transaction) (string, error) {
	leaves := make([][]byte, len(txs))
	for i, tx := range txs {
		raw := strings.TrimPrefix(tx.Hash, "0x")
		b, err := hex.DecodeString(raw)
		if err != nil {
			return "", NewError(KindMalformedRequest, "tx %d has invalid hash: %v", i, err)
		}
		leaves[i] = b
	}
	return "0x" + hex.EncodeToString(merkle.Root(leaves)), nil
}

// NewBlock builds an unsigned block with TxRoot precomputed.
func NewBlock(height uint64, prevHash string, proposer Address, txs []*Transaction, timestampMs int64) (*Block, error) {
	txRoot, err := ComputeTxRoot(txs)
	if err != nil {
		return nil, err
	}
	return &Block{
		Header: BlockHeader{
			Height:      height,
			TimestampMs: timestampMs,
			PrevHash:    prevHash,
			TxRoot:      txRoot,
			Proposer:    proposer,
			TxCount:     len(txs),
		},
		Transactions: txs,
	}, nil
}
