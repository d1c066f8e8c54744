package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tolelom/quorumchain/crypto"
)

// Address is the first 20 bytes of SHA-256(pubkey), rendered with a 0x
// prefix wherever it crosses a package boundary.
type Address string

// AddressOf derives the Address for a public key.
func AddressOf(pub crypto.PublicKey) Address {
	return Address("0x" + pub.Address())
}

// Zero is the sender of premine pseudo-transactions at genesis.
const Zero Address = "0x0000000000000000000000000000000000000000"

// NormalizeAddress lower-cases and validates the 0x-prefixed, 40-hex-char shape.
func NormalizeAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("address missing 0x prefix: %q", s)
	}
	raw := s[2:]
	if len(raw) != 40 {
		return "", fmt.Errorf("address must be 40 hex chars, got %d", len(raw))
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("address not valid hex: %w", err)
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }
