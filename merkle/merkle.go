// Package merkle computes the binary Merkle root shared by the proposer,
// every validator, and the coordinator when building or checking a
// block's txRoot. All three must reach the same root for the same
// transaction set, so this is the single implementation of the rule.
package merkle

import "crypto/sha256"

// Root computes the Merkle root over a list of leaf hashes. Adjacent pairs
// are combined as SHA-256(left||right); a trailing odd leaf at a level is
// carried to the next level unchanged. An empty list hashes to
// SHA-256(""); a single-element list is that element.
func Root(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		h := sha256.Sum256(nil)
		return h[:]
	}
	level := make([][]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				combined := append(append([]byte{}, level[i]...), level[i+1]...)
				h := sha256.Sum256(combined)
				next = append(next, h[:])
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}
