package merkle

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func leaf(b byte) []byte {
	h := sha256.Sum256([]byte{b})
	return h[:]
}

func TestRootEmpty(t *testing.T) {
	want := sha256.Sum256(nil)
	if !bytes.Equal(Root(nil), want[:]) {
		t.Fatal("Root(nil): expected SHA-256 of an empty input")
	}
}

func TestRootSingleLeaf(t *testing.T) {
	l := leaf(1)
	if !bytes.Equal(Root([][]byte{l}), l) {
		t.Fatal("Root: single-leaf list should equal the leaf itself")
	}
}

func TestRootEvenCount(t *testing.T) {
	l1, l2 := leaf(1), leaf(2)
	want := sha256.Sum256(append(append([]byte{}, l1...), l2...))
	got := Root([][]byte{l1, l2})
	if !bytes.Equal(got, want[:]) {
		t.Fatal("Root: two-leaf combination mismatch")
	}
}

func TestRootOddCountCarriesTrailingLeaf(t *testing.T) {
	l1, l2, l3 := leaf(1), leaf(2), leaf(3)
	level1 := sha256.Sum256(append(append([]byte{}, l1...), l2...))
	want := sha256.Sum256(append(append([]byte{}, level1[:]...), l3...))
	got := Root([][]byte{l1, l2, l3})
	if !bytes.Equal(got, want[:]) {
		t.Fatal("Root: odd-leaf carry mismatch")
	}
}

func TestRootOrderSensitive(t *testing.T) {
	l1, l2 := leaf(1), leaf(2)
	r1 := Root([][]byte{l1, l2})
	r2 := Root([][]byte{l2, l1})
	if bytes.Equal(r1, r2) {
		t.Fatal("Root: expected different roots for different leaf orderings")
	}
}
