package core

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Amount is an arbitrary-precision non-negative integer, marshalled as a
// decimal string at every boundary (JSON, hashing pre-images).
type Amount struct {
	v *big.Int
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{v: big.NewInt(0)}

// NewAmount wraps a non-negative big.Int. The caller retains no alias to v.
func NewAmount(v *big.Int) (Amount, error) {
	if v == nil {
		return ZeroAmount, nil
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount must be non-negative, got %s", v.String())
	}
	return Amount{v: new(big.Int).Set(v)}, nil
}

// AmountFromUint64 is a convenience constructor for small literal amounts.
func AmountFromUint64(n uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(n)}
}

// ParseAmount parses a decimal string into an Amount, rejecting negatives
// and non-numeric input.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return NewAmount(v)
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// String renders the amount as a base-10 string.
func (a Amount) String() string { return a.big().String() }

// Sign returns -1, 0, +1 as a.big().Sign() would.
func (a Amount) Sign() int { return a.big().Sign() }

// Cmp compares two amounts.
func (a Amount) Cmp(b Amount) int { return a.big().Cmp(b.big()) }

// Add returns a+b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a-b, erroring if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := new(big.Int).Sub(a.big(), b.big())
	if r.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount underflow: %s - %s", a.String(), b.String())
	}
	return Amount{v: r}, nil
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
