// Package ledger holds the value-transfer primitives shared by the registry
// and the arbitrators it talks to.
package ledger

import (
	"context"
	"math/big"
)

//go:generate mockgen -package mocks -destination mocks/payer.go . Payer

// Account identifies a party. It is opaque to the registry.
type Account string

func (a Account) String() string {
	return string(a)
}

// Payer moves value out of the registry to an account.
type Payer interface {
	Pay(ctx context.Context, to Account, amount *big.Int) error
}

// Zero returns a fresh zero amount.
func Zero() *big.Int {
	return new(big.Int)
}

// Copy returns a copy of a, treating nil as zero.
func Copy(a *big.Int) *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a)
}

// Add returns a+b.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(Copy(a), Copy(b))
}

// Sub returns a-b. It panics when the result would be negative.
func Sub(a, b *big.Int) *big.Int {
	res := new(big.Int).Sub(Copy(a), Copy(b))
	if res.Sign() < 0 {
		panic("ledger: amount underflow")
	}
	return res
}

// MulDiv returns floor(a*b/c), or zero when c is zero.
func MulDiv(a, b, c *big.Int) *big.Int {
	if c == nil || c.Sign() == 0 {
		return new(big.Int)
	}
	res := new(big.Int).Mul(Copy(a), Copy(b))
	return res.Quo(res, c)
}

// Min returns the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if Copy(a).Cmp(Copy(b)) <= 0 {
		return Copy(a)
	}
	return Copy(b)
}

// IsZero reports whether a is nil or zero.
func IsZero(a *big.Int) bool {
	return a == nil || a.Sign() == 0
}
