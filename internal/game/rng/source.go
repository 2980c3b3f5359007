// Package rng provides the randomness source and roll helpers used by the
// attack layer to decide crit flags before events reach the damage pipeline.
package rng

import (
	"crypto/rand"
	"math/big"
)

// Source produces uniformly distributed integers in [0, n). The production
// implementation is crypto-backed; tests inject deterministic sources.
type Source interface {
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "rng: Intn called with n <= 0" if n <= 0.
// Panics with "rng: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}
