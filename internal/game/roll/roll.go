// Package roll provides the randomness abstraction used by spawning, combat,
// and loot. Injecting a Source keeps every chance-based rule deterministic
// under test.
package roll

import (
	"crypto/rand"
	"math/big"
)

// Source produces uniformly distributed integers in [0, n).
type Source interface {
	// Intn returns a random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand. It is safe for
// concurrent use.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "roll: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("roll: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("roll: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Between returns a uniform random int in [min, max], both inclusive.
//
// Precondition: max >= min.
func Between(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Chance reports true with probability p.
//
// Postcondition: p <= 0 never hits; p >= 1 always hits.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return float64(src.Intn(1_000_000)) < p*1_000_000
}

// Pick returns a uniform random index into a collection of length n.
//
// Precondition: n > 0.
func Pick(src Source, n int) int {
	return src.Intn(n)
}
