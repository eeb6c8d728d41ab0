package generator

import "math/rand"

// Rand is the random source used for noise injection.
// Float64 must return a value in [0, 1).
type Rand interface {
	Float64() float64
}

// DefaultRand draws from the math/rand top-level source, which is safe for
// concurrent use and seeded randomly since Go 1.20.
var DefaultRand Rand = globalRand{}

type globalRand struct{}

func (globalRand) Float64() float64 {
	return rand.Float64()
}

// uniform returns a value in [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
