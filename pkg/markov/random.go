package markov

import "math/rand/v2"

// RandomSource supplies uniform draws in [0,1) for sampling.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	Float64() float64
}

// NewSource returns a generator whose sequence is fully determined by seed.
func NewSource(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s))
}

// NewEntropySource returns a generator seeded from the runtime's entropy
// source. Its sequence is not reproducible.
func NewEntropySource() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
