package wang

import "math/rand/v2"

// Rand is the randomness Choose needs. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a PCG generator for (seed, stream). The same pair always
// yields the same sequence.
func NewRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// Choose picks one candidate with probability Probability(i) / Σ Probability.
// It draws exactly one value from rng per call, so a fixed seed and a fixed
// candidate order reproduce the same sequence of picks.
func Choose(candidates []TileDefinition, rng Rand) (TileDefinition, error) {
	if len(candidates) == 0 {
		return TileDefinition{}, ErrEmptyCandidateSet
	}
	if len(candidates) == 1 {
		_ = rng.Float64()
		return candidates[0], nil
	}

	var total float64
	for _, c := range candidates {
		total += c.Probability
	}
	r := rng.Float64() * total
	for _, c := range candidates {
		if r < c.Probability {
			return c, nil
		}
		r -= c.Probability
	}
	// Rounding can leave r just above zero after the last subtraction.
	return candidates[len(candidates)-1], nil
}
