package optimizer

import "math/rand"

// defaultSeed is used when callers pass seed 0 so the default search is reproducible.
const defaultSeed int64 = 1

// rngFromSeed returns a deterministic source. A *rand.Rand is not safe for
// concurrent use; each Search owns its own.
func rngFromSeed(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// uniform draws from [r.Min, r.Max].
func uniform(rng *rand.Rand, r Range) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}
