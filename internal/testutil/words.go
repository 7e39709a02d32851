package testutil

import "math/rand"

// Words returns n payload words drawn from a generator seeded with seed,
// each masked to the protocol's word width. The same seed always yields
// the same words, matching how the bench derives stimulus from a
// repetition seed.
func Words(seed int64, n int, mask uint64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	words := make([]uint64, n)
	for i := range words {
		words[i] = rng.Uint64() & mask
	}
	return words
}
