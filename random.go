package uxsimpp

import (
	"math/rand"
)

// randomChoice selects one item according to the given non-negative weights.
// A zero (or negative) weight total falls back to a uniform pick. The RNG is
// passed explicitly so that all draws come from the single world generator
// and stay reproducible for a fixed seed.
func randomChoice[T any](items []T, weights []float64, rng *rand.Rand) (T, bool) {
	var none T
	if len(items) == 0 || len(items) != len(weights) {
		return none, false
	}
	wsum := 0.0
	for _, weight := range weights {
		wsum += weight
	}
	if wsum <= 0.0 {
		return items[rng.Intn(len(items))], true
	}
	r := rng.Float64() * wsum
	accum := 0.0
	for i := range items {
		accum += weights[i]
		if r <= accum {
			return items[i], true
		}
	}
	return items[len(items)-1], true
}

// removeFromSlice removes the first occurrence of item, keeping order.
func removeFromSlice[T comparable](slice []T, item T) []T {
	for i := range slice {
		if slice[i] == item {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}
