package generator

import (
	"math/rand"
)

const (
	// FNV-64 parameters, used to scramble sequential key numbers into a
	// stable pseudo-random permutation of the key space.
	fnvOffsetBasis64 = uint64(0xCBF29CE484222325)
	fnvPrime64       = uint64(1099511628211)
)

// NewRand returns a deterministically seeded random source. Generators
// take one of these at construction so a fixed seed reproduces the exact
// draw sequence.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// FNVHash64 hashes an unsigned 64-bit value with the FNV-1 function.
func FNVHash64(value uint64) uint64 {
	hash := fnvOffsetBasis64
	for i := 0; i < 8; i++ {
		octet := value & 0xFF
		value >>= 8
		hash = hash * fnvPrime64
		hash = hash ^ octet
	}
	return hash
}
