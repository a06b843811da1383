package generator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSkewedLatestGenerator(t *testing.T) {
	basis := NewCounterGenerator(0)
	for i := 0; i < 1000; i++ {
		basis.Next()
	}
	g, err := NewSkewedLatestGenerator(basis, NewRand(42))
	require.NoError(t, err)
	total := 100000
	recent := 0
	for i := 0; i < total; i++ {
		v := g.Next()
		require.True(t, v >= 0 && v <= basis.Last())
		require.Equal(t, v, g.Last())
		// Count draws within the 20 newest keys.
		if basis.Last()-v < 20 {
			recent++
		}
	}
	frac := float64(recent) / float64(total)
	require.True(t, frac > 0.35, "recent fraction %v too low", frac)
}

// The distribution follows the basis as it grows.
func TestSkewedLatestGeneratorTracksBasis(t *testing.T) {
	basis := NewCounterGenerator(0)
	basis.Next()
	g, err := NewSkewedLatestGenerator(basis, NewRand(42))
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		basis.Next()
	}
	seenHigh := false
	for i := 0; i < 10000; i++ {
		v := g.Next()
		require.True(t, v >= 0 && v <= basis.Last())
		if v > 100 {
			seenHigh = true
		}
	}
	require.True(t, seenHigh)
}
