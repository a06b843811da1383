package generator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHotspotIntegerGenerator(t *testing.T) {
	lower := int64(0)
	upper := int64(9999)
	g, err := NewHotspotIntegerGenerator(lower, upper, 0.1, 0.9, NewRand(42))
	require.NoError(t, err)
	hotBound := lower + int64(float64(upper-lower+1)*0.1)
	total := 100000
	hot := 0
	for i := 0; i < total; i++ {
		v := g.Next()
		require.True(t, v >= lower && v <= upper)
		require.Equal(t, v, g.Last())
		if v < hotBound {
			hot++
		}
	}
	// 90% of the draws hit the hot set; over 100k draws the observed
	// fraction stays well within a 1% band.
	frac := float64(hot) / float64(total)
	require.True(t, frac >= 0.89 && frac <= 0.91,
		"hot fraction %v outside [0.89, 0.91]", frac)
}

func TestHotspotIntegerGeneratorRejectsBadParams(t *testing.T) {
	_, err := NewHotspotIntegerGenerator(10, 5, 0.1, 0.9, NewRand(42))
	require.Error(t, err)
	_, err = NewHotspotIntegerGenerator(0, 100, -0.1, 0.9, NewRand(42))
	require.Error(t, err)
	_, err = NewHotspotIntegerGenerator(0, 100, 1.1, 0.9, NewRand(42))
	require.Error(t, err)
	_, err = NewHotspotIntegerGenerator(0, 100, 0.1, -0.9, NewRand(42))
	require.Error(t, err)
	_, err = NewHotspotIntegerGenerator(0, 100, 0.1, 1.9, NewRand(42))
	require.Error(t, err)
}
