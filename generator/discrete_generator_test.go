package generator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscreteGenerator(t *testing.T) {
	g, err := NewDiscreteGenerator(NewRand(42),
		Pair[string]{Weight: 0.5, Value: "read"},
		Pair[string]{Weight: 0.5, Value: "update"},
	)
	require.NoError(t, err)
	counts := make(map[string]int)
	total := 100000
	for i := 0; i < total; i++ {
		v := g.Next()
		require.Equal(t, v, g.Last())
		counts[v]++
	}
	// A 1:1 mix over 100k draws stays within a few percent of even.
	ratio := float64(counts["read"]) / float64(counts["update"])
	require.InDelta(t, 1.0, ratio, 0.05)
}

func TestDiscreteGeneratorWeights(t *testing.T) {
	g, err := NewDiscreteGenerator(NewRand(42),
		Pair[string]{Weight: 0.9, Value: "hot"},
		Pair[string]{Weight: 0.1, Value: "cold"},
	)
	require.NoError(t, err)
	hot := 0
	total := 100000
	for i := 0; i < total; i++ {
		if g.Next() == "hot" {
			hot++
		}
	}
	require.InDelta(t, 0.9, float64(hot)/float64(total), 0.01)
}

func TestDiscreteGeneratorRejectsBadParams(t *testing.T) {
	_, err := NewDiscreteGenerator[string](NewRand(42))
	require.Error(t, err)
	_, err = NewDiscreteGenerator(NewRand(42),
		Pair[string]{Weight: 0.0, Value: "read"})
	require.Error(t, err)
	_, err = NewDiscreteGenerator(NewRand(42),
		Pair[string]{Weight: -1.0, Value: "read"})
	require.Error(t, err)
}
