package kvbench

import (
	"testing"

	"github.com/hhkbp2/kvbench/generator"
	"github.com/stretchr/testify/require"
)

func TestProperties(t *testing.T) {
	k := "key"
	v := "value"
	p := NewProperties()
	p.Add(k, v)
	x := p.Get(k)
	require.Equal(t, v, x)
	x = p.GetDefault(k, "other")
	require.Equal(t, v, x)
	k1 := "a"
	v1 := "b"
	p2 := Properties{k1: v1}
	p.Merge(p2)
	z := p.Get(k1)
	require.Equal(t, v1, z)
}

func TestRandomBytes(t *testing.T) {
	random := generator.NewRand(42)
	length := int64(100)
	b1 := RandomBytes(random, length)
	require.Equal(t, length, int64(len(b1)))
	b2 := RandomBytes(random, length)
	require.Equal(t, length, int64(len(b2)))
	require.NotEqual(t, b1, b2)
}
