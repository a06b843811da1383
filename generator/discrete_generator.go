package generator

import (
	"fmt"
	"math/rand"
)

// Pair is one weighted choice of a DiscreteGenerator.
type Pair[T any] struct {
	Weight float64
	Value  T
}

// DiscreteGenerator picks among a fixed set of values with probability
// proportional to their weights. The workload driver uses it as the
// operation chooser.
type DiscreteGenerator[T any] struct {
	values []Pair[T]
	sum    float64
	last   T
	random *rand.Rand
}

func NewDiscreteGenerator[T any](
	random *rand.Rand, values ...Pair[T]) (*DiscreteGenerator[T], error) {

	if len(values) == 0 {
		return nil, fmt.Errorf("no values for discrete distribution")
	}
	var sum float64
	for _, p := range values {
		if p.Weight <= 0 {
			return nil, fmt.Errorf(
				"non-positive weight %v for value %v", p.Weight, p.Value)
		}
		sum += p.Weight
	}
	object := &DiscreteGenerator[T]{
		values: values,
		sum:    sum,
		random: random,
	}
	object.Next()
	return object, nil
}

func (self *DiscreteGenerator[T]) Next() T {
	target := self.random.Float64() * self.sum
	for _, p := range self.values {
		if target < p.Weight {
			self.last = p.Value
			return p.Value
		}
		target -= p.Weight
	}
	// Floating point rounding can push target a hair past the last
	// weight. Fall back to the final value.
	self.last = self.values[len(self.values)-1].Value
	return self.last
}

func (self *DiscreteGenerator[T]) Last() T {
	return self.last
}
