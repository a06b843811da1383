package generator

import (
	"fmt"
	"math/rand"
)

// UniformIntegerGenerator draws integers uniformly from the inclusive
// interval [lowerBound, upperBound].
type UniformIntegerGenerator struct {
	*IntegerGeneratorBase
	lowerBound int64
	interval   int64
	random     *rand.Rand
}

func NewUniformIntegerGenerator(
	lowerBound, upperBound int64, random *rand.Rand) (
	*UniformIntegerGenerator, error) {

	if lowerBound > upperBound {
		return nil, fmt.Errorf(
			"invalid uniform interval [%d, %d]", lowerBound, upperBound)
	}
	return &UniformIntegerGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(lowerBound),
		lowerBound:           lowerBound,
		interval:             upperBound - lowerBound + 1,
		random:               random,
	}, nil
}

func (self *UniformIntegerGenerator) Next() int64 {
	ret := self.lowerBound + self.random.Int63n(self.interval)
	self.SetLast(ret)
	return ret
}

func (self *UniformIntegerGenerator) Mean() float64 {
	return float64(self.lowerBound) + float64(self.interval-1)/2.0
}
