package generator

import (
	"fmt"
	"math"
	"math/rand"
)

// ExponentialGenerator draws values from an exponential distribution,
// skewed toward zero. The workload driver uses it to pick how far below
// the newest key a request lands, so recent inserts dominate.
type ExponentialGenerator struct {
	*IntegerGeneratorBase
	gamma  float64
	random *rand.Rand
}

// NewExponentialGeneratorByMean creates the distribution from its mean.
func NewExponentialGeneratorByMean(
	mean float64, random *rand.Rand) (*ExponentialGenerator, error) {

	if mean <= 0 {
		return nil, fmt.Errorf("non-positive exponential mean %v", mean)
	}
	return &ExponentialGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		gamma:                1.0 / mean,
		random:               random,
	}, nil
}

// NewExponentialGenerator creates a distribution where percentile
// percent of the draws fall within theRange of zero.
func NewExponentialGenerator(
	percentile, theRange float64, random *rand.Rand) (
	*ExponentialGenerator, error) {

	if percentile <= 0 || percentile >= 100 {
		return nil, fmt.Errorf(
			"exponential percentile %v outside (0, 100)", percentile)
	}
	if theRange <= 0 {
		return nil, fmt.Errorf("non-positive exponential range %v", theRange)
	}
	return &ExponentialGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		gamma:                -math.Log(1.0-percentile/100.0) / theRange,
		random:               random,
	}, nil
}

func (self *ExponentialGenerator) Next() int64 {
	u := self.random.Float64()
	for u == 0 {
		u = self.random.Float64()
	}
	next := int64(-math.Log(u) / self.gamma)
	self.SetLast(next)
	return next
}

func (self *ExponentialGenerator) Mean() float64 {
	return 1.0 / self.gamma
}
