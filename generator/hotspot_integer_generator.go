package generator

import (
	"fmt"
	"math/rand"
)

// HotspotIntegerGenerator splits [lowerBound, upperBound] into a hot set
// at the front of the interval and a cold set behind it, and directs
// hotOpnFraction of the draws at the hot set, uniformly within each set.
type HotspotIntegerGenerator struct {
	*IntegerGeneratorBase
	lowerBound     int64
	upperBound     int64
	hotInterval    int64
	coldInterval   int64
	hotsetFraction float64
	hotOpnFraction float64
	random         *rand.Rand
}

func NewHotspotIntegerGenerator(
	lowerBound, upperBound int64,
	hotsetFraction, hotOpnFraction float64, random *rand.Rand) (
	*HotspotIntegerGenerator, error) {

	if lowerBound > upperBound {
		return nil, fmt.Errorf(
			"invalid hotspot interval [%d, %d]", lowerBound, upperBound)
	}
	if hotsetFraction < 0.0 || hotsetFraction > 1.0 {
		return nil, fmt.Errorf(
			"hotspot data fraction %v outside [0, 1]", hotsetFraction)
	}
	if hotOpnFraction < 0.0 || hotOpnFraction > 1.0 {
		return nil, fmt.Errorf(
			"hotspot operation fraction %v outside [0, 1]", hotOpnFraction)
	}
	interval := upperBound - lowerBound + 1
	hotInterval := int64(float64(interval) * hotsetFraction)
	return &HotspotIntegerGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(lowerBound),
		lowerBound:           lowerBound,
		upperBound:           upperBound,
		hotInterval:          hotInterval,
		coldInterval:         interval - hotInterval,
		hotsetFraction:       hotsetFraction,
		hotOpnFraction:       hotOpnFraction,
		random:               random,
	}, nil
}

func (self *HotspotIntegerGenerator) Next() int64 {
	var value int64
	if self.random.Float64() < self.hotOpnFraction && self.hotInterval > 0 {
		value = self.lowerBound + self.random.Int63n(self.hotInterval)
	} else if self.coldInterval > 0 {
		value = self.lowerBound + self.hotInterval +
			self.random.Int63n(self.coldInterval)
	} else {
		value = self.lowerBound
	}
	self.SetLast(value)
	return value
}

func (self *HotspotIntegerGenerator) Mean() float64 {
	return self.hotOpnFraction*
		(float64(self.lowerBound)+float64(self.hotInterval)/2.0) +
		(1-self.hotOpnFraction)*
			(float64(self.lowerBound+self.hotInterval)+float64(self.coldInterval)/2.0)
}
