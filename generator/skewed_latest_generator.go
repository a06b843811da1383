package generator

import (
	"math/rand"
)

// SkewedLatestGenerator draws keys skewed toward the most recently
// inserted ones: the newest key (the basis counter's Last()) is the most
// popular, the one before it the next most popular, and so on with a
// zipfian fall-off.
type SkewedLatestGenerator struct {
	*IntegerGeneratorBase
	basis   IntegerGenerator
	zipfian *ZipfianGenerator
}

func NewSkewedLatestGenerator(
	basis IntegerGenerator, random *rand.Rand) (
	*SkewedLatestGenerator, error) {

	items := basis.Last() + 1
	if items < 1 {
		items = 1
	}
	zipfian, err := NewZipfianGeneratorByInterval(0, items-1, random)
	if err != nil {
		return nil, err
	}
	object := &SkewedLatestGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		basis:                basis,
		zipfian:              zipfian,
	}
	object.Next()
	return object, nil
}

func (self *SkewedLatestGenerator) Next() int64 {
	max := self.basis.Last()
	if max < 0 {
		self.SetLast(0)
		return 0
	}
	ret := max - self.zipfian.NextForItems(max+1)
	self.SetLast(ret)
	return ret
}

func (self *SkewedLatestGenerator) Mean() float64 {
	panic("unsupported operation Mean() in SkewedLatestGenerator")
}
