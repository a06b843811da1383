package generator

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	// The default zipfian skew.
	ZipfianConstant = float64(0.99)

	// Item count and matching precomputed zetan used by the scrambled
	// zipfian generator, so that changing the number of records never
	// forces a full zeta recomputation.
	scrambledZipfianItemCount = int64(10000000000)
	zetanForItemCount         = float64(26.46902820178302)
)

// Compute the zeta constant for the distribution, incrementally for a
// distribution that has n items now but used to have st items, with the
// zipfian constant theta. The returned count remembers the n the sum was
// computed for, so a later item count change knows to recompute.
func zeta(st, n int64, theta, initialSum float64) (int64, float64) {
	return n, zetaStatic(st, n, theta, initialSum)
}

func zetaStatic(st, n int64, theta, initialSum float64) float64 {
	sum := initialSum
	for i := st; i < n; i++ {
		sum += 1 / math.Pow(float64(i+1), theta)
	}
	return sum
}

// ZipfianGenerator produces a sequence of items such that some items are
// exponentially more popular than others, following a zipfian
// distribution over [base, base+items). The popular items cluster at the
// low end of the interval: base is the most popular item, base+1 the
// next, and so on. Use ScrambledZipfianGenerator to spread the popular
// items across the whole key space instead.
//
// Construction computes zeta, a sum sequence from 1 to items, which can
// take a while for very large item counts. Growing the item count later
// (NextForItems with a larger count) extends zeta incrementally and is
// cheap.
//
// The algorithm is from "Quickly Generating Billion-Record Synthetic
// Databases", Jim Gray et al, SIGMOD 1994.
type ZipfianGenerator struct {
	*IntegerGeneratorBase
	items int64
	base  int64
	// Computed parameters of the distribution.
	alpha, zetan, eta, theta, zeta2theta float64
	// The item count zetan was last computed for.
	countForZeta int64
	random       *rand.Rand
}

// NewZipfianGenerator creates a zipfian generator for items between min
// and max (inclusive) with the given zipfian constant. The constant must
// lie in (0, 1); 1 makes alpha diverge and values outside the interval
// are not a zipfian skew.
func NewZipfianGenerator(
	min, max int64, zipfianConstant float64, random *rand.Rand) (
	*ZipfianGenerator, error) {

	if min > max {
		return nil, fmt.Errorf("invalid zipfian interval [%d, %d]", min, max)
	}
	if zipfianConstant <= 0 || zipfianConstant >= 1 {
		return nil, fmt.Errorf(
			"zipfian constant %v outside (0, 1)", zipfianConstant)
	}
	items := max - min + 1
	zetan := zetaStatic(0, items, zipfianConstant, 0)
	return newZipfianGeneratorWithZetan(
		min, max, zipfianConstant, zetan, random), nil
}

// NewZipfianGeneratorByInterval is NewZipfianGenerator with the default
// zipfian constant.
func NewZipfianGeneratorByInterval(
	min, max int64, random *rand.Rand) (*ZipfianGenerator, error) {

	return NewZipfianGenerator(min, max, ZipfianConstant, random)
}

func newZipfianGeneratorWithZetan(
	min, max int64, zipfianConstant, zetan float64,
	random *rand.Rand) *ZipfianGenerator {

	items := max - min + 1
	theta := zipfianConstant
	_, zeta2theta := zeta(0, 2, theta, 0)
	object := &ZipfianGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(min),
		items:                items,
		base:                 min,
		alpha:                1.0 / (1.0 - theta),
		zetan:                zetan,
		eta: (1 - math.Pow(2.0/float64(items), 1-theta)) /
			(1 - zeta2theta/zetan),
		theta:        theta,
		zeta2theta:   zeta2theta,
		countForZeta: items,
		random:       random,
	}
	object.Next()
	return object
}

func (self *ZipfianGenerator) Next() int64 {
	return self.NextForItems(self.items)
}

// NextForItems draws the next item from a zipfian distribution over
// itemCount items. Growing itemCount extends zeta incrementally;
// shrinking it is ignored and the larger zeta keeps being used, which
// only flattens the tail slightly.
func (self *ZipfianGenerator) NextForItems(itemCount int64) int64 {
	if itemCount > self.countForZeta {
		self.countForZeta, self.zetan = zeta(
			self.countForZeta, itemCount, self.theta, self.zetan)
		self.eta = (1 - math.Pow(2.0/float64(self.items), 1-self.theta)) /
			(1 - self.zeta2theta/self.zetan)
	}

	u := self.random.Float64()
	uz := u * self.zetan
	var ret int64
	switch {
	case uz < 1.0:
		ret = self.base
	case uz < 1.0+math.Pow(0.5, self.theta):
		ret = self.base + 1
	default:
		ret = self.base +
			int64(float64(itemCount)*math.Pow(self.eta*u-self.eta+1.0, self.alpha))
	}
	self.SetLast(ret)
	return ret
}

func (self *ZipfianGenerator) Mean() float64 {
	panic("unsupported operation Mean() in ZipfianGenerator")
}

// ScrambledZipfianGenerator draws from a zipfian distribution and then
// scatters the popular items across [min, max] with an FNV-64 hash, so
// the hot set is spread over the whole key space instead of clustering
// at the low end.
type ScrambledZipfianGenerator struct {
	*IntegerGeneratorBase
	gen       *ZipfianGenerator
	min       int64
	itemCount int64
}

func NewScrambledZipfianGenerator(
	min, max int64, random *rand.Rand) (*ScrambledZipfianGenerator, error) {

	if min > max {
		return nil, fmt.Errorf(
			"invalid scrambled zipfian interval [%d, %d]", min, max)
	}
	// The underlying zipfian always spans the huge fixed item space with
	// its precomputed zetan, so record count changes stay cheap.
	gen := newZipfianGeneratorWithZetan(
		0, scrambledZipfianItemCount-1, ZipfianConstant,
		zetanForItemCount, random)
	return &ScrambledZipfianGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(min),
		gen:                  gen,
		min:                  min,
		itemCount:            max - min + 1,
	}, nil
}

// NewScrambledZipfianGeneratorByItems draws from [0, items).
func NewScrambledZipfianGeneratorByItems(
	items int64, random *rand.Rand) (*ScrambledZipfianGenerator, error) {

	return NewScrambledZipfianGenerator(0, items-1, random)
}

func (self *ScrambledZipfianGenerator) Next() int64 {
	ret := self.gen.Next()
	ret = self.min + int64(FNVHash64(uint64(ret))%uint64(self.itemCount))
	self.SetLast(ret)
	return ret
}

func (self *ScrambledZipfianGenerator) Mean() float64 {
	return float64(self.min) + float64(self.itemCount-1)/2.0
}
