package generator

// IntegerGenerator produces a sequence of int64 values following some
// distribution. Implementations are not safe for concurrent use unless
// documented otherwise; each worker routine owns its own instances and
// feeds them from its own random source.
type IntegerGenerator interface {
	// Next returns the next value of the sequence.
	Next() int64
	// Last returns the most recently generated value without advancing
	// the sequence.
	Last() int64
	// Mean returns the expected value of the distribution.
	Mean() float64
}

// IntegerGeneratorBase keeps track of the last generated value. Most
// generators embed it and call SetLast() from their Next().
type IntegerGeneratorBase struct {
	lastValue int64
}

func NewIntegerGeneratorBase(last int64) *IntegerGeneratorBase {
	return &IntegerGeneratorBase{
		lastValue: last,
	}
}

func (self *IntegerGeneratorBase) SetLast(value int64) {
	self.lastValue = value
}

func (self *IntegerGeneratorBase) Last() int64 {
	return self.lastValue
}

// ConstantIntegerGenerator returns the same value forever.
type ConstantIntegerGenerator struct {
	value int64
}

func NewConstantIntegerGenerator(value int64) *ConstantIntegerGenerator {
	return &ConstantIntegerGenerator{
		value: value,
	}
}

func (self *ConstantIntegerGenerator) Next() int64 {
	return self.value
}

func (self *ConstantIntegerGenerator) Last() int64 {
	return self.value
}

func (self *ConstantIntegerGenerator) Mean() float64 {
	return float64(self.value)
}
