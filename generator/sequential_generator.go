package generator

import (
	"fmt"
	"sync/atomic"
)

// SequentialGenerator walks the inclusive interval [start, end] in
// order, wrapping back to start past the end. It is safe for concurrent
// use.
type SequentialGenerator struct {
	start    int64
	interval int64
	counter  int64
}

func NewSequentialGenerator(start, end int64) (*SequentialGenerator, error) {
	if start > end {
		return nil, fmt.Errorf("invalid sequential interval [%d, %d]", start, end)
	}
	return &SequentialGenerator{
		start:    start,
		interval: end - start + 1,
	}, nil
}

func (self *SequentialGenerator) Next() int64 {
	offset := atomic.AddInt64(&self.counter, 1) - 1
	return self.start + offset%self.interval
}

func (self *SequentialGenerator) Last() int64 {
	offset := atomic.LoadInt64(&self.counter) - 1
	if offset < 0 {
		return self.start - 1
	}
	return self.start + offset%self.interval
}

func (self *SequentialGenerator) Mean() float64 {
	return float64(self.start) + float64(self.interval-1)/2.0
}
