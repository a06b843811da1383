package generator

import (
	"sync"
	"sync/atomic"
)

// CounterGenerator generates a sequence of increasing integers. It is
// safe for concurrent use, so a single instance may feed the insert key
// sequence of every worker routine.
type CounterGenerator struct {
	counter int64
}

func NewCounterGenerator(start int64) *CounterGenerator {
	return &CounterGenerator{
		counter: start - 1,
	}
}

func (self *CounterGenerator) Next() int64 {
	return atomic.AddInt64(&self.counter, 1)
}

func (self *CounterGenerator) Last() int64 {
	return atomic.LoadInt64(&self.counter)
}

func (self *CounterGenerator) Mean() float64 {
	panic("unsupported operation Mean() in CounterGenerator")
}

const (
	// Size of the sliding window of pending acknowledgements. Must be a
	// power of two. A value leaves the window once every value below it
	// has been acknowledged, so the window only overflows when more than
	// ackWindowSize insertions are in flight at once.
	ackWindowSize = 1 << 20
	ackWindowMask = ackWindowSize - 1
)

// AcknowledgedCounterGenerator is a CounterGenerator whose Last() reports
// the highest value v such that every value <= v has been acknowledged,
// rather than the highest value handed out. Readers of the latest
// distribution use it to avoid requesting keys whose insertion has not
// completed yet.
type AcknowledgedCounterGenerator struct {
	*CounterGenerator
	limitLock sync.Mutex
	limit     int64
	window    []int32
}

func NewAcknowledgedCounterGenerator(start int64) *AcknowledgedCounterGenerator {
	return &AcknowledgedCounterGenerator{
		CounterGenerator: NewCounterGenerator(start),
		limit:            start - 1,
		window:           make([]int32, ackWindowSize),
	}
}

func (self *AcknowledgedCounterGenerator) Last() int64 {
	return atomic.LoadInt64(&self.limit)
}

// Acknowledge marks value as complete and, when it can take the limit
// lock without blocking, advances the limit over the contiguous run of
// acknowledged values. Skipping the advance while another routine holds
// the lock is fine: that routine consumes this slot too.
func (self *AcknowledgedCounterGenerator) Acknowledge(value int64) {
	slot := int(value) & ackWindowMask
	if !atomic.CompareAndSwapInt32(&self.window[slot], 0, 1) {
		panic("too many unacknowledged insertion keys in flight")
	}
	if !self.limitLock.TryLock() {
		return
	}
	defer self.limitLock.Unlock()
	index := atomic.LoadInt64(&self.limit) + 1
	for atomic.CompareAndSwapInt32(&self.window[int(index)&ackWindowMask], 1, 0) {
		index++
	}
	atomic.StoreInt64(&self.limit, index-1)
}
