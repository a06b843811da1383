package generator

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// HistogramGenerator generates integers according to a histogram
// distribution. The histogram buckets are of width one, but the values
// are multiplied by a block size, so the value drawn is always a
// multiple of blockSize. The minimum value this distribution returns is
// blockSize (not zero).
type HistogramGenerator struct {
	*IntegerGeneratorBase
	blockSize    int64
	buckets      []int64
	area         int64
	weightedArea int64
	random       *rand.Rand
}

// NewHistogramGeneratorFromFile loads a histogram from a tab-separated
// file whose first line is "BlockSize\t<n>" and whose remaining lines
// are "<bucket>\t<weight>" pairs.
func NewHistogramGeneratorFromFile(
	file string, random *rand.Rand) (*HistogramGenerator, error) {

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buckets []int64
	var blockSize int64
	scanner := bufio.NewScanner(f)
	lineCount := 0
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid format in histogram file %s", file)
		}
		if lineCount == 0 {
			if parts[0] != "BlockSize" {
				return nil, fmt.Errorf(
					"first line of histogram file %s is not the BlockSize", file)
			}
			size, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, err
			}
			blockSize = size
		} else {
			index, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				return nil, err
			}
			weight, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, err
			}
			for int64(len(buckets)) <= index {
				buckets = append(buckets, 0)
			}
			buckets[index] = weight
		}
		lineCount++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewHistogramGenerator(buckets, blockSize, random)
}

func NewHistogramGenerator(
	buckets []int64, blockSize int64, random *rand.Rand) (
	*HistogramGenerator, error) {

	if blockSize <= 0 {
		return nil, fmt.Errorf("non-positive histogram block size %d", blockSize)
	}
	var area, weightedArea int64
	for i, weight := range buckets {
		if weight < 0 {
			return nil, fmt.Errorf(
				"negative weight %d in histogram bucket %d", weight, i)
		}
		area += weight
		weightedArea += int64(i) * weight
	}
	if area <= 0 {
		return nil, fmt.Errorf("histogram has zero total area")
	}
	return &HistogramGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(blockSize),
		blockSize:            blockSize,
		buckets:              buckets,
		area:                 area,
		weightedArea:         weightedArea,
		random:               random,
	}, nil
}

func (self *HistogramGenerator) Next() int64 {
	number := self.random.Int63n(self.area)
	var i int
	for i = 0; i < len(self.buckets)-1; i++ {
		number -= self.buckets[i]
		if number <= 0 {
			break
		}
	}
	next := int64(i+1) * self.blockSize
	self.SetLast(next)
	return next
}

func (self *HistogramGenerator) Mean() float64 {
	return float64(self.blockSize) *
		(float64(self.weightedArea)/float64(self.area) + 1)
}
