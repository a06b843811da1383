package kvbench

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

const histogramSignificantFigures = 3

// ParsePercentiles parses the comma separated percentile list of the
// percentiles property, e.g. "50,95,99,99.9".
func ParsePercentiles(value string) ([]float64, error) {
	parts := strings.Split(value, ",")
	ret := make([]float64, 0, len(parts))
	for _, part := range parts {
		p, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || p <= 0 || p >= 100 {
			return nil, NewConfigError(PropertyPercentiles,
				"invalid percentile %q", part)
		}
		ret = append(ret, p)
	}
	return ret, nil
}

// Shard collects the measurements of a single worker routine. It is
// written by that routine alone during the run and merged once at
// shutdown, so it needs no synchronization.
type Shard struct {
	maxLatencyMicros   int64
	reportErrorLatency bool
	histograms         map[OperationKind]*hdrhistogram.Histogram
	statuses           map[OperationKind]map[StatusType]int64
}

func NewShard(maxLatency time.Duration, reportErrorLatency bool) *Shard {
	return &Shard{
		maxLatencyMicros:   maxLatency.Microseconds(),
		reportErrorLatency: reportErrorLatency,
		histograms:         make(map[OperationKind]*hdrhistogram.Histogram),
		statuses:           make(map[OperationKind]map[StatusType]int64),
	}
}

// Measure records one finished operation. Latency enters the histogram
// for successful operations (and, when configured, failed ones), clamped
// to the histogram bounds so an overflow is counted at the ceiling
// instead of dropped.
func (self *Shard) Measure(
	kind OperationKind, status StatusType, latency time.Duration) {

	counts, ok := self.statuses[kind]
	if !ok {
		counts = make(map[StatusType]int64)
		self.statuses[kind] = counts
	}
	counts[status]++

	if status != StatusOK && !self.reportErrorLatency {
		return
	}
	h, ok := self.histograms[kind]
	if !ok {
		h = hdrhistogram.New(1, self.maxLatencyMicros, histogramSignificantFigures)
		self.histograms[kind] = h
	}
	micros := latency.Microseconds()
	if micros < 1 {
		micros = 1
	} else if micros > self.maxLatencyMicros {
		micros = self.maxLatencyMicros
	}
	h.RecordValue(micros)
}

// OperationStats is the merged per-kind result of a run.
type OperationStats struct {
	Kind       OperationKind
	Operations int64
	Failures   int64
	Histogram  *hdrhistogram.Histogram
	Statuses   map[StatusType]int64
}

// Measurements holds the merged shards of a finished run.
type Measurements struct {
	ops         map[OperationKind]*OperationStats
	percentiles []float64
}

// MergeShards folds the per-worker shards into one Measurements.
func MergeShards(
	percentiles []float64, maxLatency time.Duration,
	shards ...*Shard) *Measurements {

	ops := make(map[OperationKind]*OperationStats)
	statsFor := func(kind OperationKind) *OperationStats {
		s, ok := ops[kind]
		if !ok {
			s = &OperationStats{
				Kind: kind,
				Histogram: hdrhistogram.New(
					1, maxLatency.Microseconds(), histogramSignificantFigures),
				Statuses: make(map[StatusType]int64),
			}
			ops[kind] = s
		}
		return s
	}
	for _, shard := range shards {
		for kind, counts := range shard.statuses {
			s := statsFor(kind)
			for status, count := range counts {
				s.Statuses[status] += count
				s.Operations += count
				if status != StatusOK {
					s.Failures += count
				}
			}
		}
		for kind, h := range shard.histograms {
			statsFor(kind).Histogram.Merge(h)
		}
	}
	return &Measurements{
		ops:         ops,
		percentiles: percentiles,
	}
}

// Get returns the merged stats of one operation kind, or nil if the run
// never issued it.
func (self *Measurements) Get(kind OperationKind) *OperationStats {
	return self.ops[kind]
}

func ordinal(n float64) string {
	if n != math.Trunc(n) {
		return fmt.Sprintf("%vth", n)
	}
	i := int64(n)
	switch {
	case i%100 >= 11 && i%100 <= 13:
		return fmt.Sprintf("%dth", i)
	case i%10 == 1:
		return fmt.Sprintf("%dst", i)
	case i%10 == 2:
		return fmt.Sprintf("%dnd", i)
	case i%10 == 3:
		return fmt.Sprintf("%drd", i)
	default:
		return fmt.Sprintf("%dth", i)
	}
}

// Export writes the per-kind stats in report order.
func (self *Measurements) Export(exporter MeasurementExporter) error {
	for _, kind := range OperationKinds {
		s, ok := self.ops[kind]
		if !ok {
			continue
		}
		name := kind.String()
		if err := exporter.Write(name, "Operations", s.Operations); err != nil {
			return err
		}
		if err := exporter.Write(name, "Failures", s.Failures); err != nil {
			return err
		}
		if s.Histogram.TotalCount() > 0 {
			if err := exporter.Write(name, "AverageLatency(us)",
				s.Histogram.Mean()); err != nil {
				return err
			}
			if err := exporter.Write(name, "MinLatency(us)",
				s.Histogram.Min()); err != nil {
				return err
			}
			if err := exporter.Write(name, "MaxLatency(us)",
				s.Histogram.Max()); err != nil {
				return err
			}
			for _, p := range self.percentiles {
				metric := fmt.Sprintf("%sPercentileLatency(us)", ordinal(p))
				if err := exporter.Write(name, metric,
					s.Histogram.ValueAtQuantile(p)); err != nil {
					return err
				}
			}
		}
		statuses := make([]StatusType, 0, len(s.Statuses))
		for status := range s.Statuses {
			statuses = append(statuses, status)
		}
		sort.Slice(statuses, func(i, j int) bool {
			return statuses[i] < statuses[j]
		})
		for _, status := range statuses {
			if err := exporter.Write(name,
				fmt.Sprintf("Return=%s", status), s.Statuses[status]); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetSummary returns a one line summary per operation kind.
func (self *Measurements) GetSummary() string {
	var buf strings.Builder
	for _, kind := range OperationKinds {
		s, ok := self.ops[kind]
		if !ok {
			continue
		}
		h := s.Histogram
		fmt.Fprintf(&buf, "[%s: Count=%d, Failures=%d, Max=%d, Min=%d, Avg=%.2f, 99=%d]",
			kind, s.Operations, s.Failures,
			h.Max(), h.Min(), h.Mean(), h.ValueAtQuantile(99))
	}
	return buf.String()
}

// RunStats carries the coarse live counters of a run: the shared
// operation budget and the totals behind the periodic status line. All
// fields are atomics; precision lives in the per-worker shards.
type RunStats struct {
	budget              int64
	issued              int64
	completed           int64
	failed              int64
	abnormalWorkers     int32
	windowCount         int64
	windowLatencyMicros int64
}

// NewRunStats creates the counters for a run of at most budget
// operations. A budget of zero or less means unbounded.
func NewRunStats(budget int64) *RunStats {
	return &RunStats{
		budget: budget,
	}
}

// ClaimOperation reserves one slot of the operation budget. It returns
// false once the budget is exhausted.
func (self *RunStats) ClaimOperation() bool {
	for {
		current := atomic.LoadInt64(&self.issued)
		if self.budget > 0 && current >= self.budget {
			return false
		}
		if atomic.CompareAndSwapInt64(&self.issued, current, current+1) {
			return true
		}
	}
}

func (self *RunStats) OperationCompleted(status StatusType, latency time.Duration) {
	atomic.AddInt64(&self.completed, 1)
	if status != StatusOK {
		atomic.AddInt64(&self.failed, 1)
	}
	atomic.AddInt64(&self.windowCount, 1)
	atomic.AddInt64(&self.windowLatencyMicros, latency.Microseconds())
}

// SnapshotWindow returns and resets the counters accumulated since the
// previous status line.
func (self *RunStats) SnapshotWindow() (count int64, meanLatencyMicros float64) {
	count = atomic.SwapInt64(&self.windowCount, 0)
	micros := atomic.SwapInt64(&self.windowLatencyMicros, 0)
	if count > 0 {
		meanLatencyMicros = float64(micros) / float64(count)
	}
	return count, meanLatencyMicros
}

func (self *RunStats) Issued() int64 {
	return atomic.LoadInt64(&self.issued)
}

func (self *RunStats) Completed() int64 {
	return atomic.LoadInt64(&self.completed)
}

func (self *RunStats) Failed() int64 {
	return atomic.LoadInt64(&self.failed)
}

func (self *RunStats) WorkerAbnormal() {
	atomic.AddInt32(&self.abnormalWorkers, 1)
}

func (self *RunStats) AbnormalWorkers() int {
	return int(atomic.LoadInt32(&self.abnormalWorkers))
}

// Report is the final result of a run.
type Report struct {
	RunID               string
	Elapsed             time.Duration
	TargetThroughput    float64
	Throughput          float64
	OperationsIssued    int64
	OperationsCompleted int64
	OperationsFailed    int64
	AbnormalWorkers     int
	Measurements        *Measurements
}

// Export writes the overall section followed by the per-kind stats.
func (self *Report) Export(exporter MeasurementExporter) error {
	writes := []struct {
		measurement string
		value       interface{}
	}{
		{"RunID", self.RunID},
		{"RunTime(ms)", self.Elapsed.Milliseconds()},
		{"Throughput(ops/sec)", self.Throughput},
		{"Target(ops/sec)", self.TargetThroughput},
		{"Operations", self.OperationsCompleted},
		{"Failures", self.OperationsFailed},
		{"AbnormalWorkers", int64(self.AbnormalWorkers)},
	}
	for _, w := range writes {
		if err := exporter.Write("OVERALL", w.measurement, w.value); err != nil {
			return err
		}
	}
	return self.Measurements.Export(exporter)
}

// MeasurementExporter renders the collected measurements into a useful
// format, for example human readable text or machine readable JSON.
type MeasurementExporter interface {
	// Write a measurement to the exported format. v should be a string,
	// int64 or float64.
	Write(metric string, measurement string, v interface{}) error
	io.Closer
}

type MakeMeasurementExporterFunc func(w io.WriteCloser) MeasurementExporter

var (
	MeasurementExporters = map[string]MakeMeasurementExporterFunc{
		"text": func(w io.WriteCloser) MeasurementExporter {
			return NewTextMeasurementExporter(w)
		},
		"json": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONMeasurementExporter(w)
		},
		"jsonarray": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONArrayMeasurementExporter(w)
		},
	}
)

func NewMeasurementExporter(name string, w io.WriteCloser) (MeasurementExporter, error) {
	f, ok := MeasurementExporters[name]
	if !ok {
		return nil, NewConfigError(PropertyExporter, "unsupported exporter %q", name)
	}
	return f(w), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// NewReportExporter builds the exporter configured by the exporter and
// exportfile properties; without exportfile the report goes to stdout.
func NewReportExporter(props Properties) (MeasurementExporter, error) {
	name := props.GetDefault(PropertyExporter, PropertyExporterDefault)
	var w io.WriteCloser
	if path := props.Get(PropertyExportFile); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		w = f
	} else {
		w = nopWriteCloser{os.Stdout}
	}
	return NewMeasurementExporter(name, w)
}

// TextMeasurementExporter writes human readable text.
type TextMeasurementExporter struct {
	w   io.WriteCloser
	buf *bufio.Writer
}

func NewTextMeasurementExporter(w io.WriteCloser) *TextMeasurementExporter {
	return &TextMeasurementExporter{
		w:   w,
		buf: bufio.NewWriter(w),
	}
}

func (self *TextMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	_, err := fmt.Fprintf(self.buf, "[%s], %s, %v\n", metric, measurement, v)
	return err
}

func (self *TextMeasurementExporter) Close() error {
	err := self.buf.Flush()
	err2 := self.w.Close()
	if err != nil {
		return err
	}
	return err2
}

type innerJSONMeasurement struct {
	Metric      string      `json:"metric"`
	Measurement string      `json:"measurement"`
	Value       interface{} `json:"value"`
}

// JSONMeasurementExporter writes one JSON object per line.
type JSONMeasurementExporter struct {
	w   io.WriteCloser
	buf *bufio.Writer
}

func NewJSONMeasurementExporter(w io.WriteCloser) *JSONMeasurementExporter {
	return &JSONMeasurementExporter{
		w:   w,
		buf: bufio.NewWriter(w),
	}
}

func (self *JSONMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if _, err = self.buf.Write(b); err != nil {
		return err
	}
	return self.buf.WriteByte('\n')
}

func (self *JSONMeasurementExporter) Close() error {
	err := self.buf.Flush()
	err2 := self.w.Close()
	if err != nil {
		return err
	}
	return err2
}

// JSONArrayMeasurementExporter writes a single JSON array of
// measurement objects.
type JSONArrayMeasurementExporter struct {
	w          io.WriteCloser
	buf        *bufio.Writer
	afterFirst bool
}

func NewJSONArrayMeasurementExporter(w io.WriteCloser) *JSONArrayMeasurementExporter {
	object := &JSONArrayMeasurementExporter{
		w:   w,
		buf: bufio.NewWriter(w),
	}
	object.buf.WriteString("[")
	return object
}

func (self *JSONArrayMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if self.afterFirst {
		if _, err = self.buf.WriteString(","); err != nil {
			return err
		}
	} else {
		self.afterFirst = true
	}
	_, err = self.buf.Write(b)
	return err
}

func (self *JSONArrayMeasurementExporter) Close() error {
	if _, err := self.buf.WriteString("]"); err != nil {
		return err
	}
	err := self.buf.Flush()
	err2 := self.w.Close()
	if err != nil {
		return err
	}
	return err2
}
