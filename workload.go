package kvbench

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"

	g "github.com/hhkbp2/kvbench/generator"
)

// Tolerance when checking that the operation proportions sum to one.
const proportionTolerance = 1e-4

// Workload produces the operation stream of a benchmark run. Init is
// called once, InitRoutine once per client routine, and the returned
// Driver is owned by that routine alone.
type Workload interface {
	Init(p Properties) error
	InitRoutine(routine int) (*Driver, error)
	Cleanup() error
}

// CoreWorkload is the standard read/update/insert/scan/read-modify-write
// /delete mix over a table of records with configurable key and payload
// distributions. All mutable state shared between routines lives in the
// two atomic key sequences; everything else is copied per routine by
// InitRoutine.
type CoreWorkload struct {
	table                    string
	fieldCount               int64
	fieldNames               []string
	fieldLengthDistribution  string
	fieldLength              int64
	minFieldLength           int64
	fieldLengthHistogramFile string

	readAllFields  bool
	writeAllFields bool
	dataIntegrity  bool

	requestDistribution    string
	scanLengthDistribution string
	minScanLength          int64
	maxScanLength          int64
	hotspotDataFraction    float64
	hotspotOpnFraction     float64
	exponentialPercentile  float64
	exponentialFraction    float64

	orderedInserts bool
	zeroPadding    int
	recordCount    int64
	operationCount int64
	insertStart    int64
	insertCount    int64
	seed           int64
	sharedKeys     bool

	proportions []g.Pair[OperationKind]

	// Shared key sequences, used by every driver when keysharing=shared.
	keySequence                  *g.CounterGenerator
	transactionInsertKeySequence *g.AcknowledgedCounterGenerator
	// The sequential request distribution walks the key space once, so it
	// is shared across routines regardless of the key sharing mode.
	sequentialChooser *g.SequentialGenerator
}

func NewCoreWorkload() *CoreWorkload {
	return &CoreWorkload{}
}

func (self *CoreWorkload) Init(p Properties) error {
	var err error
	self.table = p.GetDefault(PropertyTableName, PropertyTableNameDefault)

	if self.recordCount, err = p.GetInt64(PropertyRecordCount, 0); err != nil {
		return err
	}
	if self.recordCount <= 0 {
		return NewConfigError(PropertyRecordCount,
			"must be positive, got %d", self.recordCount)
	}
	if self.operationCount, err = p.GetInt64(PropertyOperationCount, 0); err != nil {
		return err
	}
	if self.operationCount < 0 {
		return NewConfigError(PropertyOperationCount,
			"must not be negative, got %d", self.operationCount)
	}
	if self.insertStart, err = p.GetInt64(PropertyInsertStart, 0); err != nil {
		return err
	}
	if self.insertStart < 0 {
		return NewConfigError(PropertyInsertStart,
			"must not be negative, got %d", self.insertStart)
	}
	if self.insertCount, err = p.GetInt64(PropertyInsertCount,
		self.recordCount-self.insertStart); err != nil {
		return err
	}
	if self.insertCount <= 0 ||
		self.insertStart+self.insertCount > self.recordCount {
		return NewConfigError(PropertyInsertCount,
			"insertstart %d + insertcount %d outside recordcount %d",
			self.insertStart, self.insertCount, self.recordCount)
	}

	if self.fieldCount, err = p.GetInt64(PropertyFieldCount, 10); err != nil {
		return err
	}
	if self.fieldCount <= 0 {
		return NewConfigError(PropertyFieldCount,
			"must be positive, got %d", self.fieldCount)
	}
	fieldNamePrefix := p.GetDefault(
		PropertyFieldNamePrefix, PropertyFieldNamePrefixDefault)
	self.fieldNames = make([]string, 0, self.fieldCount)
	for i := int64(0); i < self.fieldCount; i++ {
		self.fieldNames = append(self.fieldNames,
			fmt.Sprintf("%s%d", fieldNamePrefix, i))
	}

	self.fieldLengthDistribution = p.GetDefault(
		PropertyFieldLengthDistribution, PropertyFieldLengthDistributionDefault)
	if self.fieldLength, err = p.GetInt64(PropertyFieldLength, 100); err != nil {
		return err
	}
	if self.minFieldLength, err = p.GetInt64(PropertyMinFieldLength, 1); err != nil {
		return err
	}
	if self.minFieldLength <= 0 || self.fieldLength < self.minFieldLength {
		return NewConfigError(PropertyFieldLength,
			"invalid field length interval [%d, %d]",
			self.minFieldLength, self.fieldLength)
	}
	self.fieldLengthHistogramFile = p.GetDefault(
		PropertyFieldLengthHistogramFile, PropertyFieldLengthHistogramFileDefault)
	switch self.fieldLengthDistribution {
	case "constant", "uniform", "zipfian", "histogram":
	default:
		return NewConfigError(PropertyFieldLengthDistribution,
			"unknown distribution %q", self.fieldLengthDistribution)
	}

	if self.readAllFields, err = p.GetBool(PropertyReadAllFields, true); err != nil {
		return err
	}
	if self.writeAllFields, err = p.GetBool(PropertyWriteAllFields, false); err != nil {
		return err
	}
	if self.dataIntegrity, err = p.GetBool(PropertyDataIntegrity, false); err != nil {
		return err
	}
	// Deterministic payloads need a fixed record shape to verify against.
	if self.dataIntegrity && self.fieldLengthDistribution != "constant" {
		return NewConfigError(PropertyDataIntegrity,
			"requires %s=constant", PropertyFieldLengthDistribution)
	}

	if err = self.initProportions(p); err != nil {
		return err
	}

	self.requestDistribution = p.GetDefault(
		PropertyRequestDistribution, PropertyRequestDistributionDefault)
	switch self.requestDistribution {
	case "uniform", "zipfian", "latest", "hotspot", "sequential", "exponential":
	default:
		return NewConfigError(PropertyRequestDistribution,
			"unknown distribution %q", self.requestDistribution)
	}

	if self.minScanLength, err = p.GetInt64(PropertyMinScanLength, 1); err != nil {
		return err
	}
	if self.maxScanLength, err = p.GetInt64(PropertyMaxScanLength, 1000); err != nil {
		return err
	}
	if self.minScanLength <= 0 || self.maxScanLength < self.minScanLength {
		return NewConfigError(PropertyMaxScanLength,
			"invalid scan length interval [%d, %d]",
			self.minScanLength, self.maxScanLength)
	}
	self.scanLengthDistribution = p.GetDefault(
		PropertyScanLengthDistribution, PropertyScanLengthDistributionDefault)
	switch self.scanLengthDistribution {
	case "uniform", "zipfian":
	default:
		return NewConfigError(PropertyScanLengthDistribution,
			"unknown distribution %q", self.scanLengthDistribution)
	}

	if self.hotspotDataFraction, err = p.GetFloat64(
		PropertyHotspotDataFraction, 0.2); err != nil {
		return err
	}
	if self.hotspotOpnFraction, err = p.GetFloat64(
		PropertyHotspotOpnFraction, 0.8); err != nil {
		return err
	}
	if self.exponentialPercentile, err = p.GetFloat64(
		PropertyExponentialPercentile, 95); err != nil {
		return err
	}
	if self.exponentialFraction, err = p.GetFloat64(
		PropertyExponentialFraction, 0.8571428571); err != nil {
		return err
	}

	switch order := p.GetDefault(PropertyInsertOrder, PropertyInsertOrderDefault); order {
	case "ordered":
		self.orderedInserts = true
	case "hashed":
		self.orderedInserts = false
	default:
		return NewConfigError(PropertyInsertOrder, "unknown order %q", order)
	}
	zeroPadding, err := p.GetInt64(PropertyZeroPadding, 1)
	if err != nil {
		return err
	}
	if zeroPadding < 1 {
		return NewConfigError(PropertyZeroPadding,
			"must be positive, got %d", zeroPadding)
	}
	self.zeroPadding = int(zeroPadding)

	if self.seed, err = p.GetInt64(PropertySeed, 0); err != nil {
		return err
	}
	if self.seed == 0 {
		self.seed = time.Now().UnixNano()
	}
	switch sharing := p.GetDefault(PropertyKeySharing, PropertyKeySharingDefault); sharing {
	case "shared":
		self.sharedKeys = true
	case "isolated":
		self.sharedKeys = false
	default:
		return NewConfigError(PropertyKeySharing, "unknown mode %q", sharing)
	}

	self.keySequence = g.NewCounterGenerator(self.insertStart)
	self.transactionInsertKeySequence =
		g.NewAcknowledgedCounterGenerator(self.recordCount)
	if self.requestDistribution == "sequential" {
		self.sequentialChooser, err = g.NewSequentialGenerator(
			0, self.recordCount-1)
		if err != nil {
			return NewConfigError(PropertyRequestDistribution, "%s", err)
		}
	}
	return nil
}

func (self *CoreWorkload) initProportions(p Properties) error {
	type namedProportion struct {
		property string
		fallback float64
		kind     OperationKind
	}
	entries := []namedProportion{
		{PropertyReadProportion, 0.95, OperationRead},
		{PropertyUpdateProportion, 0.05, OperationUpdate},
		{PropertyInsertProportion, 0.0, OperationInsert},
		{PropertyScanProportion, 0.0, OperationScan},
		{PropertyReadModifyWriteProportion, 0.0, OperationReadModifyWrite},
		{PropertyDeleteProportion, 0.0, OperationDelete},
	}
	var sum float64
	self.proportions = self.proportions[:0]
	for _, entry := range entries {
		value, err := p.GetFloat64(entry.property, entry.fallback)
		if err != nil {
			return err
		}
		if value < 0 {
			return NewConfigError(entry.property,
				"must not be negative, got %v", value)
		}
		sum += value
		if value > 0 {
			self.proportions = append(self.proportions, g.Pair[OperationKind]{
				Weight: value,
				Value:  entry.kind,
			})
		}
	}
	if sum < 1-proportionTolerance || sum > 1+proportionTolerance {
		return NewConfigError("proportions",
			"operation proportions sum to %v, want 1", sum)
	}
	return nil
}

// InitRoutine builds the Driver owned by one client routine. Every
// generator inside it is seeded with seed+routine, so runs with a fixed
// seed and thread count replay the same request stream.
func (self *CoreWorkload) InitRoutine(routine int) (*Driver, error) {
	random := g.NewRand(self.seed + int64(routine))

	operationChooser, err := g.NewDiscreteGenerator(random, self.proportions...)
	if err != nil {
		return nil, NewConfigError("proportions", "%s", err)
	}

	keySequence := self.keySequence
	transactionInsertKeySequence := self.transactionInsertKeySequence
	if !self.sharedKeys {
		keySequence = g.NewCounterGenerator(self.insertStart)
		transactionInsertKeySequence =
			g.NewAcknowledgedCounterGenerator(self.recordCount)
	}

	driver := &Driver{
		workload:                     self,
		random:                       random,
		operationChooser:             operationChooser,
		keySequence:                  keySequence,
		transactionInsertKeySequence: transactionInsertKeySequence,
	}

	if driver.keyChooser, err = self.makeKeyChooser(
		random, transactionInsertKeySequence); err != nil {
		return nil, err
	}
	driver.exponentialKeys = self.requestDistribution == "exponential"

	if driver.fieldChooser, err = g.NewUniformIntegerGenerator(
		0, self.fieldCount-1, random); err != nil {
		return nil, NewConfigError(PropertyFieldCount, "%s", err)
	}
	if driver.fieldLengthGenerator, err = self.makeFieldLengthGenerator(
		random); err != nil {
		return nil, err
	}
	if driver.scanLengthChooser, err = self.makeScanLengthChooser(
		random); err != nil {
		return nil, err
	}
	return driver, nil
}

func (self *CoreWorkload) makeKeyChooser(
	random *rand.Rand,
	txSequence *g.AcknowledgedCounterGenerator) (g.IntegerGenerator, error) {

	switch self.requestDistribution {
	case "uniform":
		chooser, err := g.NewUniformIntegerGenerator(
			0, self.recordCount-1, random)
		if err != nil {
			return nil, NewConfigError(PropertyRequestDistribution, "%s", err)
		}
		return chooser, nil
	case "zipfian":
		// The zipfian chooser must cover keys inserted while the
		// transaction phase runs, so size it for the expected number of
		// new keys with some slack. Draws past the insert horizon are
		// rejected and retried by the driver.
		insertProportion := 0.0
		for _, p := range self.proportions {
			if p.Value == OperationInsert {
				insertProportion = p.Weight
			}
		}
		expectedNewKeys := int64(
			float64(self.operationCount) * insertProportion * 2.0)
		chooser, err := g.NewScrambledZipfianGeneratorByItems(
			self.recordCount+expectedNewKeys, random)
		if err != nil {
			return nil, NewConfigError(PropertyRequestDistribution, "%s", err)
		}
		return chooser, nil
	case "latest":
		chooser, err := g.NewSkewedLatestGenerator(txSequence, random)
		if err != nil {
			return nil, NewConfigError(PropertyRequestDistribution, "%s", err)
		}
		return chooser, nil
	case "hotspot":
		chooser, err := g.NewHotspotIntegerGenerator(
			0, self.recordCount-1,
			self.hotspotDataFraction, self.hotspotOpnFraction, random)
		if err != nil {
			return nil, NewConfigError(PropertyHotspotDataFraction, "%s", err)
		}
		return chooser, nil
	case "sequential":
		return self.sequentialChooser, nil
	case "exponential":
		chooser, err := g.NewExponentialGenerator(
			self.exponentialPercentile,
			float64(self.recordCount)*self.exponentialFraction, random)
		if err != nil {
			return nil, NewConfigError(PropertyExponentialPercentile, "%s", err)
		}
		return chooser, nil
	default:
		return nil, NewConfigError(PropertyRequestDistribution,
			"unknown distribution %q", self.requestDistribution)
	}
}

func (self *CoreWorkload) makeFieldLengthGenerator(
	random *rand.Rand) (g.IntegerGenerator, error) {

	switch self.fieldLengthDistribution {
	case "constant":
		return g.NewConstantIntegerGenerator(self.fieldLength), nil
	case "uniform":
		chooser, err := g.NewUniformIntegerGenerator(
			self.minFieldLength, self.fieldLength, random)
		if err != nil {
			return nil, NewConfigError(PropertyFieldLengthDistribution, "%s", err)
		}
		return chooser, nil
	case "zipfian":
		chooser, err := g.NewZipfianGeneratorByInterval(
			self.minFieldLength, self.fieldLength, random)
		if err != nil {
			return nil, NewConfigError(PropertyFieldLengthDistribution, "%s", err)
		}
		return chooser, nil
	case "histogram":
		chooser, err := g.NewHistogramGeneratorFromFile(
			self.fieldLengthHistogramFile, random)
		if err != nil {
			return nil, NewConfigError(PropertyFieldLengthHistogramFile, "%s", err)
		}
		return chooser, nil
	default:
		return nil, NewConfigError(PropertyFieldLengthDistribution,
			"unknown distribution %q", self.fieldLengthDistribution)
	}
}

func (self *CoreWorkload) makeScanLengthChooser(
	random *rand.Rand) (g.IntegerGenerator, error) {

	switch self.scanLengthDistribution {
	case "uniform":
		chooser, err := g.NewUniformIntegerGenerator(
			self.minScanLength, self.maxScanLength, random)
		if err != nil {
			return nil, NewConfigError(PropertyScanLengthDistribution, "%s", err)
		}
		return chooser, nil
	case "zipfian":
		chooser, err := g.NewZipfianGeneratorByInterval(
			self.minScanLength, self.maxScanLength, random)
		if err != nil {
			return nil, NewConfigError(PropertyScanLengthDistribution, "%s", err)
		}
		return chooser, nil
	default:
		return nil, NewConfigError(PropertyScanLengthDistribution,
			"unknown distribution %q", self.scanLengthDistribution)
	}
}

func (self *CoreWorkload) Cleanup() error {
	return nil
}

func (self *CoreWorkload) buildKeyName(keyNumber int64) string {
	if !self.orderedInserts {
		keyNumber = int64(g.FNVHash64(uint64(keyNumber)))
		if keyNumber < 0 {
			keyNumber = -keyNumber
		}
	}
	return fmt.Sprintf("user%0*d", self.zeroPadding, keyNumber)
}

// Driver turns distribution draws into concrete operations for one
// client routine. It is not safe for concurrent use; the only shared
// state it touches is the pair of atomic key sequences.
type Driver struct {
	workload *CoreWorkload
	random   *rand.Rand

	operationChooser             *g.DiscreteGenerator[OperationKind]
	keySequence                  *g.CounterGenerator
	transactionInsertKeySequence *g.AcknowledgedCounterGenerator
	keyChooser                   g.IntegerGenerator
	fieldChooser                 g.IntegerGenerator
	fieldLengthGenerator         g.IntegerGenerator
	scanLengthChooser            g.IntegerGenerator
	exponentialKeys              bool
}

// NextInsert builds the next load-phase insert.
func (self *Driver) NextInsert() *Operation {
	keyNumber := self.keySequence.Next()
	key := self.workload.buildKeyName(keyNumber)
	return &Operation{
		Kind:   OperationInsert,
		Key:    key,
		Values: self.buildValues(key),
		keyNum: keyNumber,
	}
}

// NextTransaction draws an operation kind from the configured mix and
// builds the corresponding request.
func (self *Driver) NextTransaction() *Operation {
	kind := self.operationChooser.Next()
	switch kind {
	case OperationInsert:
		keyNumber := self.transactionInsertKeySequence.Next()
		key := self.workload.buildKeyName(keyNumber)
		return &Operation{
			Kind:   OperationInsert,
			Key:    key,
			Values: self.buildValues(key),
			keyNum: keyNumber,
		}
	case OperationRead:
		key := self.workload.buildKeyName(self.nextKeyNumber())
		return &Operation{
			Kind:   OperationRead,
			Key:    key,
			Fields: self.readFields(),
		}
	case OperationUpdate:
		key := self.workload.buildKeyName(self.nextKeyNumber())
		return &Operation{
			Kind:   OperationUpdate,
			Key:    key,
			Values: self.updateValues(key),
		}
	case OperationScan:
		key := self.workload.buildKeyName(self.nextKeyNumber())
		return &Operation{
			Kind:       OperationScan,
			Key:        key,
			Fields:     self.readFields(),
			ScanLength: self.scanLengthChooser.Next(),
		}
	case OperationReadModifyWrite:
		key := self.workload.buildKeyName(self.nextKeyNumber())
		return &Operation{
			Kind:   OperationReadModifyWrite,
			Key:    key,
			Fields: self.readFields(),
			Values: self.updateValues(key),
		}
	case OperationDelete:
		key := self.workload.buildKeyName(self.nextKeyNumber())
		return &Operation{
			Kind: OperationDelete,
			Key:  key,
		}
	default:
		panic(fmt.Sprintf("unknown operation kind %d", kind))
	}
}

// Acknowledge marks a transaction-phase insert as finished so the latest
// distribution may start reading its key. Inserts are acknowledged
// whether they succeeded or failed; an unacknowledged key would block
// the insert horizon forever.
func (self *Driver) Acknowledge(op *Operation) {
	if op.Kind == OperationInsert {
		self.transactionInsertKeySequence.Acknowledge(op.keyNum)
	}
}

// VerifyEnabled reports whether read results must be checked against the
// deterministic payload template.
func (self *Driver) VerifyEnabled() bool {
	return self.workload.dataIntegrity
}

// VerifyRow checks the returned cells against the deterministic values
// built for key. An empty result is an error; a mismatch is an
// unexpected state.
func (self *Driver) VerifyRow(key string, cells KVMap) StatusType {
	if len(cells) == 0 {
		return StatusError
	}
	for k, v := range cells {
		if !bytes.Equal(v, self.buildDeterministicValue(key, k)) {
			return StatusUnexpectedState
		}
	}
	return StatusOK
}

// nextKeyNumber draws the key of a non-insert operation. Draws above
// the acknowledged insert horizon are retried so the operation never
// targets a record whose insertion is still in flight. The exponential
// distribution instead draws a distance below the newest key.
func (self *Driver) nextKeyNumber() int64 {
	var ret int64
	if self.exponentialKeys {
		for {
			ret = self.transactionInsertKeySequence.Last() -
				self.keyChooser.Next()
			if ret >= 0 {
				break
			}
		}
	} else {
		for {
			ret = self.keyChooser.Next()
			if ret <= self.transactionInsertKeySequence.Last() {
				break
			}
		}
	}
	return ret
}

func (self *Driver) readFields() []string {
	if self.workload.readAllFields {
		// nil asks the adapter for every field.
		return nil
	}
	return []string{self.workload.fieldNames[self.fieldChooser.Next()]}
}

func (self *Driver) updateValues(key string) KVMap {
	if self.workload.writeAllFields {
		return self.buildValues(key)
	}
	return self.buildSingleValue(key)
}

func (self *Driver) buildSingleValue(key string) KVMap {
	fieldKey := self.workload.fieldNames[self.fieldChooser.Next()]
	return KVMap{
		fieldKey: self.buildFieldValue(key, fieldKey),
	}
}

func (self *Driver) buildValues(key string) KVMap {
	ret := make(KVMap, len(self.workload.fieldNames))
	for _, fieldKey := range self.workload.fieldNames {
		ret[fieldKey] = self.buildFieldValue(key, fieldKey)
	}
	return ret
}

func (self *Driver) buildFieldValue(key, fieldKey string) Binary {
	if self.workload.dataIntegrity {
		return self.buildDeterministicValue(key, fieldKey)
	}
	return RandomBytes(self.random, self.fieldLengthGenerator.Next())
}

func stringHashCode(b []byte) int64 {
	hash := int64(0)
	for i := 0; i < len(b); i++ {
		hash = 31*hash + int64(b[i])
	}
	return hash
}

// buildDeterministicValue expands "key:field" with chained hash codes up
// to the configured field length, so the same key and field always carry
// the same bytes.
func (self *Driver) buildDeterministicValue(key, fieldKey string) Binary {
	size := self.fieldLengthGenerator.Next()
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.WriteString(key)
	buf.WriteString(":")
	buf.WriteString(fieldKey)
	for int64(buf.Len()) < size {
		buf.WriteString(":")
		buf.WriteString(fmt.Sprintf("%d", stringHashCode(buf.Bytes())))
	}
	buf.Truncate(int(size))
	return buf.Bytes()
}
