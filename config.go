package kvbench

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Client
	// The number of records to load into the database initially.
	PropertyRecordCount        = "recordcount"
	PropertyRecordCountDefault = "0"
	// The target number of operations to perform in the transaction phase.
	PropertyOperationCount        = "operationcount"
	PropertyOperationCountDefault = "0"
	// The database adapter to be used.
	PropertyDB        = "db"
	PropertyDBDefault = "basic"
	// The exporter to be used for the final report.
	PropertyExporter        = "exporter"
	PropertyExporterDefault = "text"
	// If set to the path of a file, the report is written there instead
	// of stdout.
	PropertyExportFile = "exportfile"
	// The number of client goroutines to run.
	PropertyThreadCount        = "threadcount"
	PropertyThreadCountDefault = "1"
	// How many inserts to do in the load phase, if less than recordcount.
	// Useful for partitioning the load among multiple client processes,
	// together with insertstart.
	PropertyInsertCount = "insertcount"
	// Target number of operations per second across all routines.
	// 0 means unthrottled.
	PropertyTarget        = "target"
	PropertyTargetDefault = "0"
	// The maximum amount of time (in seconds) for which to run.
	PropertyMaxExecutionTime        = "maxexecutiontime"
	PropertyMaxExecutionTimeDefault = "0"
	// Duration (in seconds) at the start of the run during which
	// operations execute but are not recorded.
	PropertyWarmupTime        = "warmuptime"
	PropertyWarmupTimeDefault = "0"
	// Per-operation timeout (in seconds, fractions allowed). 0 disables.
	PropertyOperationTimeout        = "operationtimeout"
	PropertyOperationTimeoutDefault = "0"
	// Whether a fatal backend failure in one routine cancels the whole run.
	PropertyFatalFailsRun        = "fatalfailsrun"
	PropertyFatalFailsRunDefault = "false"
	// Seed for all random draws. 0 means seed from the clock.
	PropertySeed        = "seed"
	PropertySeedDefault = "0"
	// Whether routines share one key sequence ("shared") or each own an
	// independent one ("isolated").
	PropertyKeySharing        = "keysharing"
	PropertyKeySharingDefault = "shared"
	// Seconds between periodic status lines. 0 disables them.
	PropertyStatusInterval        = "status.interval"
	PropertyStatusIntervalDefault = "10"
	// Listen address for the metrics/health HTTP endpoint. Empty disables.
	PropertyStatusAddr = "statusaddr"

	// Workload
	PropertyInsertStart        = "insertstart"
	PropertyInsertStartDefault = "0"
	// The name of the database table to run queries against.
	PropertyTableName        = "table"
	PropertyTableNameDefault = "usertable"
	// The number of fields in a record.
	PropertyFieldCount        = "fieldcount"
	PropertyFieldCountDefault = "10"
	// Prefix of the generated field names.
	PropertyFieldNamePrefix        = "fieldnameprefix"
	PropertyFieldNamePrefixDefault = "field"
	// The field length distribution. Options are "constant", "uniform",
	// "zipfian" (favoring short records) and "histogram". For "histogram"
	// the histogram is read from the file named by fieldlengthhistogram.
	PropertyFieldLengthDistribution        = "fieldlengthdistribution"
	PropertyFieldLengthDistributionDefault = "constant"
	// The length of a field in bytes.
	PropertyFieldLength        = "fieldlength"
	PropertyFieldLengthDefault = "100"
	// Minimum field length for the uniform and zipfian distributions.
	PropertyMinFieldLength        = "minfieldlength"
	PropertyMinFieldLengthDefault = "1"
	// The file containing the field length histogram.
	PropertyFieldLengthHistogramFile        = "fieldlengthhistogram"
	PropertyFieldLengthHistogramFileDefault = "hist.txt"
	// Whether to read one field (false) or all fields (true) of a record.
	PropertyReadAllFields        = "readallfields"
	PropertyReadAllFieldsDefault = "true"
	// Whether to write one field (false) or all fields (true) of a record.
	PropertyWriteAllFields        = "writeallfields"
	PropertyWriteAllFieldsDefault = "false"
	// Whether to check returned data against the generation template.
	PropertyDataIntegrity        = "dataintegrity"
	PropertyDataIntegrityDefault = "false"
	// Proportions of the transaction mix. They must sum to 1.
	PropertyReadProportion                   = "readproportion"
	PropertyReadProportionDefault            = "0.95"
	PropertyUpdateProportion                 = "updateproportion"
	PropertyUpdateProportionDefault          = "0.05"
	PropertyInsertProportion                 = "insertproportion"
	PropertyInsertProportionDefault          = "0.0"
	PropertyScanProportion                   = "scanproportion"
	PropertyScanProportionDefault            = "0.0"
	PropertyReadModifyWriteProportion        = "readmodifywriteproportion"
	PropertyReadModifyWriteProportionDefault = "0.0"
	PropertyDeleteProportion                 = "deleteproportion"
	PropertyDeleteProportionDefault          = "0.0"
	// The distribution of requests across the keyspace. Options are
	// "uniform", "zipfian", "latest", "hotspot", "sequential" and
	// "exponential".
	PropertyRequestDistribution        = "requestdistribution"
	PropertyRequestDistributionDefault = "uniform"
	// Scan length bounds (number of records).
	PropertyMinScanLength        = "minscanlength"
	PropertyMinScanLengthDefault = "1"
	PropertyMaxScanLength        = "maxscanlength"
	PropertyMaxScanLengthDefault = "1000"
	// The scan length distribution, "uniform" or "zipfian" (favoring
	// short scans).
	PropertyScanLengthDistribution        = "scanlengthdistribution"
	PropertyScanLengthDistributionDefault = "uniform"
	// The order to insert records, "ordered" or "hashed".
	PropertyInsertOrder        = "insertorder"
	PropertyInsertOrderDefault = "hashed"
	// Width the numeric part of a key is zero-padded to.
	PropertyZeroPadding        = "zeropadding"
	PropertyZeroPaddingDefault = "1"
	// Fraction of data items that constitute the hot set.
	PropertyHotspotDataFraction        = "hotspotdatafraction"
	PropertyHotspotDataFractionDefault = "0.2"
	// Fraction of operations that access the hot set.
	PropertyHotspotOpnFraction        = "hotspotopnfraction"
	PropertyHotspotOpnFractionDefault = "0.8"
	// How many times to retry a failed insert during the load phase.
	PropertyInsertionRetryLimit        = "insertionretrylimit"
	PropertyInsertionRetryLimitDefault = "0"
	// On average, how long to wait between retries, in seconds.
	PropertyInsertionRetryInterval        = "insertionretryinterval"
	PropertyInsertionRetryIntervalDefault = "3"
	// What percentage of the exponential draws should fall within the
	// most recent exponential.frac portion of the key space.
	PropertyExponentialPercentile        = "exponential.percentile"
	PropertyExponentialPercentileDefault = "95"
	PropertyExponentialFraction          = "exponential.frac"
	PropertyExponentialFractionDefault   = "0.8571428571" // 1/7

	// Measurement
	// Percentile values reported for each operation kind.
	PropertyPercentiles        = "percentiles"
	PropertyPercentilesDefault = "50,95,99,99.9"
	// Upper bound of the latency histogram, in seconds.
	PropertyMaxLatencyTime        = "maxlatencytime"
	PropertyMaxLatencyTimeDefault = "60"
	// Whether failed operations contribute to the latency histograms.
	PropertyReportLatencyForEachError        = "reportlatencyforeacherror"
	PropertyReportLatencyForEachErrorDefault = "false"

	// Logging
	PropertyLogLevel        = "loglevel"
	PropertyLogLevelDefault = "info"

	// BasicDB
	PropertyBasicDBVerbose        = "basicdb.verbose"
	PropertyBasicDBVerboseDefault = "false"
	PropertySimulateDelay         = "basicdb.simulatedelay"
	PropertySimulateDelayDefault  = "0"
	PropertyRandomizeDelay        = "basicdb.randomizedelay"
	PropertyRandomizeDelayDefault = "true"
)

// Properties holds the string key/value configuration of a run, merged
// from workload files, environment and command line flags.
type Properties map[string]string

func NewProperties() Properties {
	return make(Properties)
}

func (self Properties) Get(key string) string {
	return self[key]
}

func (self Properties) GetDefault(key string, defaultValue string) string {
	if v, ok := self[key]; ok {
		return v
	}
	return defaultValue
}

func (self Properties) Add(key, value string) {
	self[key] = value
}

// Merge copies every entry of other into self, overwriting duplicates.
func (self Properties) Merge(other Properties) {
	for k, v := range other {
		self[k] = v
	}
}

func (self Properties) GetInt64(key string, defaultValue int64) (int64, error) {
	v, ok := self[key]
	if !ok {
		return defaultValue, nil
	}
	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, NewConfigError(key, "not an integer: %q", v)
	}
	return i, nil
}

func (self Properties) GetFloat64(key string, defaultValue float64) (float64, error) {
	v, ok := self[key]
	if !ok {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, NewConfigError(key, "not a number: %q", v)
	}
	return f, nil
}

func (self Properties) GetBool(key string, defaultValue bool) (bool, error) {
	v, ok := self[key]
	if !ok {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, NewConfigError(key, "not a boolean: %q", v)
	}
	return b, nil
}

// GetSeconds reads a duration property expressed in seconds, fractions
// allowed.
func (self Properties) GetSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	v, ok := self[key]
	if !ok {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, NewConfigError(key, "not a duration in seconds: %q", v)
	}
	if f < 0 {
		return 0, NewConfigError(key, "negative duration: %q", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// LoadProperties reads a flat YAML mapping of property names to scalar
// values.
func LoadProperties(path string) (Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	props := NewProperties()
	for k, v := range raw {
		switch value := v.(type) {
		case string:
			props[k] = value
		case nil:
			props[k] = ""
		default:
			props[k] = fmt.Sprintf("%v", value)
		}
	}
	return props, nil
}
