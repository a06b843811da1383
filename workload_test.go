package kvbench

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func workloadProps(overrides Properties) Properties {
	props := Properties{
		PropertyRecordCount:    "1000",
		PropertyOperationCount: "1000",
		PropertyFieldCount:     "2",
		PropertyFieldLength:    "8",
		PropertySeed:           "42",
	}
	props.Merge(overrides)
	return props
}

func initWorkload(t *testing.T, overrides Properties) (*CoreWorkload, *Driver) {
	t.Helper()
	workload := NewCoreWorkload()
	require.NoError(t, workload.Init(workloadProps(overrides)))
	driver, err := workload.InitRoutine(0)
	require.NoError(t, err)
	return workload, driver
}

func TestCoreWorkloadInitRejectsBadProportions(t *testing.T) {
	workload := NewCoreWorkload()
	err := workload.Init(workloadProps(Properties{
		PropertyReadProportion:   "0.5",
		PropertyUpdateProportion: "0.3",
	}))
	require.Error(t, err)
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "proportions", configErr.Param)
}

func TestCoreWorkloadInitRejections(t *testing.T) {
	cases := []Properties{
		{PropertyRecordCount: "0"},
		{PropertyOperationCount: "-1"},
		{PropertyInsertStart: "900", PropertyInsertCount: "200"},
		{PropertyFieldCount: "0"},
		{PropertyFieldLength: "0"},
		{PropertyRequestDistribution: "gaussian"},
		{PropertyScanLengthDistribution: "histogram"},
		{PropertyInsertOrder: "random"},
		{PropertyKeySharing: "both"},
		{PropertyZeroPadding: "0"},
		{PropertyMinScanLength: "10", PropertyMaxScanLength: "5"},
		{PropertyDataIntegrity: "true", PropertyFieldLengthDistribution: "uniform"},
	}
	for i, overrides := range cases {
		workload := NewCoreWorkload()
		err := workload.Init(workloadProps(overrides))
		require.Error(t, err, "case %d: %v", i, overrides)
	}
}

func TestCoreWorkloadOperationMix(t *testing.T) {
	_, driver := initWorkload(t, Properties{
		PropertyReadProportion:   "0.5",
		PropertyUpdateProportion: "0.5",
		PropertyFieldLength:      "1",
	})
	total := 100000
	counts := make(map[OperationKind]int)
	for i := 0; i < total; i++ {
		op := driver.NextTransaction()
		counts[op.Kind]++
	}
	require.Len(t, counts, 2)
	require.InDelta(t, 0.5, float64(counts[OperationRead])/float64(total), 0.05)
	require.InDelta(t, 0.5, float64(counts[OperationUpdate])/float64(total), 0.05)
}

// keyNumberOf recovers the numeric part of an ordered-insert key.
func keyNumberOf(t *testing.T, key string) int64 {
	t.Helper()
	require.True(t, strings.HasPrefix(key, "user"))
	n, err := strconv.ParseInt(key[len("user"):], 10, 64)
	require.NoError(t, err)
	return n
}

func TestDriverKeysStayWithinInsertedRecords(t *testing.T) {
	recordCount := int64(1000)
	for _, distribution := range []string{
		"uniform", "zipfian", "latest", "hotspot", "sequential", "exponential",
	} {
		t.Run(distribution, func(t *testing.T) {
			_, driver := initWorkload(t, Properties{
				PropertyRecordCount:         fmt.Sprintf("%d", recordCount),
				PropertyRequestDistribution: distribution,
				PropertyInsertOrder:         "ordered",
				PropertyReadProportion:      "1.0",
				PropertyUpdateProportion:    "0.0",
			})
			for i := 0; i < 10000; i++ {
				op := driver.NextTransaction()
				require.Equal(t, OperationRead, op.Kind)
				n := keyNumberOf(t, op.Key)
				require.True(t, n >= 0 && n < recordCount,
					"key %d outside [0, %d)", n, recordCount)
			}
		})
	}
}

func TestBuildKeyNameOrderedPadding(t *testing.T) {
	workload, _ := initWorkload(t, Properties{
		PropertyInsertOrder: "ordered",
		PropertyZeroPadding: "12",
	})
	require.Equal(t, "user000000000042", workload.buildKeyName(42))
	require.Equal(t, "user000000000000", workload.buildKeyName(0))
}

func TestBuildKeyNameHashed(t *testing.T) {
	workload, _ := initWorkload(t, nil)
	key := workload.buildKeyName(42)
	require.Equal(t, key, workload.buildKeyName(42))
	require.NotEqual(t, key, workload.buildKeyName(43))
	require.NotEqual(t, "user42", key)
	n := keyNumberOf(t, key)
	require.True(t, n >= 0)
}

func TestDriverInsertSequence(t *testing.T) {
	_, driver := initWorkload(t, Properties{
		PropertyInsertOrder: "ordered",
		PropertyInsertStart: "100",
		PropertyInsertCount: "50",
	})
	for i := int64(0); i < 50; i++ {
		op := driver.NextInsert()
		require.Equal(t, OperationInsert, op.Kind)
		require.Equal(t, 100+i, keyNumberOf(t, op.Key))
		require.Len(t, op.Values, 2)
		for _, v := range op.Values {
			require.Len(t, v, 8)
		}
	}
}

func TestDriverTransactionInsertExtendsKeySpace(t *testing.T) {
	recordCount := int64(1000)
	_, driver := initWorkload(t, Properties{
		PropertyReadProportion:   "0.0",
		PropertyUpdateProportion: "0.0",
		PropertyInsertProportion: "1.0",
		PropertyInsertOrder:      "ordered",
	})
	for i := int64(0); i < 10; i++ {
		op := driver.NextTransaction()
		require.Equal(t, OperationInsert, op.Kind)
		require.Equal(t, recordCount+i, keyNumberOf(t, op.Key))
		driver.Acknowledge(op)
	}
	// Every insert so far was acknowledged, so the read horizon follows.
	require.Equal(t, recordCount+9,
		driver.transactionInsertKeySequence.Last())
}

func TestDriverScanLengthBounds(t *testing.T) {
	_, driver := initWorkload(t, Properties{
		PropertyReadProportion:   "0.0",
		PropertyUpdateProportion: "0.0",
		PropertyScanProportion:   "1.0",
		PropertyMinScanLength:    "5",
		PropertyMaxScanLength:    "10",
	})
	for i := 0; i < 1000; i++ {
		op := driver.NextTransaction()
		require.Equal(t, OperationScan, op.Kind)
		require.True(t, op.ScanLength >= 5 && op.ScanLength <= 10)
	}
}

func TestDriverDeleteOperations(t *testing.T) {
	_, driver := initWorkload(t, Properties{
		PropertyReadProportion:   "0.0",
		PropertyUpdateProportion: "0.0",
		PropertyDeleteProportion: "1.0",
	})
	op := driver.NextTransaction()
	require.Equal(t, OperationDelete, op.Kind)
	require.NotEmpty(t, op.Key)
	require.Nil(t, op.Values)
}

func TestDriverDeterministicValues(t *testing.T) {
	_, driver := initWorkload(t, Properties{
		PropertyDataIntegrity: "true",
		PropertyFieldLength:   "64",
	})
	op := driver.NextInsert()
	for field, value := range op.Values {
		require.Len(t, value, 64)
		require.Equal(t, Binary(value),
			driver.buildDeterministicValue(op.Key, field))
	}

	require.True(t, driver.VerifyEnabled())
	require.Equal(t, StatusOK, driver.VerifyRow(op.Key, op.Values))
	require.Equal(t, StatusError, driver.VerifyRow(op.Key, KVMap{}))

	corrupted := make(KVMap, len(op.Values))
	for field, value := range op.Values {
		corrupted[field] = append(Binary(nil), value...)
	}
	for field := range corrupted {
		corrupted[field][0] ^= 0xff
		break
	}
	require.Equal(t, StatusUnexpectedState, driver.VerifyRow(op.Key, corrupted))
}

func TestDriverSameSeedReplaysRequestStream(t *testing.T) {
	build := func() []string {
		_, driver := initWorkload(t, Properties{
			PropertyRequestDistribution: "zipfian",
			PropertyFieldLength:         "1",
		})
		keys := make([]string, 0, 1000)
		for i := 0; i < 1000; i++ {
			keys = append(keys, driver.NextTransaction().Key)
		}
		return keys
	}
	require.Equal(t, build(), build())
}

func TestCoreWorkloadKeySharing(t *testing.T) {
	sharedWorkload, first := initWorkload(t, Properties{
		PropertyInsertOrder: "ordered",
	})
	second, err := sharedWorkload.InitRoutine(1)
	require.NoError(t, err)
	// Shared mode hands each routine the next key of one sequence.
	require.Equal(t, int64(0), keyNumberOf(t, first.NextInsert().Key))
	require.Equal(t, int64(1), keyNumberOf(t, second.NextInsert().Key))

	isolatedWorkload, first := initWorkload(t, Properties{
		PropertyInsertOrder: "ordered",
		PropertyKeySharing:  "isolated",
	})
	second, err = isolatedWorkload.InitRoutine(1)
	require.NoError(t, err)
	// Isolated mode gives every routine its own sequence from the start.
	require.Equal(t, int64(0), keyNumberOf(t, first.NextInsert().Key))
	require.Equal(t, int64(0), keyNumberOf(t, second.NextInsert().Key))
}

func TestCoreWorkloadSequentialSharedAcrossRoutines(t *testing.T) {
	recordCount := int64(100)
	workload, first := initWorkload(t, Properties{
		PropertyRecordCount:         fmt.Sprintf("%d", recordCount),
		PropertyRequestDistribution: "sequential",
		PropertyInsertOrder:         "ordered",
		PropertyReadProportion:      "1.0",
		PropertyUpdateProportion:    "0.0",
	})
	second, err := workload.InitRoutine(1)
	require.NoError(t, err)

	seen := make(map[int64]int)
	for i := int64(0); i < recordCount; i++ {
		seen[keyNumberOf(t, first.NextTransaction().Key)]++
		seen[keyNumberOf(t, second.NextTransaction().Key)]++
	}
	// One shared walk: two routines together cover the key space exactly
	// twice, not each key four times.
	require.Len(t, seen, int(recordCount))
	for key, count := range seen {
		require.Equal(t, 2, count, "key %d", key)
	}
}
