package kvbench

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubConfig is shared between the per-routine stubDB instances so a
// test can observe and steer all workers at once.
type stubConfig struct {
	delay       time.Duration
	status      StatusType
	failInserts int32
}

type stubDB struct {
	*DBBase
	cfg *stubConfig
}

func makeStubDB(cfg *stubConfig) MakeDBFunc {
	if cfg.status == 0 {
		cfg.status = StatusOK
	}
	return func() (DB, error) {
		return &stubDB{DBBase: NewDBBase(), cfg: cfg}, nil
	}
}

func (self *stubDB) Init() error {
	return nil
}

func (self *stubDB) Cleanup() error {
	return nil
}

func (self *stubDB) answer() StatusType {
	if self.cfg.delay > 0 {
		time.Sleep(self.cfg.delay)
	}
	return self.cfg.status
}

func (self *stubDB) Read(table string, key string, fields []string) (KVMap, StatusType) {
	return make(KVMap), self.answer()
}

func (self *stubDB) Scan(table string, startKey string, recordCount int64, fields []string) ([]KVMap, StatusType) {
	return nil, self.answer()
}

func (self *stubDB) Update(table string, key string, values KVMap) StatusType {
	return self.answer()
}

func (self *stubDB) Insert(table string, key string, values KVMap) StatusType {
	if atomic.AddInt32(&self.cfg.failInserts, -1) >= 0 {
		return StatusError
	}
	return self.answer()
}

func (self *stubDB) Delete(table string, key string) StatusType {
	return self.answer()
}

func clientProps(overrides Properties) Properties {
	props := Properties{
		PropertyRecordCount:    "100",
		PropertyOperationCount: "200",
		PropertyThreadCount:    "2",
		PropertyFieldCount:     "2",
		PropertyFieldLength:    "4",
		PropertySeed:           "42",
		PropertyStatusInterval: "0",
	}
	props.Merge(overrides)
	return props
}

func newTestClient(overrides Properties, cfg *stubConfig) *Client {
	return NewClient(clientProps(overrides), NewCoreWorkload(), makeStubDB(cfg))
}

func TestClientRunLoad(t *testing.T) {
	client := newTestClient(nil, &stubConfig{})
	report, err := client.RunLoad(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, int64(100), report.OperationsCompleted)
	require.Equal(t, int64(0), report.OperationsFailed)
	require.Greater(t, report.Throughput, 0.0)

	inserts := report.Measurements.Get(OperationInsert)
	require.NotNil(t, inserts)
	require.Equal(t, int64(100), inserts.Operations)
	require.Equal(t, int64(0), inserts.Failures)
}

func TestClientRunTransactions(t *testing.T) {
	client := newTestClient(Properties{
		PropertyReadProportion:   "1.0",
		PropertyUpdateProportion: "0.0",
	}, &stubConfig{})
	report, err := client.RunTransactions(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(200), report.OperationsCompleted)

	reads := report.Measurements.Get(OperationRead)
	require.NotNil(t, reads)
	require.Equal(t, int64(200), reads.Operations)
	require.Equal(t, int64(200), reads.Histogram.TotalCount())
}

func TestClientWarmupExcludesMeasurements(t *testing.T) {
	client := newTestClient(Properties{
		PropertyWarmupTime: "60",
	}, &stubConfig{})
	report, err := client.RunTransactions(context.Background())
	require.NoError(t, err)
	// The operations ran but nothing was recorded inside the warm-up.
	require.Equal(t, int64(200), report.OperationsCompleted)
	require.Nil(t, report.Measurements.Get(OperationRead))
	require.Nil(t, report.Measurements.Get(OperationUpdate))
}

func TestClientOperationTimeout(t *testing.T) {
	client := newTestClient(Properties{
		PropertyOperationCount:   "4",
		PropertyReadProportion:   "1.0",
		PropertyUpdateProportion: "0.0",
		PropertyOperationTimeout: "0.005",
	}, &stubConfig{delay: 100 * time.Millisecond})
	report, err := client.RunTransactions(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), report.OperationsCompleted)
	require.Equal(t, int64(4), report.OperationsFailed)

	reads := report.Measurements.Get(OperationRead)
	require.NotNil(t, reads)
	require.Equal(t, int64(4), reads.Statuses[StatusTimeout])
}

func TestClientFatalWorkerStopsQuietly(t *testing.T) {
	client := newTestClient(nil, &stubConfig{status: StatusServiceUnavailable})
	report, err := client.RunTransactions(context.Background())
	require.NoError(t, err)
	// Each of the two workers issued one operation and stopped.
	require.Equal(t, int64(2), report.OperationsCompleted)
	require.Equal(t, 2, report.AbnormalWorkers)
}

func TestClientFatalFailsRun(t *testing.T) {
	client := newTestClient(Properties{
		PropertyFatalFailsRun: "true",
	}, &stubConfig{status: StatusServiceUnavailable})
	report, err := client.RunTransactions(context.Background())
	require.Error(t, err)
	// A degraded run still reports what it measured.
	require.NotNil(t, report)
	require.Greater(t, report.AbnormalWorkers, 0)
}

func TestClientLoadRetriesFailedInserts(t *testing.T) {
	client := newTestClient(Properties{
		PropertyRecordCount:            "20",
		PropertyThreadCount:            "1",
		PropertyInsertionRetryLimit:    "3",
		PropertyInsertionRetryInterval: "0.001",
	}, &stubConfig{failInserts: 1})
	report, err := client.RunLoad(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(20), report.OperationsCompleted)
	// The first insert failed once and succeeded on retry.
	require.Equal(t, int64(0), report.OperationsFailed)
}

func TestClientTargetRatePacesWorkers(t *testing.T) {
	client := newTestClient(Properties{
		PropertyOperationCount:   "25",
		PropertyThreadCount:      "1",
		PropertyTarget:           "100",
		PropertyReadProportion:   "1.0",
		PropertyUpdateProportion: "0.0",
	}, &stubConfig{})
	report, err := client.RunTransactions(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(25), report.OperationsCompleted)
	// 25 operations at 100 ops/sec take about 240ms of pacing.
	require.GreaterOrEqual(t, report.Elapsed, 200*time.Millisecond)
	require.Less(t, report.Elapsed, time.Second)
}

func TestClientMaxExecutionTimeBoundsRun(t *testing.T) {
	client := newTestClient(Properties{
		PropertyOperationCount:   "0",
		PropertyMaxExecutionTime: "0.2",
	}, &stubConfig{})
	start := time.Now()
	report, err := client.RunTransactions(context.Background())
	require.NoError(t, err)
	require.Greater(t, report.OperationsCompleted, int64(0))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestClientHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := newTestClient(nil, &stubConfig{})
	report, err := client.RunTransactions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), report.OperationsCompleted)
}

func TestClientConfigRejections(t *testing.T) {
	cases := []Properties{
		{PropertyThreadCount: "0"},
		{PropertyTarget: "-1"},
		{PropertyOperationCount: "0", PropertyMaxExecutionTime: "0"},
		{PropertyPercentiles: "0,50"},
		{PropertyMaxLatencyTime: "0.0001"},
	}
	for i, overrides := range cases {
		client := newTestClient(overrides, &stubConfig{})
		report, err := client.RunTransactions(context.Background())
		require.Error(t, err, "case %d: %v", i, overrides)
		require.Nil(t, report, "case %d", i)
	}
}
