package kvbench

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	strftime "github.com/hhkbp2/go-strftime"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
)

// MakeDBFunc builds one DB instance. The client calls it once per
// worker routine, so adapters never see concurrent calls on a single
// instance.
type MakeDBFunc func() (DB, error)

// Client drives a workload against a database from a pool of paced
// worker routines and reports the merged measurements at the end.
type Client struct {
	props    Properties
	workload Workload
	makeDB   MakeDBFunc
}

func NewClient(props Properties, workload Workload, makeDB MakeDBFunc) *Client {
	return &Client{
		props:    props,
		workload: workload,
		makeDB:   makeDB,
	}
}

// RunLoad executes the load phase: every operation is an insert and the
// budget is the insert count.
func (self *Client) RunLoad(ctx context.Context) (*Report, error) {
	return self.run(ctx, false)
}

// RunTransactions executes the transaction phase with the configured
// operation mix.
func (self *Client) RunTransactions(ctx context.Context) (*Report, error) {
	return self.run(ctx, true)
}

type runConfig struct {
	transactions       bool
	table              string
	threadCount        int
	targetPerSec       float64
	interval           time.Duration
	warmup             time.Duration
	maxExecution       time.Duration
	opTimeout          time.Duration
	fatalFailsRun      bool
	budget             int64
	statusInterval     time.Duration
	statusAddr         string
	maxLatency         time.Duration
	percentiles        []float64
	reportErrorLatency bool
	retryLimit         int64
	retryInterval      time.Duration
}

func (self *Client) parseRunConfig(transactions bool) (*runConfig, error) {
	p := self.props
	cfg := &runConfig{
		transactions: transactions,
		table:        p.GetDefault(PropertyTableName, PropertyTableNameDefault),
		statusAddr:   p.Get(PropertyStatusAddr),
	}
	threadCount, err := p.GetInt64(PropertyThreadCount, 1)
	if err != nil {
		return nil, err
	}
	if threadCount < 1 {
		return nil, NewConfigError(PropertyThreadCount,
			"must be positive, got %d", threadCount)
	}
	cfg.threadCount = int(threadCount)

	if cfg.targetPerSec, err = p.GetFloat64(PropertyTarget, 0); err != nil {
		return nil, err
	}
	if cfg.targetPerSec < 0 {
		return nil, NewConfigError(PropertyTarget,
			"must not be negative, got %v", cfg.targetPerSec)
	}
	if cfg.targetPerSec > 0 {
		// Each routine owns an equal slice of the target rate.
		cfg.interval = time.Duration(
			float64(cfg.threadCount) / cfg.targetPerSec * float64(time.Second))
	}

	if cfg.warmup, err = p.GetSeconds(PropertyWarmupTime, 0); err != nil {
		return nil, err
	}
	if cfg.maxExecution, err = p.GetSeconds(PropertyMaxExecutionTime, 0); err != nil {
		return nil, err
	}
	if cfg.opTimeout, err = p.GetSeconds(PropertyOperationTimeout, 0); err != nil {
		return nil, err
	}
	if cfg.fatalFailsRun, err = p.GetBool(PropertyFatalFailsRun, false); err != nil {
		return nil, err
	}
	if cfg.statusInterval, err = p.GetSeconds(
		PropertyStatusInterval, 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.maxLatency, err = p.GetSeconds(
		PropertyMaxLatencyTime, 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.maxLatency < time.Millisecond {
		return nil, NewConfigError(PropertyMaxLatencyTime,
			"too small: %s", cfg.maxLatency)
	}
	if cfg.percentiles, err = ParsePercentiles(p.GetDefault(
		PropertyPercentiles, PropertyPercentilesDefault)); err != nil {
		return nil, err
	}
	if cfg.reportErrorLatency, err = p.GetBool(
		PropertyReportLatencyForEachError, false); err != nil {
		return nil, err
	}
	if cfg.retryLimit, err = p.GetInt64(PropertyInsertionRetryLimit, 0); err != nil {
		return nil, err
	}
	if cfg.retryInterval, err = p.GetSeconds(
		PropertyInsertionRetryInterval, 3*time.Second); err != nil {
		return nil, err
	}

	if transactions {
		if cfg.budget, err = p.GetInt64(PropertyOperationCount, 0); err != nil {
			return nil, err
		}
		if cfg.budget <= 0 && cfg.maxExecution <= 0 {
			return nil, NewConfigError(PropertyOperationCount,
				"either %s or %s must bound the run",
				PropertyOperationCount, PropertyMaxExecutionTime)
		}
	} else {
		recordCount, err := p.GetInt64(PropertyRecordCount, 0)
		if err != nil {
			return nil, err
		}
		insertStart, err := p.GetInt64(PropertyInsertStart, 0)
		if err != nil {
			return nil, err
		}
		if cfg.budget, err = p.GetInt64(
			PropertyInsertCount, recordCount-insertStart); err != nil {
			return nil, err
		}
		if cfg.budget <= 0 {
			return nil, NewConfigError(PropertyInsertCount,
				"nothing to insert, got %d", cfg.budget)
		}
	}
	return cfg, nil
}

func (self *Client) run(ctx context.Context, transactions bool) (*Report, error) {
	cfg, err := self.parseRunConfig(transactions)
	if err != nil {
		return nil, err
	}
	if err := self.workload.Init(self.props); err != nil {
		return nil, err
	}
	defer self.workload.Cleanup()

	var metrics *Metrics
	if cfg.statusAddr != "" {
		metrics = NewMetrics()
		metrics.Serve(cfg.statusAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), time.Second)
			defer cancel()
			metrics.Shutdown(shutdownCtx)
		}()
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if cfg.maxExecution > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.maxExecution)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	stats := NewRunStats(cfg.budget)
	shards := make([]*Shard, cfg.threadCount)
	for i := range shards {
		shards[i] = NewShard(cfg.maxLatency, cfg.reportErrorLatency)
	}

	start := time.Now()
	statusDone := make(chan struct{})
	if cfg.statusInterval > 0 {
		go self.statusLoop(runCtx, stats, cfg.statusInterval, statusDone)
	} else {
		close(statusDone)
	}

	eg, workerCtx := errgroup.WithContext(runCtx)
	for i := 0; i < cfg.threadCount; i++ {
		routine := i
		eg.Go(func() error {
			driver, err := self.workload.InitRoutine(routine)
			if err != nil {
				return err
			}
			db, err := self.makeDB()
			if err != nil {
				return err
			}
			db.SetProperties(self.props)
			if err := db.Init(); err != nil {
				return fmt.Errorf("init db for routine %d: %w", routine, err)
			}
			defer db.Cleanup()
			if metrics != nil {
				metrics.ActiveWorkers.Inc()
				defer metrics.ActiveWorkers.Dec()
			}
			return self.runWorker(
				workerCtx, cfg, stats, driver, db, shards[routine], metrics, start)
		})
	}
	runErr := eg.Wait()
	cancel()
	<-statusDone

	elapsed := time.Since(start)
	report := &Report{
		RunID:               xid.New().String(),
		Elapsed:             elapsed,
		TargetThroughput:    cfg.targetPerSec,
		Throughput:          float64(stats.Completed()) / elapsed.Seconds(),
		OperationsIssued:    stats.Issued(),
		OperationsCompleted: stats.Completed(),
		OperationsFailed:    stats.Failed(),
		AbnormalWorkers:     stats.AbnormalWorkers(),
		Measurements:        MergeShards(cfg.percentiles, cfg.maxLatency, shards...),
	}
	// The report is built even when the run failed, so a degraded run
	// still surfaces what it measured.
	return report, runErr
}

func (self *Client) runWorker(
	ctx context.Context, cfg *runConfig, stats *RunStats,
	driver *Driver, db DB, shard *Shard, metrics *Metrics,
	runStart time.Time) error {

	next := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if !stats.ClaimOperation() {
			return nil
		}
		var op *Operation
		if cfg.transactions {
			op = driver.NextTransaction()
		} else {
			op = driver.NextInsert()
		}
		status, latency := self.executeOperation(ctx, cfg, driver, db, op)
		if cfg.transactions {
			driver.Acknowledge(op)
		}
		stats.OperationCompleted(status, latency)
		if time.Since(runStart) >= cfg.warmup {
			shard.Measure(op.Kind, status, latency)
		}
		if metrics != nil {
			metrics.Observe(op.Kind, status, latency)
		}
		if status.IsFatal() {
			stats.WorkerAbnormal()
			Errorf("backend unavailable on %s %q, stopping worker",
				op.Kind, op.Key)
			if cfg.fatalFailsRun {
				return fmt.Errorf("backend unavailable on %s %q", op.Kind, op.Key)
			}
			return nil
		}
		if cfg.interval > 0 {
			// Absolute slot deadlines keep the schedule drift-free. A
			// late worker re-anchors instead of bursting to catch up.
			next = next.Add(cfg.interval)
			if wait := time.Until(next); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-timer.C:
				}
			} else {
				next = time.Now()
			}
		}
	}
}

// executeOperation runs one operation, retrying failed load-phase
// inserts with exponential backoff when configured. The returned latency
// covers the whole attempt including retries.
func (self *Client) executeOperation(
	ctx context.Context, cfg *runConfig, driver *Driver, db DB,
	op *Operation) (StatusType, time.Duration) {

	start := time.Now()
	status := self.dispatchTimed(cfg, driver, db, op)
	if !cfg.transactions && status != StatusOK && !status.IsFatal() &&
		cfg.retryLimit > 0 {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = cfg.retryInterval
		attempt := func() (StatusType, error) {
			st := self.dispatchTimed(cfg, driver, db, op)
			if st != StatusOK && !st.IsFatal() {
				return st, fmt.Errorf("insert %q returned %s", op.Key, st)
			}
			return st, nil
		}
		if st, err := backoff.Retry(ctx, attempt,
			backoff.WithBackOff(bo),
			backoff.WithMaxTries(uint(cfg.retryLimit))); err == nil {
			status = st
		}
	}
	return status, time.Since(start)
}

// dispatchTimed bounds a single backend call with the operation timeout.
// On expiry the call is abandoned and its eventual result dropped; the
// worker moves on.
func (self *Client) dispatchTimed(
	cfg *runConfig, driver *Driver, db DB, op *Operation) StatusType {

	if cfg.opTimeout <= 0 {
		return self.dispatch(cfg, driver, db, op)
	}
	done := make(chan StatusType, 1)
	go func() {
		done <- self.dispatch(cfg, driver, db, op)
	}()
	timer := time.NewTimer(cfg.opTimeout)
	defer timer.Stop()
	select {
	case status := <-done:
		return status
	case <-timer.C:
		return StatusTimeout
	}
}

func (self *Client) dispatch(
	cfg *runConfig, driver *Driver, db DB, op *Operation) StatusType {

	switch op.Kind {
	case OperationInsert:
		return db.Insert(cfg.table, op.Key, op.Values)
	case OperationRead:
		cells, status := db.Read(cfg.table, op.Key, op.Fields)
		if status == StatusOK && driver.VerifyEnabled() {
			status = driver.VerifyRow(op.Key, cells)
		}
		return status
	case OperationUpdate:
		return db.Update(cfg.table, op.Key, op.Values)
	case OperationScan:
		_, status := db.Scan(cfg.table, op.Key, op.ScanLength, op.Fields)
		return status
	case OperationReadModifyWrite:
		cells, status := db.Read(cfg.table, op.Key, op.Fields)
		if status != StatusOK {
			return status
		}
		if driver.VerifyEnabled() {
			if status = driver.VerifyRow(op.Key, cells); status != StatusOK {
				return status
			}
		}
		return db.Update(cfg.table, op.Key, op.Values)
	case OperationDelete:
		return db.Delete(cfg.table, op.Key)
	default:
		return StatusNotImplemented
	}
}

func (self *Client) statusLoop(
	ctx context.Context, stats *RunStats, interval time.Duration,
	done chan struct{}) {

	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, meanLatency := stats.SnapshotWindow()
			Infof("%s %d sec: %d operations; %.1f current ops/sec; avg latency %.0f us",
				strftime.Format("%Y-%m-%d %H:%M:%S", time.Now()),
				int(time.Since(start).Seconds()),
				stats.Completed(),
				float64(count)/interval.Seconds(),
				meanLatency)
		}
	}
}
