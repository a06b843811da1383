package kvbench

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mirrors the live run counters as Prometheus collectors, served
// over the statusaddr HTTP endpoint. The per-worker shards stay the
// source of truth for the final report; these exist for watching a run
// in flight.
type Metrics struct {
	registry      *prometheus.Registry
	Operations    *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	ActiveWorkers prometheus.Gauge

	server *http.Server
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvbench",
			Name:      "operations_total",
			Help:      "Completed operations by kind and status.",
		}, []string{"kind", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kvbench",
			Name:      "operation_latency_seconds",
			Help:      "Operation latency by kind.",
			Buckets:   prometheus.ExponentialBuckets(100e-6, 2, 18),
		}, []string{"kind"}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvbench",
			Name:      "active_workers",
			Help:      "Worker routines currently issuing operations.",
		}),
	}
	m.registry.MustRegister(m.Operations, m.Latency, m.ActiveWorkers)
	return m
}

func (self *Metrics) Observe(
	kind OperationKind, status StatusType, latency time.Duration) {

	self.Operations.WithLabelValues(kind.String(), status.String()).Inc()
	self.Latency.WithLabelValues(kind.String()).Observe(latency.Seconds())
}

// Serve starts the metrics/health HTTP endpoint on addr.
func (self *Metrics) Serve(addr string) {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(
		self.registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	self.server = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	go func() {
		if err := self.server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			Errorf("status endpoint failed: %s", err)
		}
	}()
}

func (self *Metrics) Shutdown(ctx context.Context) error {
	if self.server == nil {
		return nil
	}
	return self.server.Shutdown(ctx)
}
