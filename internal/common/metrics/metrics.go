// Package metrics instruments the compiler and matcher with Prometheus
// counters and histograms, kept behind an interface so the hot match path
// only ever increments a counter — an allocation-free operation — and
// never constructs labels beyond a fixed small set per call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics collects every counter/histogram/gauge this lineage exposes for
// the filter-list compiler and matcher. Grounded on
// internal/edge/metrics.PrometheusMetrics' constructor-and-label-vec shape,
// trimmed to this domain's concerns (no render/cache/wait metrics) and with
// no fasthttp dependency: Handler here returns a plain net/http.Handler, since
// this lineage's HTTP stack (fasthttp) is explicitly out of scope for a
// filter-list compiler/matcher.
type Metrics struct {
	compileRunsTotal    *prometheus.CounterVec
	compileRulesTotal   *prometheus.CounterVec
	compileDuration     prometheus.Histogram
	compileSnapshotSize prometheus.Histogram

	decisionsTotal     *prometheus.CounterVec
	candidatesPerMatch prometheus.Histogram
	matchDuration      *prometheus.HistogramVec

	pslCacheHitsTotal   prometheus.Counter
	pslCacheMissesTotal prometheus.Counter

	processRSSBytes prometheus.Gauge
	processCPUPct   prometheus.Gauge

	logger *zap.Logger
}

// New builds and registers the full metric set against registerer (pass
// prometheus.DefaultRegisterer for the process-wide default).
func New(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{logger: logger}

	m.compileRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "compiler", Name: "runs_total",
		Help: "Total number of filter-list compile runs, by outcome.",
	}, []string{"outcome"})

	m.compileRulesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "compiler", Name: "rules_total",
		Help: "Total rules seen by the compiler, by disposition (compiled, skipped, deduped, badfiltered).",
	}, []string{"disposition"})

	m.compileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "compiler", Name: "duration_seconds",
		Help:    "Time taken to compile one snapshot.",
		Buckets: prometheus.DefBuckets,
	})

	m.compileSnapshotSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "compiler", Name: "snapshot_bytes",
		Help:    "Size in bytes of compiled snapshots.",
		Buckets: prometheus.ExponentialBuckets(1<<14, 2, 12),
	})

	m.decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "matcher", Name: "decisions_total",
		Help: "Total match_request/match_response_headers/match_cosmetics decisions, by kind.",
	}, []string{"kind"})

	m.candidatesPerMatch = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "matcher", Name: "candidates_per_match",
		Help:    "Number of rule candidates gathered per match call.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
	})

	m.matchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "matcher", Name: "duration_seconds",
		Help:    "Time taken by one match call, by operation.",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
	}, []string{"operation"})

	m.pslCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "psl", Name: "cache_hits_total",
		Help: "Total eTLD+1 resolutions served from the PSL LRU cache.",
	})
	m.pslCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "psl", Name: "cache_misses_total",
		Help: "Total eTLD+1 resolutions not found in the PSL LRU cache.",
	})

	m.processRSSBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "process", Name: "rss_bytes",
		Help: "Resident set size of this process, sampled on a slow timer.",
	})
	m.processCPUPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "process", Name: "cpu_percent",
		Help: "CPU utilization percentage of this process, sampled on a slow timer.",
	})

	registerer.MustRegister(
		m.compileRunsTotal, m.compileRulesTotal, m.compileDuration, m.compileSnapshotSize,
		m.decisionsTotal, m.candidatesPerMatch, m.matchDuration,
		m.pslCacheHitsTotal, m.pslCacheMissesTotal,
		m.processRSSBytes, m.processCPUPct,
	)

	logger.Debug("metrics initialized", zap.String("namespace", namespace))
	return m
}

func (m *Metrics) RecordCompileRun(outcome string, duration time.Duration, snapshotBytes int) {
	m.compileRunsTotal.WithLabelValues(outcome).Inc()
	m.compileDuration.Observe(duration.Seconds())
	if snapshotBytes > 0 {
		m.compileSnapshotSize.Observe(float64(snapshotBytes))
	}
}

func (m *Metrics) RecordCompiledRules(disposition string, count int) {
	m.compileRulesTotal.WithLabelValues(disposition).Add(float64(count))
}

func (m *Metrics) RecordDecision(kind string) {
	m.decisionsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCandidateCount(n int) {
	m.candidatesPerMatch.Observe(float64(n))
}

func (m *Metrics) RecordMatchDuration(operation string, d time.Duration) {
	m.matchDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) RecordPSLCacheHit() { m.pslCacheHitsTotal.Inc() }

func (m *Metrics) RecordPSLCacheMiss() { m.pslCacheMissesTotal.Inc() }

func (m *Metrics) setProcessStats(rssBytes uint64, cpuPercent float64) {
	m.processRSSBytes.Set(float64(rssBytes))
	m.processCPUPct.Set(cpuPercent)
}

// Handler exposes prometheus.DefaultGatherer over HTTP for a Prometheus
// scrape. Metrics registered by New against any other Registerer (such as
// a fresh prometheus.NewRegistry()) are not served by this handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
