// Package metrics exposes the mining pipeline's runtime counters as
// Prometheus collectors: queue depth per priority class, pool occupancy,
// throttle, and cumulative crawl/process counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the pipeline reports to. A nil *Metrics is
// valid and every method is a no-op on it, so components can be built
// without metrics wired in (e.g. in tests).
type Metrics struct {
	registry *prometheus.Registry

	queueDepth    *prometheus.GaugeVec
	poolOccupancy prometheus.Gauge
	poolLimit     prometheus.Gauge
	throttle      prometheus.Gauge

	filesProcessed  *prometheus.CounterVec
	filesDiscovered *prometheus.CounterVec
	extractorErrors prometheus.Counter
	storeCommits    prometheus.Counter
	crawlsStarted   prometheus.Counter
	crawlsFinished  prometheus.Counter
	tickDuration    prometheus.Histogram
}

// New creates a Metrics instance registered under the given namespace (e.g.
// "fsminer"). Pass an empty namespace to use unprefixed metric names.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of pending items in each priority queue.",
		},
		[]string{"kind"},
	)

	m.poolOccupancy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "occupancy",
		Help:      "Number of in-flight extraction jobs.",
	})

	m.poolLimit = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "limit",
		Help:      "Configured maximum concurrent extraction jobs.",
	})

	m.throttle = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "throttle",
		Help:      "Current scheduler throttle value in [0, 1].",
	})

	m.filesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Total number of files whose metadata was committed.",
		},
		[]string{"kind"}, // created, updated, deleted, moved
	)

	m.filesDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_discovered_total",
			Help:      "Total number of files/directories seen by a crawl.",
		},
		[]string{"accepted"}, // "true", "false"
	)

	m.extractorErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "extractor",
		Name:      "errors_total",
		Help:      "Total number of extraction failures reported via notify_file.",
	})

	m.storeCommits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "commits_total",
		Help:      "Total number of store Commit calls issued.",
	})

	m.crawlsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crawl",
		Name:      "started_total",
		Help:      "Total number of directory crawls started.",
	})

	m.crawlsFinished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crawl",
		Name:      "finished_total",
		Help:      "Total number of directory crawls completed.",
	})

	m.tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock duration of a single scheduler Tick call.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s
	})

	m.registry.MustRegister(
		m.queueDepth, m.poolOccupancy, m.poolLimit, m.throttle,
		m.filesProcessed, m.filesDiscovered, m.extractorErrors,
		m.storeCommits, m.crawlsStarted, m.crawlsFinished, m.tickDuration,
	)

	return m
}

// SetQueueDepth records the current length of one of the four priority
// queues ("deleted", "created", "updated", "moved").
func (m *Metrics) SetQueueDepth(kind string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(kind).Set(float64(depth))
}

// SetPoolOccupancy records how many jobs are currently in flight against the
// configured limit.
func (m *Metrics) SetPoolOccupancy(occupied, limit int) {
	if m == nil {
		return
	}
	m.poolOccupancy.Set(float64(occupied))
	m.poolLimit.Set(float64(limit))
}

// SetThrottle records the scheduler's current throttle value.
func (m *Metrics) SetThrottle(t float64) {
	if m == nil {
		return
	}
	m.throttle.Set(t)
}

// IncFilesProcessed records one committed mutation of the given kind.
func (m *Metrics) IncFilesProcessed(kind string) {
	if m == nil {
		return
	}
	m.filesProcessed.WithLabelValues(kind).Inc()
}

// AddFilesDiscovered records crawl discovery counts, split by whether the
// policy filter accepted them.
func (m *Metrics) AddFilesDiscovered(accepted bool, n int) {
	if m == nil || n == 0 {
		return
	}
	label := "false"
	if accepted {
		label = "true"
	}
	m.filesDiscovered.WithLabelValues(label).Add(float64(n))
}

// IncExtractorErrors records one notify_file failure.
func (m *Metrics) IncExtractorErrors() {
	if m == nil {
		return
	}
	m.extractorErrors.Inc()
}

// IncStoreCommits records one store Commit call.
func (m *Metrics) IncStoreCommits() {
	if m == nil {
		return
	}
	m.storeCommits.Inc()
}

// CrawlStarted records a directory crawl beginning.
func (m *Metrics) CrawlStarted() {
	if m == nil {
		return
	}
	m.crawlsStarted.Inc()
}

// CrawlFinished records a directory crawl completing.
func (m *Metrics) CrawlFinished() {
	if m == nil {
		return
	}
	m.crawlsFinished.Inc()
}

// ObserveTickDuration records how long one scheduler Tick call took, in
// seconds.
func (m *Metrics) ObserveTickDuration(seconds float64) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(seconds)
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
