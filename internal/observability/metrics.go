package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geonews"

// Metrics holds the Prometheus counters, histograms, and gauges for the news refresh pipeline.
type Metrics struct {
	RefreshRunning  prometheus.Gauge
	RefreshTotal    *prometheus.CounterVec // labels: outcome={success,partial,failed}
	RefreshDuration prometheus.Histogram
	SnapshotItems   prometheus.Gauge
	LastRefresh     prometheus.Gauge // unix seconds of the last successful refresh

	// Feed and proxy metrics.
	FeedItems     *prometheus.CounterVec   // labels: source
	FeedFailures  *prometheus.CounterVec   // labels: source
	ProxyRequests *prometheus.CounterVec   // labels: proxy, outcome={success,error}
	ProxyDuration *prometheus.HistogramVec // labels: proxy

	// Video search metrics.
	VideoSearches *prometheus.CounterVec // labels: outcome={success,error,empty}
	VideoCache    *prometheus.CounterVec // labels: result={hit,miss}
	VideoEnabled  prometheus.Gauge

	SnapshotsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.RefreshRunning,
		m.RefreshTotal,
		m.RefreshDuration,
		m.SnapshotItems,
		m.LastRefresh,
		m.FeedItems,
		m.FeedFailures,
		m.ProxyRequests,
		m.ProxyDuration,
		m.VideoSearches,
		m.VideoCache,
		m.VideoEnabled,
		m.SnapshotsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		RefreshRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_loop_running",
			Help:      help("1 when the refresh loop is active, 0 when shut down."),
		}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      help("Refresh cycles by outcome."),
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      help("Duration of a complete fetch-normalize-aggregate cycle."),
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_items",
			Help:      help("Number of items in the current snapshot."),
		}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_refreshed_timestamp_seconds",
			Help:      help("Unix time of the last successful refresh."),
		}),
		FeedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_items_total",
			Help:      help("Items normalized per feed source."),
		}, []string{"source"}),
		FeedFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_failures_total",
			Help:      help("Refresh cycles in which every proxy failed for a feed."),
		}, []string{"source"}),
		ProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      help("Feed proxy attempts by proxy and outcome."),
		}, []string{"proxy", "outcome"}),
		ProxyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_request_duration_seconds",
			Help:      help("Feed proxy request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"proxy"}),
		VideoSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_searches_total",
			Help:      help("Video searches by outcome."),
		}, []string{"outcome"}),
		VideoCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_cache_total",
			Help:      help("Video search cache lookups by result."),
		}, []string{"result"}),
		VideoEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "video_search_enabled",
			Help:      help("1 when video search is configured, 0 otherwise."),
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      help("Snapshots written to the Kafka topic."),
		}),
	}
}
