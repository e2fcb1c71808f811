// Package metrics provides Prometheus metrics for the vouch endorsement ledger.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the vouch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics - ledger activity
	claimsTotal           prometheus.Counter
	endorsementsTotal     prometheus.Counter
	endorsementsReplayed  prometheus.Counter
	slashesTotal          prometheus.Counter
	credibilityGain       prometheus.Histogram
	stakeCollected        prometheus.Counter
	stakeForfeited        prometheus.Counter
	rejections            *prometheus.CounterVec

	// Ledger State Metrics
	profilesTotal      prometheus.Gauge
	activeEndorsements prometheus.Gauge
	escrowBalance      prometheus.Gauge
	pausedState        prometheus.Gauge

	// Notice Metrics - feed and dispatch
	noticesPublished prometheus.Counter
	noticesDropped   prometheus.Counter
	noticesDispatched prometheus.Counter
	sinkErrors       *prometheus.CounterVec
	dispatchLatency  prometheus.Histogram

	// Feed Health Metrics
	feedSize        prometheus.Gauge
	feedCapacity    prometheus.Gauge
	feedUtilization prometheus.Gauge
	dispatcherCount prometheus.Gauge

	// Archive Metrics - snapshot and journal persistence
	archiveSnapshotDuration prometheus.Histogram
	archiveSnapshotLastUnix prometheus.Gauge
	archiveSnapshotsTotal   prometheus.Counter
	journalAppends          prometheus.Counter
	archiveErrors           prometheus.Counter

	// Vault Metrics
	transferFailures prometheus.Counter
	faucetGrants     prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vouch",
		subsystem:        "ledger",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	reg := m.registry
	if len(m.customLabels) > 0 {
		reg = prometheus.WrapRegistererWith(prometheus.Labels(m.customLabels), reg)
	}
	if m.metricPrefix != "" {
		reg = prometheus.WrapRegistererWithPrefix(m.metricPrefix+"_", reg)
	}
	auto := promauto.With(reg)

	// Core Business Metrics - ledger activity
	m.claimsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "claims_total",
		Help:      "Total number of skill claims accepted",
	})

	m.endorsementsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "endorsements_total",
		Help:      "Total number of endorsements accepted",
	})

	m.endorsementsReplayed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "endorsements_replayed_total",
		Help:      "Total number of endorsement requests absorbed by the replay guard",
	})

	m.slashesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slashes_total",
		Help:      "Total number of endorsements slashed",
	})

	m.credibilityGain = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "credibility_gain",
		Help:      "Distribution of credibility gain awarded per endorsement",
		Buckets:   []float64{1, 2, 3, 4, 5, 10, 25},
	})

	m.stakeCollected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stake_collected_total",
		Help:      "Total stake collected into escrow across all endorsements",
	})

	m.stakeForfeited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stake_forfeited_total",
		Help:      "Total stake forfeited to the authority across all slashes",
	})

	m.rejections = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rejections_total",
			Help:      "Total number of rejected operations by operation and reason",
		},
		[]string{"operation", "reason"},
	)

	// Ledger State Metrics - business scale indicators
	m.profilesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "profiles_total",
		Help:      "Total number of claimed skill profiles",
	})

	m.activeEndorsements = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_endorsements",
		Help:      "Current number of active endorsements across all profiles",
	})

	m.escrowBalance = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "escrow_balance",
		Help:      "Current escrow balance held against active endorsements",
	})

	m.pausedState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "paused",
		Help:      "Whether new claims and endorsements are paused (1) or accepted (0)",
	})

	// Notice Metrics - observational pipeline health
	m.noticesPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notices_published_total",
		Help:      "Total number of notices published to the feed",
	})

	m.noticesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notices_dropped_total",
		Help:      "Total number of notices dropped because the feed was full or closed",
	})

	m.noticesDispatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notices_dispatched_total",
		Help:      "Total number of notices delivered to all sinks",
	})

	m.sinkErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "sink_errors_total",
			Help:      "Total number of sink delivery errors by sink",
		},
		[]string{"sink"},
	)

	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notice_dispatch_latency_milliseconds",
		Help:      "Histogram of notice dispatch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Feed Health Metrics
	m.feedSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_size",
		Help:      "Current size of the notice feed (backlog indicator)",
	})

	m.feedCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_capacity",
		Help:      "Maximum notice feed capacity",
	})

	m.feedUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_utilization_ratio",
		Help:      "Feed utilization ratio (current size / capacity)",
	})

	m.dispatcherCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatcher_count",
		Help:      "Current number of running notice dispatchers",
	})

	// Archive Metrics - snapshot and journal persistence
	m.archiveSnapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_snapshot_duration_milliseconds",
		Help:      "Ledger snapshot write duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.archiveSnapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_snapshot_last_unix",
		Help:      "Unix timestamp of the last ledger snapshot write",
	})

	m.archiveSnapshotsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_snapshots_total",
		Help:      "Total number of ledger snapshots written",
	})

	m.journalAppends = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_appends_total",
		Help:      "Total number of notices appended to the journal",
	})

	m.archiveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_errors_total",
		Help:      "Total number of archive read/write errors",
	})

	// Vault Metrics
	m.transferFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transfer_failures_total",
		Help:      "Total number of failed value transfers (endorse deposits and slash releases)",
	})

	m.faucetGrants = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "faucet_grants_total",
		Help:      "Total number of faucet grants issued",
	})

	// HTTP Performance Metrics - user experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordClaim increments the accepted claims counter.
func RecordClaim() {
	globalManager.claimsTotal.Inc()
}

// RecordEndorsement increments the accepted endorsements counter.
func RecordEndorsement() {
	globalManager.endorsementsTotal.Inc()
}

// RecordEndorsementReplayed increments the replay guard hit counter.
func RecordEndorsementReplayed() {
	globalManager.endorsementsReplayed.Inc()
}

// RecordSlash increments the slashes counter.
func RecordSlash() {
	globalManager.slashesTotal.Inc()
}

// RecordCredibilityGain records the credibility gain awarded by one endorsement.
func RecordCredibilityGain(gain uint64) {
	globalManager.credibilityGain.Observe(float64(gain))
}

// RecordStakeCollected adds collected stake to the running total.
func RecordStakeCollected(amount uint64) {
	globalManager.stakeCollected.Add(float64(amount))
}

// RecordStakeForfeited adds forfeited stake to the running total.
func RecordStakeForfeited(amount uint64) {
	globalManager.stakeForfeited.Add(float64(amount))
}

// RecordRejection increments the rejection counter for an operation and reason.
func RecordRejection(operation, reason string) {
	globalManager.rejections.WithLabelValues(operation, reason).Inc()
}

// UpdateProfileCount sets the total claimed profile count.
func UpdateProfileCount(count int) {
	globalManager.profilesTotal.Set(float64(count))
}

// UpdateActiveEndorsements sets the current active endorsement count.
func UpdateActiveEndorsements(count int) {
	globalManager.activeEndorsements.Set(float64(count))
}

// UpdateEscrowBalance sets the current escrow balance.
func UpdateEscrowBalance(balance uint64) {
	globalManager.escrowBalance.Set(float64(balance))
}

// UpdatePaused sets the pause state gauge.
func UpdatePaused(paused bool) {
	if paused {
		globalManager.pausedState.Set(1)
		return
	}
	globalManager.pausedState.Set(0)
}

// RecordNoticePublished increments the published notices counter.
func RecordNoticePublished() {
	globalManager.noticesPublished.Inc()
}

// RecordNoticeDropped increments the dropped notices counter.
func RecordNoticeDropped() {
	globalManager.noticesDropped.Inc()
}

// RecordNoticeDispatched increments the dispatched notices counter.
func RecordNoticeDispatched() {
	globalManager.noticesDispatched.Inc()
}

// RecordSinkError increments the sink error counter for a sink.
func RecordSinkError(sink string) {
	globalManager.sinkErrors.WithLabelValues(sink).Inc()
}

// RecordDispatchLatency records notice dispatch latency in milliseconds.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// UpdateFeedSize sets the current feed size.
func UpdateFeedSize(size int) {
	globalManager.feedSize.Set(float64(size))
}

// UpdateFeedCapacity sets the maximum feed capacity.
func UpdateFeedCapacity(capacity int) {
	globalManager.feedCapacity.Set(float64(capacity))
}

// UpdateFeedUtilization sets the feed utilization ratio.
func UpdateFeedUtilization(utilization float64) {
	globalManager.feedUtilization.Set(utilization)
}

// UpdateDispatcherCount sets the number of running dispatchers.
func UpdateDispatcherCount(count int) {
	globalManager.dispatcherCount.Set(float64(count))
}

// RecordArchiveSnapshot records one snapshot write and its duration.
func RecordArchiveSnapshot(durationMs float64) {
	globalManager.archiveSnapshotDuration.Observe(durationMs)
	globalManager.archiveSnapshotLastUnix.Set(float64(time.Now().Unix()))
	globalManager.archiveSnapshotsTotal.Inc()
}

// RecordJournalAppend increments the journal append counter.
func RecordJournalAppend() {
	globalManager.journalAppends.Inc()
}

// RecordArchiveError increments the archive error counter.
func RecordArchiveError() {
	globalManager.archiveErrors.Inc()
}

// RecordTransferFailure increments the failed transfer counter.
func RecordTransferFailure() {
	globalManager.transferFailures.Inc()
}

// RecordFaucetGrant increments the faucet grant counter.
func RecordFaucetGrant() {
	globalManager.faucetGrants.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
