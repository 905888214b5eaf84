package goGuard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID uint16

const (
	// MetricConsentLoaded counts loads that adopted a persisted record.
	MetricConsentLoaded MetricID = iota
	// MetricConsentDefaulted counts loads that found no persisted record.
	MetricConsentDefaulted
	// MetricConsentMalformed counts loads that degraded to defaults on parse failure.
	MetricConsentMalformed
	// MetricConsentUpdated counts successful preference updates.
	MetricConsentUpdated
	// MetricConsentReset counts reset operations.
	MetricConsentReset
	// MetricCookieWriteAllowed counts cookie writes that passed the policy gate.
	MetricCookieWriteAllowed
	// MetricCookieWriteDenied counts cookie writes refused by the policy gate.
	MetricCookieWriteDenied
	// MetricCookieSwept counts cookies deleted by Reset's sweep.
	MetricCookieSwept
	// MetricEventTracked counts tracking events forwarded to the bridge.
	MetricEventTracked
	// MetricEventDropped counts tracking events dropped by the consent gate.
	MetricEventDropped
	// MetricStartupVerified counts startup checks confirmed by the server.
	MetricStartupVerified
	// MetricStartupRejected counts startup checks rejected by the server.
	MetricStartupRejected
	// MetricStartupPending counts startup checks left optimistic-pending.
	MetricStartupPending
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricAutoLogout counts watcher- and 401-forced logouts.
	MetricAutoLogout
	// MetricUnauthorizedCall counts authenticated calls answered with 401.
	MetricUnauthorizedCall
	// MetricPasswordChangeSuccess counts successful password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure counts rejected password changes.
	MetricPasswordChangeFailure
	// MetricAPICallLatency is the latency histogram for outbound API calls.
	MetricAPICallLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and optional latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether the metrics system records anything at all.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the given counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample into the matching histogram bucket.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAPICallLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot produces a consistent copy of all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAPICallLatency].buckets[i])
		}
		s.Histograms[MetricAPICallLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
