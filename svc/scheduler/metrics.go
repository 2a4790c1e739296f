package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors describing scheduler activity.
type Metrics struct {
	claimed       *prometheus.CounterVec
	published     *prometheus.CounterVec
	publishFailed *prometheus.CounterVec
	claimFailed   prometheus.Counter
	tickDuration  prometheus.Histogram
	lastTick      prometheus.Gauge
}

// MustNewMetrics registers the scheduler collectors with reg, reusing
// collectors that are already registered. Other registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sublife",
			Subsystem: "scheduler",
			Name:      "events_claimed_total",
			Help:      "Due events claimed by this process.",
		}, []string{"kind"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sublife",
			Subsystem: "scheduler",
			Name:      "notifications_published_total",
			Help:      "Notifications delivered to the publisher.",
		}, []string{"kind"}),
		publishFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sublife",
			Subsystem: "scheduler",
			Name:      "notifications_failed_total",
			Help:      "Claimed events whose notification could not be delivered.",
		}, []string{"kind"}),
		claimFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sublife",
			Subsystem: "scheduler",
			Name:      "claim_failures_total",
			Help:      "Store errors while listing or claiming due events.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sublife",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of scheduler ticks.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sublife",
			Subsystem: "scheduler",
			Name:      "last_tick_timestamp_seconds",
			Help:      "Business instant of the last completed tick.",
		}),
	}

	m.claimed = register(reg, m.claimed)
	m.published = register(reg, m.published)
	m.publishFailed = register(reg, m.publishFailed)
	m.claimFailed = register(reg, m.claimFailed)
	m.tickDuration = register(reg, m.tickDuration)
	m.lastTick = register(reg, m.lastTick)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) observeClaimed(kind string) {
	if m == nil {
		return
	}
	m.claimed.WithLabelValues(kind).Inc()
}

func (m *Metrics) observePublished(kind string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(kind).Inc()
}

func (m *Metrics) observePublishFailed(kind string) {
	if m == nil {
		return
	}
	m.publishFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeClaimFailed() {
	if m == nil {
		return
	}
	m.claimFailed.Inc()
}

func (m *Metrics) observeTick(asOf time.Time, d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
	m.lastTick.Set(float64(asOf.Unix()))
}
