// Package metrics holds the prometheus collectors for the quote service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	QuotesTotal      *prometheus.CounterVec
	QuoteDuration    *prometheus.HistogramVec
	QuoteErrors      *prometheus.CounterVec
	FloorApplied     prometheus.Counter
	ReseedsTotal     *prometheus.CounterVec
	SnapshotLoadedAt prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a private registry,
// which keeps tests independent of the global one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarquote",
			Name:      "quotes_total",
			Help:      "Quotes computed, by tier.",
		}, []string{"tier"}),
		QuoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solarquote",
			Name:      "quote_duration_seconds",
			Help:      "Time to compute one quote.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"tier"}),
		QuoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarquote",
			Name:      "quote_errors_total",
			Help:      "Failed quote computations, by error class.",
		}, []string{"class"}),
		FloorApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solarquote",
			Name:      "quote_floor_applied_total",
			Help:      "Quotes whose price was raised to the minimum profit.",
		}),
		ReseedsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarquote",
			Name:      "refdata_reseeds_total",
			Help:      "Reference data reseeds, by result.",
		}, []string{"result"}),
		SnapshotLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solarquote",
			Name:      "refdata_snapshot_loaded_timestamp_seconds",
			Help:      "Unix time the current reference data snapshot was built.",
		}),
	}
	reg.MustRegister(m.QuotesTotal, m.QuoteDuration, m.QuoteErrors, m.FloorApplied, m.ReseedsTotal, m.SnapshotLoadedAt)
	return m
}

// ObserveQuote records one finished computation. class is apperr.Class of
// the error, or "none".
func (m *Metrics) ObserveQuote(tier, class string, floor bool, d time.Duration) {
	if m == nil {
		return
	}
	if class != "none" {
		m.QuoteErrors.WithLabelValues(class).Inc()
		return
	}
	m.QuotesTotal.WithLabelValues(tier).Inc()
	m.QuoteDuration.WithLabelValues(tier).Observe(d.Seconds())
	if floor {
		m.FloorApplied.Inc()
	}
}

func (m *Metrics) ObserveReseed(err error, loadedAt time.Time) {
	if m == nil {
		return
	}
	if err != nil {
		m.ReseedsTotal.WithLabelValues("error").Inc()
		return
	}
	m.ReseedsTotal.WithLabelValues("ok").Inc()
	m.SnapshotLoadedAt.Set(float64(loadedAt.Unix()))
}
