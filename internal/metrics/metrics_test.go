package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveQuote(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveQuote("mid", "none", false, 3*time.Millisecond)
	m.ObserveQuote("mid", "none", true, time.Millisecond)
	m.ObserveQuote("budget", "unavailable_product", false, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuotesTotal.WithLabelValues("mid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QuotesTotal.WithLabelValues("budget")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteErrors.WithLabelValues("unavailable_product")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FloorApplied))
}

func TestObserveReseed(t *testing.T) {
	m := New(nil)
	at := time.Unix(1_700_000_000, 0)

	m.ObserveReseed(nil, at)
	m.ObserveReseed(errors.New("boom"), time.Time{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReseedsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReseedsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.SnapshotLoadedAt))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuote("mid", "none", true, time.Second)
		m.ObserveReseed(nil, time.Now())
	})
}
