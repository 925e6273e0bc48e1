package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordTick("kafka", "EUR/USD-OTC")
	r.RecordTick("kafka", "EUR/USD-OTC")
	r.RecordError("generate")
	r.RecordLastPrice("EUR/USD-OTC", 1.19083)
	r.RecordReferencePrice("EUR/USD-OTC", 1.1908)
	r.RecordVariance("EUR/USD-OTC", 1.5)
	r.RecordLatency("generate", 0.0002)

	require.Equal(t, 2.0, testutil.ToFloat64(r.ticksTotal.WithLabelValues("kafka", "EUR/USD-OTC")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("generate")))
	require.Equal(t, 1.19083, testutil.ToFloat64(r.lastPrice.WithLabelValues("EUR/USD-OTC")))
	require.Equal(t, 1.1908, testutil.ToFloat64(r.referencePrice.WithLabelValues("EUR/USD-OTC")))
	require.Equal(t, 1.5, testutil.ToFloat64(r.variance.WithLabelValues("EUR/USD-OTC")))
	require.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewWithRegisterer(prometheus.NewRegistry())
		NewWithRegisterer(prometheus.NewRegistry())
	})
}
