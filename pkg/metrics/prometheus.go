package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	referencePrice *prometheus.GaugeVec
	variance       *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otc_ticks_total",
				Help: "Ticks generated and handed to a backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otc_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "otc_last_price",
				Help: "Last generated OTC price",
			},
			[]string{"symbol"},
		),
		referencePrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "otc_reference_price",
				Help: "Last real-market reference price applied",
			},
			[]string{"symbol"},
		),
		variance: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "otc_conditional_variance",
				Help: "GARCH conditional variance after the last tick",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otc_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records a tick handed to a backend.
func (r *Recorder) RecordTick(backend, symbol string) {
	r.ticksTotal.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordReferencePrice(symbol string, price float64) {
	r.referencePrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordVariance(symbol string, variance float64) {
	r.variance.WithLabelValues(symbol).Set(variance)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
