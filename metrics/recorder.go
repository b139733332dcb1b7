package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meenmo/curvekit/curve"
	"github.com/meenmo/curvekit/errs"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	registry *prometheus.Registry

	// Bootstrap metrics
	buildCounter     *prometheus.CounterVec
	buildLatency     *prometheus.HistogramVec
	passesGauge      *prometheus.GaugeVec
	evaluationsGauge *prometheus.GaugeVec
	fallbackCounter  *prometheus.CounterVec
	quoteErrorGauge  *prometheus.GaugeVec
	nodesGauge       *prometheus.GaugeVec

	// Market data metrics
	quoteUpdateCounter *prometheus.CounterVec

	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,

		buildCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curvekit_builds_total",
				Help: "The total number of curve bootstraps by outcome",
			},
			[]string{"curve", "outcome"},
		),
		buildLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curvekit_build_duration_seconds",
				Help:    "Curve bootstrap duration",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // From 0.1ms to ~1.6s
			},
			[]string{"curve"},
		),
		passesGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curvekit_build_passes",
				Help: "Passes of the last successful bootstrap",
			},
			[]string{"curve"},
		),
		evaluationsGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curvekit_build_evaluations",
				Help: "Objective evaluations of the last successful bootstrap",
			},
			[]string{"curve"},
		),
		fallbackCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curvekit_solver_fallbacks_total",
				Help: "Node solves that needed a widened bracket or the unbracketed search",
			},
			[]string{"curve", "type"},
		),
		quoteErrorGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curvekit_max_quote_error",
				Help: "Largest absolute repricing error of the last successful bootstrap",
			},
			[]string{"curve"},
		),
		nodesGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curvekit_curve_nodes",
				Help: "Number of curve nodes including the reference date",
			},
			[]string{"curve"},
		),

		quoteUpdateCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curvekit_quote_updates_total",
				Help: "The total number of quote updates",
			},
			[]string{"instrument"},
		),

		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curvekit_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curvekit_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry the recorder's collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordBuild records one bootstrap of the named curve. Failures are labelled
// by error kind.
func (r *Recorder) RecordBuild(name string, nodes int, stats curve.BuildStats, err error) {
	if err != nil {
		r.buildCounter.WithLabelValues(name, errs.KindOf(err).String()).Inc()
		return
	}
	r.buildCounter.WithLabelValues(name, "ok").Inc()
	r.buildLatency.WithLabelValues(name).Observe(stats.Duration.Seconds())
	r.passesGauge.WithLabelValues(name).Set(float64(stats.Passes))
	r.evaluationsGauge.WithLabelValues(name).Set(float64(stats.Evaluations))
	r.quoteErrorGauge.WithLabelValues(name).Set(stats.MaxQuoteError)
	r.nodesGauge.WithLabelValues(name).Set(float64(nodes))
	if stats.Retries > 0 {
		r.fallbackCounter.WithLabelValues(name, "retry").Add(float64(stats.Retries))
	}
	if stats.Fallbacks > 0 {
		r.fallbackCounter.WithLabelValues(name, "unbracketed").Add(float64(stats.Fallbacks))
	}
}

// RecordQuoteUpdate records an accepted quote update.
func (r *Recorder) RecordQuoteUpdate(instrument string) {
	r.quoteUpdateCounter.WithLabelValues(instrument).Inc()
}

// RecordAPIRequest records an API request.
func (r *Recorder) RecordAPIRequest(method, path string, status int, duration time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(duration.Seconds())
}
