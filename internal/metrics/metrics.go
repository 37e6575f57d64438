// Package metrics exposes Prometheus collectors for execution passes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vk/insituflow/internal/report"
)

var (
	// passesTotal counts passes by outcome (ok or degraded)
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insituflow_passes_total",
		Help: "Total execution passes by outcome",
	}, []string{"outcome"})

	// passDuration tracks wall time of a pass
	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "insituflow_pass_duration_seconds",
		Help:    "Execution pass duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	// invocationsTotal counts filter invocations by type and status
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insituflow_filter_invocations_total",
		Help: "Total filter invocations by filter type and status",
	}, []string{"type", "status"})

	// cacheLookups counts fingerprint cache lookups by result
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insituflow_fingerprint_cache_lookups_total",
		Help: "Fingerprint cache lookups by result (hit or miss)",
	}, []string{"result"})

	// diagnosticsTotal counts reported diagnostics by class
	diagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insituflow_diagnostics_total",
		Help: "Diagnostics reported by class",
	}, []string{"class"})
)

// RecordInvocation counts one filter invocation.
func RecordInvocation(typeName string, status report.Status) {
	invocationsTotal.WithLabelValues(typeName, string(status)).Inc()
}

// RecordCacheLookup counts one fingerprint cache lookup.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordPass counts a finished pass and its diagnostics.
func RecordPass(r *report.Report) {
	outcome := "ok"
	if !r.OK() {
		outcome = "degraded"
	}
	passesTotal.WithLabelValues(outcome).Inc()
	passDuration.Observe(r.Duration.Seconds())
	for _, d := range r.Errors {
		diagnosticsTotal.WithLabelValues(string(d.Class)).Inc()
	}
}
