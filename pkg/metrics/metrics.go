package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nexabuild", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nexabuild", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// DocumentOps counts store operations by op (save|list|delete) and result (ok|invalid|unavailable).
	DocumentOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nexabuild", Subsystem: "docstore", Name: "operations_total", Help: "Document store operations by op and result."},
		[]string{"op", "result"},
	)
	DocumentOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "nexabuild", Subsystem: "docstore", Name: "operation_duration_seconds", Help: "Document store operation latency.", Buckets: prometheus.DefBuckets},
		[]string{"op"},
	)

	// BundleOps counts file-set transforms by op (flatten|combine|package|publish) and result.
	BundleOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "nexabuild", Subsystem: "bundle", Name: "operations_total", Help: "File-set operations by op and result."},
		[]string{"op", "result"},
	)
	WorkspacesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "nexabuild", Subsystem: "workspace", Name: "created_total", Help: "Number of workspaces created from generator output."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentOps)
	reg.MustRegister(DocumentOpDuration)
	reg.MustRegister(BundleOps)
	reg.MustRegister(WorkspacesCreated)
}
