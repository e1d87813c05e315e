// Package metrics exposes the process's self-instrumentation. The teacher
// carries prometheus/client_golang as a direct dependency to query an
// external Prometheus from an MCP tool; HiveMind points the same library the
// other direction and uses it to expose its own counters at /metrics,
// scraped the way kagent's own controller is scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContributionsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivemind_contributions_ingested_total",
		Help: "Contributions accepted into quarantine, by tenant.",
	}, []string{"tenant_id"})

	ContributionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivemind_contributions_rejected_total",
		Help: "Contributions rejected at submission time, by reason.",
	}, []string{"reason"})

	ApprovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivemind_approvals_total",
		Help: "Pending contributions promoted to the approved set, by tenant.",
	}, []string{"tenant_id"})

	QuarantineDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hivemind_quarantine_depth",
		Help: "Rows claimed from the quarantine queue in the last batch, by tenant.",
	}, []string{"tenant_id"})

	SSESubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hivemind_sse_subscribers",
		Help: "Currently connected SSE subscribers across all tenants.",
	})

	SearchLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hivemind_search_latency_seconds",
		Help:    "End-to-end latency of search_knowledge calls, embedding included.",
		Buckets: prometheus.DefBuckets,
	})
)
