// Package metrics provides Prometheus metrics for the ledger:
// counters and histograms for ticks, XP movement, integrity clamps and HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerOps counts ledger operations by operation and outcome.
var LedgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "ledger_operations_total",
	Help:      "Ledger operations by op (complete, uncomplete, create, update, delete) and result.",
}, []string{"op", "result"})

// LedgerLatency tracks ledger transaction duration in seconds.
var LedgerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "gitgud",
	Name:      "ledger_tx_seconds",
	Help:      "Ledger transaction duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"op"})

// TicksCompleted counts completion ticks by tier.
var TicksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "ticks_completed_total",
	Help:      "Completion ticks recorded, by tier.",
}, []string{"tier"})

// TasksFinished counts tasks or weekly instances reaching Done, by tier.
var TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "tasks_finished_total",
	Help:      "Tasks reaching the Done state, by tier.",
}, []string{"tier"})

// XPAwarded tracks total XP granted by completions.
var XPAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "xp_awarded_total",
	Help:      "Total XP granted by completions.",
})

// XPReclaimed tracks total XP removed by uncomplete and delete.
var XPReclaimed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "xp_reclaimed_total",
	Help:      "Total XP removed by uncomplete and delete.",
})

// IntegrityClamps counts stored values clamped at zero, by field.
var IntegrityClamps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "integrity_clamps_total",
	Help:      "Stored counters that would have gone negative and were clamped, by field.",
}, []string{"field"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "http_requests_total",
	Help:      "API requests by route and status.",
}, []string{"route", "status"})

// ─── Identity ───────────────────────────────────────────────────────────────

// IdentityCache counts email-to-user lookups by result (hit, miss).
var IdentityCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gitgud",
	Name:      "identity_cache_lookups_total",
	Help:      "Identity cache lookups by result.",
}, []string{"result"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthStatus tracks the last health check outcome (1 = healthy, 0 = unhealthy).
var HealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "gitgud",
	Name:      "health_status",
	Help:      "Last health check result per check (1 healthy, 0 unhealthy).",
}, []string{"check"})
