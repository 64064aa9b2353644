package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestLedgerCounters(t *testing.T) {
	LedgerOps.WithLabelValues("complete", "ok").Inc()
	LedgerLatency.WithLabelValues("complete").Observe(0.002)
	TicksCompleted.WithLabelValues("S").Inc()
	TasksFinished.WithLabelValues("S").Inc()
	XPAwarded.Add(163)
	XPReclaimed.Add(163)

	names := gatheredNames(t)
	expected := []string{
		"gitgud_ledger_operations_total",
		"gitgud_ledger_tx_seconds",
		"gitgud_ticks_completed_total",
		"gitgud_tasks_finished_total",
		"gitgud_xp_awarded_total",
		"gitgud_xp_reclaimed_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestIntegrityAndHealth(t *testing.T) {
	IntegrityClamps.WithLabelValues("user.xp").Inc()
	HTTPRequests.WithLabelValues("/api/tasks", "200").Inc()
	IdentityCache.WithLabelValues("hit").Inc()
	HealthStatus.WithLabelValues("store").Set(1)

	names := gatheredNames(t)
	for _, name := range []string{
		"gitgud_integrity_clamps_total",
		"gitgud_http_requests_total",
		"gitgud_identity_cache_lookups_total",
		"gitgud_health_status",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}
