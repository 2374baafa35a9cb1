package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	m.Handled("Sync")
	m.Handled("Sync")
	m.Failed("Mint")
	m.Skipped("unregistered")
	m.SetLastBlock(42)

	if got := testutil.ToFloat64(m.EventsHandled.WithLabelValues("Sync")); got != 2 {
		t.Fatalf("expected 2 handled, got %v", got)
	}
	if got := testutil.ToFloat64(m.EventsFailed.WithLabelValues("Mint")); got != 1 {
		t.Fatalf("expected 1 failed, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastBlock); got != 42 {
		t.Fatalf("expected last block 42, got %v", got)
	}

	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Handled("Sync")
	m.Failed("Sync")
	m.Skipped("x")
	m.SetLastBlock(1)
}
