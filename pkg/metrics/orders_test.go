package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOrderMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncOperation("checkout")
	m.IncOperation("checkout")
	m.IncRejection("checkout", "OUT_OF_STOCK")
	m.IncWalletAdjustment("debit")
	m.ObserveDuration("checkout", 25*time.Millisecond)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("checkout")); got != 2 {
		t.Fatalf("expected 2 checkout operations, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("checkout", "OUT_OF_STOCK")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.walletMoves.WithLabelValues("debit")); got != 1 {
		t.Fatalf("expected 1 wallet adjustment, got %v", got)
	}
}

func TestOrderMetrics_NilSafe(t *testing.T) {
	var m *OrderMetrics
	m.IncOperation("checkout")
	m.IncRejection("checkout", "OUT_OF_STOCK")
	m.IncWalletAdjustment("credit")
	m.ObserveDuration("checkout", time.Millisecond)

	empty := NewOrderMetrics(nil)
	empty.IncOperation("")
}
