package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters for the order lifecycle and wallet ledger.
type OrderMetrics struct {
	operations  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	walletMoves *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewOrderMetrics registers the lifecycle metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_operations_total",
		Help: "Completed order lifecycle operations by type.",
	}, []string{"operation"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_rejections_total",
		Help: "Rejected order operations by error code.",
	}, []string{"operation", "code"})
	walletMoves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_adjustments_total",
		Help: "Wallet balance adjustments by transaction type.",
	}, []string{"type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_operation_duration_seconds",
		Help:    "Duration of order lifecycle operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(operations, rejections, walletMoves, duration)
	return &OrderMetrics{
		operations:  operations,
		rejections:  rejections,
		walletMoves: walletMoves,
		duration:    duration,
	}
}

// IncOperation increments the completed-operation counter.
func (m *OrderMetrics) IncOperation(operation string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncRejection increments the rejected-operation counter for an error code.
func (m *OrderMetrics) IncRejection(operation, code string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// IncWalletAdjustment increments the wallet movement counter.
func (m *OrderMetrics) IncWalletAdjustment(txnType string) {
	if m == nil || m.walletMoves == nil {
		return
	}
	m.walletMoves.WithLabelValues(normalizeLabel(txnType)).Inc()
}

// ObserveDuration records the duration for the named operation.
func (m *OrderMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
