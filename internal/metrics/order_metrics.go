package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Источники смены статуса.
const (
	SourceAdmin = "admin"
	SourceOwner = "owner"
)

// OrderMetrics собирает метрики операций жизненного цикла заказа.
type OrderMetrics struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewOrderMetrics регистрирует метрики в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в заданном реестре.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		created: register(registerer, "orders_created_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created.",
		})),
		transitions: register(registerer, "orders_status_transitions_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_status_transitions_total",
			Help: "Order status transitions grouped by initiator and states.",
		}, []string{"source", "from", "to"})),
		errors: register(registerer, "orders_operation_errors_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_operation_errors_total",
			Help: "Failed order operations grouped by operation and error kind.",
		}, []string{"operation", "kind"})),
		duration: register(registerer, "orders_operation_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_operation_duration_seconds",
			Help:    "Duration of order operations in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"})),
	}
}

// RecordCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

// RecordTransition фиксирует смену статуса.
func (m *OrderMetrics) RecordTransition(source, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(source, from, to).Inc()
}

// RecordError фиксирует неуспешную операцию.
func (m *OrderMetrics) RecordError(operation, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(operation, kind).Inc()
}

// ObserveDuration записывает длительность операции.
func (m *OrderMetrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}
