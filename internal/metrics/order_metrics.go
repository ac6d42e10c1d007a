package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций над заказами.
type OrderMetrics struct {
	// Счётчики бизнес-операций
	ordersCreated   prometheus.Counter
	ordersUpdated   prometheus.Counter
	ordersDeleted   prometheus.Counter
	ordersProcessed prometheus.Counter

	// Счётчики отказов
	duplicateConflicts prometheus.Counter
	validationFailures prometheus.Counter
	storageFailures    prometheus.Counter

	// Гистограмма времени операций
	operationDuration *prometheus.HistogramVec

	// Gauge для заказов, ожидающих обработки
	pendingOrders prometheus.Gauge
}

// NewOrderMetrics создаёт метрики заказов в глобальном регистраторе.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики в переданном регистраторе;
// используется тестами для изоляции.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "salesorders_orders_created_total",
			Help: "Total number of orders registered",
		}),
		ordersUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "salesorders_orders_updated_total",
			Help: "Total number of orders updated",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "salesorders_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		ordersProcessed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "salesorders_orders_processed_total",
			Help: "Total number of orders moved to Processed by the background processor",
		}),
		duplicateConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "salesorders_duplicate_conflicts_total",
			Help: "Total number of creates rejected as duplicates per customer and day",
		}),
		validationFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "salesorders_validation_failures_total",
			Help: "Total number of requests rejected by validation",
		}),
		storageFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "salesorders_storage_failures_total",
			Help: "Total number of storage level failures",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "salesorders_operation_duration_seconds",
			Help:    "Duration of order service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		pendingOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "salesorders_pending_orders",
			Help: "Number of orders observed in Pending status during the last processor pass",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderUpdated увеличивает счётчик обновлённых заказов.
func (m *OrderMetrics) RecordOrderUpdated() {
	if m == nil {
		return
	}
	m.ordersUpdated.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	if m == nil {
		return
	}
	m.ordersDeleted.Inc()
}

// RecordOrderProcessed увеличивает счётчик обработанных заказов.
func (m *OrderMetrics) RecordOrderProcessed() {
	if m == nil {
		return
	}
	m.ordersProcessed.Inc()
}

// RecordDuplicateConflict увеличивает счётчик отклонённых дубликатов.
func (m *OrderMetrics) RecordDuplicateConflict() {
	if m == nil {
		return
	}
	m.duplicateConflicts.Inc()
}

// RecordValidationFailure увеличивает счётчик отказов валидации.
func (m *OrderMetrics) RecordValidationFailure() {
	if m == nil {
		return
	}
	m.validationFailures.Inc()
}

// RecordStorageFailure увеличивает счётчик сбоев хранилища.
func (m *OrderMetrics) RecordStorageFailure() {
	if m == nil {
		return
	}
	m.storageFailures.Inc()
}

// RecordOperationDuration записывает длительность операции сервиса.
func (m *OrderMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetPendingOrders обновляет gauge заказов в статусе Pending.
func (m *OrderMetrics) SetPendingOrders(count int) {
	if m == nil {
		return
	}
	m.pendingOrders.Set(float64(count))
}
