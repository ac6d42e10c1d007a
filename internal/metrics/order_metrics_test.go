package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetricsWithRegisterer(reg)

	if metrics == nil {
		t.Fatal("NewOrderMetricsWithRegisterer should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.ordersUpdated == nil {
		t.Error("ordersUpdated counter should not be nil")
	}
	if metrics.ordersDeleted == nil {
		t.Error("ordersDeleted counter should not be nil")
	}
	if metrics.ordersProcessed == nil {
		t.Error("ordersProcessed counter should not be nil")
	}
	if metrics.duplicateConflicts == nil {
		t.Error("duplicateConflicts counter should not be nil")
	}
	if metrics.validationFailures == nil {
		t.Error("validationFailures counter should not be nil")
	}
	if metrics.storageFailures == nil {
		t.Error("storageFailures counter should not be nil")
	}
	if metrics.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}
	if metrics.pendingOrders == nil {
		t.Error("pendingOrders gauge should not be nil")
	}
}

func TestNewOrderMetrics_ReregisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	// Повторная регистрация в том же регистраторе переиспользует коллекторы.
	first.RecordOrderCreated()
	second.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := first.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetricsWithRegisterer(reg)

	metrics.RecordOrderCreated()
	metrics.RecordOrderUpdated()
	metrics.RecordOrderDeleted()
	metrics.RecordOrderProcessed()
	metrics.RecordDuplicateConflict()
	metrics.RecordValidationFailure()
	metrics.RecordStorageFailure()

	counters := map[string]prometheus.Counter{
		"created":    metrics.ordersCreated,
		"updated":    metrics.ordersUpdated,
		"deleted":    metrics.ordersDeleted,
		"processed":  metrics.ordersProcessed,
		"conflicts":  metrics.duplicateConflicts,
		"validation": metrics.validationFailures,
		"storage":    metrics.storageFailures,
	}
	for name, counter := range counters {
		metric := &dto.Metric{}
		if err := counter.Write(metric); err != nil {
			t.Fatalf("failed to write %s metric: %v", name, err)
		}
		if metric.Counter.GetValue() != 1.0 {
			t.Errorf("expected %s counter value 1.0, got %f", name, metric.Counter.GetValue())
		}
	}
}

func TestSetPendingOrders(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetricsWithRegisterer(reg)

	metrics.SetPendingOrders(7)

	metric := &dto.Metric{}
	if err := metrics.pendingOrders.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 7.0 {
		t.Errorf("expected pending orders 7.0, got %f", metric.Gauge.GetValue())
	}
}

func TestRecordOperationDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetricsWithRegisterer(reg)

	metrics.RecordOperationDuration("create", 150*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, family := range families {
		if family.GetName() != "salesorders_operation_duration_seconds" {
			continue
		}
		found = true
		if len(family.Metric) != 1 {
			t.Fatalf("expected 1 labeled metric, got %d", len(family.Metric))
		}
		if family.Metric[0].Histogram.GetSampleCount() != 1 {
			t.Errorf("expected 1 observation, got %d", family.Metric[0].Histogram.GetSampleCount())
		}
	}
	if !found {
		t.Fatal("operation duration histogram not gathered")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *OrderMetrics

	// nil-приёмник означает "метрики выключены" и не должен паниковать.
	metrics.RecordOrderCreated()
	metrics.RecordOrderUpdated()
	metrics.RecordOrderDeleted()
	metrics.RecordOrderProcessed()
	metrics.RecordDuplicateConflict()
	metrics.RecordValidationFailure()
	metrics.RecordStorageFailure()
	metrics.RecordOperationDuration("create", time.Second)
	metrics.SetPendingOrders(1)
}
