// Package processor содержит фоновый воркер, переводящий заказы из Pending
// в Processed. Это единственное место в системе, где меняется статус заказа.
package processor

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
	"github.com/vladislavdragonenkov/salesorders/internal/metrics"
)

const defaultProcessInterval = 30 * time.Second

var (
	processorRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesorders_processor_runs_total",
		Help: "Total number of processor passes grouped by result.",
	}, []string{"result"})
	processorProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salesorders_processor_orders_total",
		Help: "Total number of orders moved from Pending to Processed.",
	})
	processorLastProcessed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "salesorders_processor_last_processed",
		Help: "Number of orders processed during the last pass.",
	})
)

// Options задаёт параметры воркера обработки заказов.
type Options struct {
	Logger    *log.Entry
	Interval  time.Duration
	Publisher domain.OrderEventPublisher
	Metrics   *metrics.OrderMetrics
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между проходами обработки.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithEventPublisher подключает публикацию событий order.processed.
func WithEventPublisher(publisher domain.OrderEventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithMetrics подключает бизнес-метрики обработки заказов.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// Worker периодически находит Pending-заказы и переводит их в Processed.
// Воркер работает через обычный контракт хранилища и не имеет
// привилегированного доступа к данным.
type Worker struct {
	repo      domain.OrderRepository
	publisher domain.OrderEventPublisher
	metrics   *metrics.OrderMetrics
	logger    *log.Entry
	interval  time.Duration
}

// NewWorker создаёт воркер обработки заказов.
func NewWorker(repo domain.OrderRepository, options ...Option) *Worker {
	opts := Options{
		Interval: defaultProcessInterval,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-processor")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultProcessInterval
	}

	return &Worker{
		repo:      repo,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    logger,
		interval:  opts.Interval,
	}
}

// Run запускает периодическую обработку до отмены ctx.
// Первый проход выполняется сразу, не дожидаясь тика.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("order processor is disabled: repo is nil")
		return
	}

	w.pass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

func (w *Worker) pass(ctx context.Context) {
	processed, err := w.ProcessPending(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		processorRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("processor pass failed")
		return
	}

	processorRunsTotal.WithLabelValues("ok").Inc()
	processorLastProcessed.Set(float64(processed))
	if processed > 0 {
		w.logger.WithField("processed", processed).Info("processor pass completed")
	}
}

// ProcessPending переводит все Pending-заказы в Processed и возвращает их
// количество. Обработка каждого заказа независима: ошибка по одному заказу
// логируется и не прерывает остальных.
func (w *Worker) ProcessPending(ctx context.Context) (int, error) {
	orders, err := w.repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	pending := 0
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if order.Status != domain.OrderStatusPending {
			continue
		}
		pending++

		// Меняется только статус: шапка и позиции остаются нетронутыми.
		if err := w.repo.SetStatus(ctx, order.ID, domain.OrderStatusProcessed); err != nil {
			// Заказ могли удалить между чтением и записью.
			if errors.Is(err, domain.ErrOrderNotFound) {
				continue
			}
			w.logger.WithError(err).WithField("order_id", order.ID).Warn("order processing failed")
			continue
		}

		processed++
		processorProcessedTotal.Inc()
		w.metrics.RecordOrderProcessed()
		order.Status = domain.OrderStatusProcessed
		if w.publisher != nil {
			if err := w.publisher.PublishOrderEvent(domain.OrderEventProcessed, order); err != nil {
				w.logger.WithError(err).WithField("order_id", order.ID).Warn("order event publish failed")
			}
		}
	}
	w.metrics.SetPendingOrders(pending)

	return processed, nil
}
