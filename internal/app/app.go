// Package app собирает сервис заказов из компонентов и управляет его
// жизненным циклом: хранилище, Kafka, REST API, метрики, фоновый процессор,
// корректная остановка.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/salesorders/internal/health"
	"github.com/vladislavdragonenkov/salesorders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/salesorders/internal/metrics"
	httpsvc "github.com/vladislavdragonenkov/salesorders/internal/service/http"
	"github.com/vladislavdragonenkov/salesorders/internal/service/order"
	"github.com/vladislavdragonenkov/salesorders/internal/service/processor"
	"github.com/vladislavdragonenkov/salesorders/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает сервис и блокируется до отмены ctx или фатальной ошибки.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	repo, store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if store != nil {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres store")
			}
		}
	}()

	// Kafka подключается опционально: без брокеров сервис работает,
	// просто не публикует события.
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}
	defer func() {
		if kafkaProducer != nil {
			if err := kafkaProducer.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka producer")
			} else {
				logger.Info("kafka producer closed")
			}
		}
	}()

	orderMetrics := metrics.NewOrderMetrics()

	serviceOpts := []order.Option{
		order.WithMetrics(orderMetrics),
		order.WithLogger(logger.WithField("layer", "service")),
	}
	processorOpts := []processor.Option{
		processor.WithInterval(cfg.ProcessInterval),
		processor.WithLogger(logger.WithField("layer", "processor")),
		processor.WithMetrics(orderMetrics),
	}
	if kafkaProducer != nil {
		serviceOpts = append(serviceOpts, order.WithEventPublisher(kafkaProducer))
		processorOpts = append(processorOpts, processor.WithEventPublisher(kafkaProducer))
	}

	orderService := order.NewService(repo, serviceOpts...)
	worker := processor.NewWorker(repo, processorOpts...)

	healthHandler := healthcheck.NewHandler("salesorders", version.String())
	if store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewFuncChecker("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(checkCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	handler := httpsvc.NewOrderHandler(orderService, logger.WithField("layer", "http"))
	apiSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpsvc.NewRouter(handler, logger.WithField("layer", "http")),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		wg.Wait()
		return ctx.Err()

	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
