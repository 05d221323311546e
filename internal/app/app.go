// Package app собирает зависимости сервиса заказов и управляет его жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderlife/internal/auth"
	"github.com/vladislavdragonenkov/orderlife/internal/health"
	"github.com/vladislavdragonenkov/orderlife/internal/metrics"
	"github.com/vladislavdragonenkov/orderlife/internal/service/httpapi"
	"github.com/vladislavdragonenkov/orderlife/internal/service/orders"
	"github.com/vladislavdragonenkov/orderlife/internal/service/outbox"
	"github.com/vladislavdragonenkov/orderlife/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// Run поднимает HTTP API, сервер метрик и outbox worker и работает до отмены ctx.
// При штатной остановке возвращает ctx.Err().
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("init token verifier: %w", err)
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	healthHandler := health.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}

	serviceOpts := []orders.Option{
		orders.WithTimeline(deps.timelineRepo),
		orders.WithMetrics(metrics.NewOrderMetrics()),
		orders.WithLogger(logger.WithField("layer", "orders")),
	}

	kafkaRT, err := initKafka(cfg, logger.WithField("layer", "kafka"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, lifecycle events disabled")
	}
	defer closeKafkaProducer(kafkaRT, logger)

	stopWorker := func() {}
	if kafkaRT != nil {
		serviceOpts = append(serviceOpts, orders.WithOutbox(deps.outboxRepo))
		healthHandler.RegisterChecker("kafka", health.NewOptionalChecker("kafka", kafkaRT.publisher.CheckHealth))
		stopWorker = startOutboxWorker(ctx, cfg, deps, kafkaRT, logger)
	}
	defer stopWorker()

	svc := orders.NewService(deps.repo, serviceOpts...)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(svc, verifier, logger.WithField("layer", "http")),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("version", version.String()).Infof("http api listens on %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping http api")
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http api: %w", err)
	}
}

// startOutboxWorker запускает worker в отдельной горутине и возвращает функцию
// его остановки, которая ждёт завершения текущего цикла.
func startOutboxWorker(ctx context.Context, cfg Config, deps *runtimeDependencies, rt *kafkaRuntime, logger *log.Entry) func() {
	opts := []outbox.Option{
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithMetrics(metrics.NewOutboxMetrics()),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if rt.dlq != nil {
		opts = append(opts, outbox.WithDLQPublisher(rt.dlq))
	}
	worker := outbox.NewWorker(deps.outboxRepo, rt.publisher, opts...)

	workerCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(workerCtx)
	}()

	return func() {
		cancel()
		wg.Wait()
		logger.Info("outbox worker stopped")
	}
}

// startMetricsServer обслуживает /metrics и health-пробы на отдельном адресе.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	healthHandler.Routes(mux)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("metrics: %s/metrics, probes: /healthz /livez /readyz", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	return srv
}

// shutdownHTTP останавливает сервер, дожидаясь активных запросов не дольше timeout.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
