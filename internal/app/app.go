package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/opr/internal/health"
	"github.com/vladislavdragonenkov/opr/internal/observability"
	"github.com/vladislavdragonenkov/opr/internal/service/intake"
	"github.com/vladislavdragonenkov/opr/internal/version"
)

// Run запускает сервис размещения заказов и блокируется до отмены ctx.
//
// Поток заказов: Kafka intake-топик → intake.Service → placement.Placer →
// выбранное хранилище; итоговые события публикуются в events-топик. Без
// настроенных брокеров сервис поднимает только HTTP-наблюдаемость.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithFields(version.Fields()).Info("starting placement service")

	shutdownTracing, err := observability.SetupTracing(version.Service, cfg.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("tracing shutdown with error")
		}
	}()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage(deps, logger)

	producer, producerErr := initKafkaProducer(cfg.KafkaBrokers, logger)
	if producerErr != nil {
		logger.Warn("outcome events will not be published")
	}

	placer := createPlacer(cfg, deps.repo, logger)

	// Typed-nil указатель в интерфейсе обошёл бы проверку events == nil,
	// поэтому producer передаётся только когда он реально создан.
	var publisher intake.EventPublisher
	if producer != nil {
		publisher = producer
	}
	intakeService := intake.NewService(placer, publisher,
		intake.WithLogger(log.WithField("component", "intake")),
		intake.WithEventsTopic(cfg.KafkaEventsTopic),
	)

	consumer, err := initIntakeConsumer(cfg, intakeService.HandleMessage, producer, logger)
	if err != nil {
		closeKafka(producer, logger)
		return fmt.Errorf("create intake consumer: %w", err)
	}
	if consumer != nil {
		if err := consumer.Start(ctx); err != nil {
			closeKafka(producer, logger)
			return fmt.Errorf("start intake consumer: %w", err)
		}
	}

	v, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(version.Service, v)
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем сервис")

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Warn("intake consumer stopped with error")
		}
	}
	closeKafka(producer, logger)
	shutdownHTTP(metricsSrv, logger)

	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчики наблюдаемости:
// /metrics для Prometheus и /healthz, /livez, /readyz для проб.
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
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
