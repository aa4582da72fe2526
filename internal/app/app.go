package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/collinlucke/baphomet-server/internal/cfg"
	v1Grpc "github.com/collinlucke/baphomet-server/internal/delivery/v1/grpc"
	v1Http "github.com/collinlucke/baphomet-server/internal/delivery/v1/http"
	"github.com/collinlucke/baphomet-server/internal/infrastructure/kafka"
	"github.com/collinlucke/baphomet-server/internal/repository/pgdb"
	pgdbConv "github.com/collinlucke/baphomet-server/internal/repository/pgdb/converter"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/collinlucke/baphomet-server/pkg/metrics"
	"github.com/collinlucke/baphomet-server/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	pipeline *Pipeline
	registry *prometheus.Registry

	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp собирает конвейер, фоновые воркеры Kafka и транспорт. Сеть пока не слушается.
func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(registry)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	pipeline, err := NewPipeline(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := a.initKafka(); err != nil {
		cancel()
		_ = pipeline.Closer.Close(context.Background())
		return nil, err
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, logger, registry).Init(pipeline.UC, cfg.Http.WriteTimeout)
	a.httpSrv = v1Http.NewServer(r, cfg.Http)
	a.grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, logger)

	return a, nil
}

// initKafka запускает outbox-воркер (нужен журнал в PostgreSQL) и консьюмер запросов.
func (a *App) initKafka() error {
	if a.cfg.Kafka == nil {
		return nil
	}

	producer, err := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if err := producer.EnsureTopic(10 * time.Second); err != nil {
		a.logger.Warnf("kafka topic %s not ensured: %v", a.cfg.Kafka.Topic, err)
	}
	a.pipeline.Closer.Add("kafka producer", func(context.Context) error {
		return producer.Close()
	})

	if a.pipeline.DB != nil {
		worker := kafka.NewOutboxWorker(
			pgdb.NewOutboxEventRepo(a.pipeline.DB.Pool, pgdbConv.OutboxEventConv{}),
			a.logger,
			producer,
			postgres.DSN(a.cfg.Db),
			pgdb.NotifyChannel,
		)
		worker.Start(a.ctx)
		a.pipeline.Closer.Add("outbox worker", worker.Stop)
		a.logger.Infof("outbox worker started, topic %s", a.cfg.Kafka.Topic)
	} else {
		a.logger.Warnf("KAFKA_BROKERS set without POSTGRES_DB: image.processed events are not published")
	}

	if a.cfg.Kafka.RequestTopic != "" {
		consumer, err := kafka.NewRequestConsumer(a.cfg.Kafka, a.pipeline.UC, a.logger)
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		consumer.Start(a.ctx)
		a.pipeline.Closer.Add("request consumer", consumer.Stop)
		a.logger.Infof("request consumer started, topic %s, group %s", a.cfg.Kafka.RequestTopic, a.cfg.Kafka.GroupID)
	}

	return nil
}

// Run блокируется до сигнала остановки или падения одного из серверов.
func (a *App) Run() error {
	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			a.logger.Errorf(err, "gRPC server failed")
			grpcErrCh <- err
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	a.grpcSrv.SetServing(true)

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	a.grpcSrv.SetServing(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.grpcSrv.Stop(shutdownCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			a.logger.Errorf(err, "gRPC server shutdown error")
		} else {
			a.logger.Warnf("gRPC server shutdown timeout")
		}
	}

	// Воркеры останавливаются после серверов, чтобы не терять запросы в обработке
	a.cancel()
	if err := a.pipeline.Closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "resources shutdown error")
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}
