package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"DealScreener/internal/chunker"
	"DealScreener/internal/config"
	"DealScreener/internal/infrastructure/httpserver"
	"DealScreener/internal/infrastructure/llm"
	"DealScreener/internal/infrastructure/redisq"
	"DealScreener/internal/infrastructure/storage"
	"DealScreener/internal/logging"
	"DealScreener/internal/metrics"
	"DealScreener/internal/usecase"
)

// Application wires configs to the worker loop and the HTTP surface.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	consumer *usecase.Consumer
	server   *httpserver.Server
	queue    *redisq.Queue
	db       *sql.DB
}

// New builds a runnable application instance. Construction is lazy where
// possible: an unreachable Redis or Postgres at startup is a transport
// condition for the loop to back off on, not a fatal error.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	queue := redisq.NewQueue(rdb, cfg.Redis.QueueKey)
	markers := redisq.NewMarkerStore(rdb, cfg.Redis.MarkerPrefix,
		cfg.Worker.MessageMarkerTTL.Std(), cfg.Worker.SubmissionMarkerTTL.Std())
	publisher := redisq.NewPublisher(rdb, cfg.Redis.NotifyChannel, cfg.Redis.JobStatusChannel)

	generator := llm.NewClient(cfg.LLM)

	processor := usecase.NewProcessor(usecase.ProcessorDeps{
		Chunker:     chunker.New(cfg.Worker.MaxChunkSize),
		Evaluator:   usecase.NewChunkEvaluator(generator, m, baseLogger.With("component", "evaluator")),
		Aggregator:  usecase.NewAggregator(generator, baseLogger.With("component", "aggregator")),
		Records:     storage.NewRecordRepository(db),
		Publisher:   publisher,
		DeadLetters: queue.DeadLetters(),
		Metrics:     m,
		Logger:      baseLogger.With("component", "processor"),
	})

	consumer := usecase.NewConsumer(queue, markers, processor, usecase.ConsumerConfig{
		PollInterval:       cfg.Worker.PollInterval.Std(),
		SubmissionDelay:    cfg.Worker.SubmissionDelay.Std(),
		BackoffBase:        cfg.Worker.BackoffBase.Std(),
		BackoffCap:         cfg.Worker.BackoffCap.Std(),
		MaxConnectAttempts: cfg.Worker.MaxConnectAttempts,
		ReconnectCooldown:  cfg.Worker.ReconnectCooldown.Std(),
		FailureThreshold:   cfg.Worker.FailureThreshold,
		FailureCooldown:    cfg.Worker.FailureCooldown.Std(),
	}, m, baseLogger.With("component", "consumer"))

	server := httpserver.New(cfg.HTTP.Addr, queue, registry, baseLogger.With("component", "http"))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		consumer: consumer,
		server:   server,
		queue:    queue,
		db:       db,
	}, nil
}

// Run starts the HTTP surface and the consumer loop, then blocks until a
// termination signal arrives. Shutdown lets the loop finish its current
// submission; a hard timeout forces exit if that stalls.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- a.server.Start()
	}()

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- a.consumer.Run(ctx)
	}()

	select {
	case err := <-httpErr:
		stop()
		a.waitForConsumer(consumerDone)
		a.close()
		return fmt.Errorf("http surface failed: %w", err)
	case <-ctx.Done():
	case err := <-consumerDone:
		// The loop only returns on cancellation; anything else here is a bug
		// worth surfacing.
		a.close()
		return fmt.Errorf("consumer stopped unexpectedly: %w", err)
	}

	a.logger.Info("shutting down", "timeout", a.cfg.Worker.ShutdownTimeout.Std())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Worker.ShutdownTimeout.Std())
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}

	select {
	case <-consumerDone:
		a.logger.Info("consumer drained")
	case <-shutdownCtx.Done():
		a.close()
		return fmt.Errorf("graceful shutdown timed out after %s", a.cfg.Worker.ShutdownTimeout.Std())
	}

	a.close()
	return nil
}

func (a *Application) waitForConsumer(done <-chan error) {
	select {
	case <-done:
	case <-time.After(a.cfg.Worker.ShutdownTimeout.Std()):
	}
}

func (a *Application) close() {
	if err := a.queue.Close(); err != nil {
		a.logger.Warn("close transport", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}
