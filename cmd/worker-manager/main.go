package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"triage-workers/internal/common/camunda"
	"triage-workers/internal/common/config"
	"triage-workers/internal/common/database"
	"triage-workers/internal/common/logger"
	"triage-workers/internal/common/observability"
	"triage-workers/internal/common/validation"
	"triage-workers/internal/facility"

	cs "triage-workers/internal/workers/triage/classify-severity"
	es "triage-workers/internal/workers/triage/extract-signals"
	ln "triage-workers/internal/workers/triage/locate-nearest"
	nd "triage-workers/internal/workers/triage/notify-dispatch"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

type workerSpec struct {
	name     string
	taskType string
	handler  camunda.JobHandler

	// ready is served under name on /ready when set.
	ready Check
}

// readyChecks collects the readiness checks the workers provide.
func readyChecks(specs []workerSpec) map[string]Check {
	checks := make(map[string]Check)
	for _, spec := range specs {
		if spec.ready != nil {
			checks[spec.name] = spec.ready
		}
	}
	return checks
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).
		With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Environment))
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager", zap.String("version", cfg.App.Version))

	obs, err := observability.New(cfg.App.Name, cfg.App.Version)
	if err != nil {
		zapLog.Warn("otel metrics exporter unavailable", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, closeBackends := connectBackends(ctx, cfg, zapLog, log)
	defer closeBackends()

	// --- Facility registry ---
	source, err := facility.BuildSource(cfg.Registry, backends)
	if err != nil {
		zapLog.Fatal("registry source misconfigured", zap.Error(err))
	}

	var registry *facility.Registry
	err = retryWithBackoff(func() error {
		loadCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Registry.Timeout))
		defer cancel()
		registry, err = facility.Load(loadCtx, source, log)
		return err
	}, 5, 2*time.Second, zapLog, "Facility registry load")
	if err != nil {
		zapLog.Fatal("facility registry unavailable", zap.Error(err))
	}

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- Workers ---
	specs, err := buildWorkers(cfg, registry, log, obs)
	if err != nil {
		zapLog.Fatal("worker setup failed", zap.Error(err))
	}

	var running []*camunda.CamundaWorker
	for _, spec := range specs {
		wcfg := config.GetWorkerConfig(cfg, spec.name)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", spec.taskType))
			continue
		}
		running = append(running, camunda.NewWorker(zeebe.GetClient(), spec.taskType, spec.handler, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, log))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(running)))

	// --- Health & Metrics Server ---
	checks := readyChecks(specs)
	checks["zeebe"] = zeebe.HealthCheck
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newOpsRouter(cfg.Metrics.Path, checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range running {
		w.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("Health/Metrics server shutdown", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("otel shutdown", zap.Error(err))
	}
	zapLog.Info("Worker manager stopped")
}

func buildWorkers(cfg *config.Config, registry *facility.Registry, log logger.Logger, obs *observability.Observability) ([]workerSpec, error) {
	extract, err := es.NewHandler(es.HandlerOptions{AppConfig: cfg, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	classify, err := cs.NewHandler(cs.HandlerOptions{AppConfig: cfg, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}
	locate, err := ln.NewHandler(ln.HandlerOptions{AppConfig: cfg, Registry: registry, Logger: log, Observability: obs})
	if err != nil {
		return nil, err
	}

	specs := []workerSpec{
		{name: es.WorkerName, taskType: es.TaskType, handler: extract},
		{name: cs.WorkerName, taskType: cs.TaskType, handler: classify},
		{name: ln.WorkerName, taskType: ln.TaskType, handler: locate, ready: locate.HealthCheck},
	}

	// The dispatch worker builds AWS clients, so it is only constructed when enabled.
	if config.IsWorkerEnabled(cfg, nd.WorkerName) {
		notify, err := nd.NewHandler(nd.HandlerOptions{AppConfig: cfg, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		specs = append(specs, workerSpec{name: nd.WorkerName, taskType: nd.TaskType, handler: notify})
	}

	for _, spec := range specs {
		if err := validation.ValidateTaskType(spec.taskType); err != nil {
			return nil, fmt.Errorf("%s: %w", spec.name, err)
		}
	}
	return specs, nil
}

// connectBackends opens only the stores the registry source needs.
func connectBackends(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (facility.Backends, func()) {
	backends := facility.Backends{Logger: log}
	var closers []func() error

	switch cfg.Registry.Source {
	case config.RegistrySourcePostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		backends.DB = pg.DB
		closers = append(closers, pg.Close)
		zapLog.Info("PostgreSQL connected successfully")

	case config.RegistrySourceElasticsearch:
		var esClient *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		backends.Elasticsearch = esClient.Client
		zapLog.Info("Elasticsearch connected successfully")
	}

	if cfg.Registry.CacheEnabled() {
		redis := database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, registry cache will fall through", zap.Error(err))
		}
		backends.Redis = redis.Client
		closers = append(closers, redis.Close)
	}

	return backends, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				zapLog.Warn("close backend", zap.Error(err))
			}
		}
	}
}
