package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ricirt/venturematch/internal/api"
	"github.com/ricirt/venturematch/internal/config"
	"github.com/ricirt/venturematch/internal/db"
	"github.com/ricirt/venturematch/internal/mailer"
	"github.com/ricirt/venturematch/internal/matcher"
	"github.com/ricirt/venturematch/internal/metrics"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/ratelimiter"
	"github.com/ricirt/venturematch/internal/repository"
	"github.com/ricirt/venturematch/internal/service"
	"github.com/ricirt/venturematch/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := repository.NewPgDomainStore(pool)
	tasks := repository.NewPgTaskRepository(pool)
	notes := repository.NewPgNotificationRepository(pool)

	var gateway mailer.Gateway
	if cfg.EmailGatewayURL != "" {
		gateway = mailer.NewHTTPGateway(cfg.EmailGatewayURL, cfg.EmailGatewayToken, cfg.EmailFrom, cfg.EmailTimeout)
	} else {
		logger.Warn("EMAIL_GATEWAY_URL not set, emails are logged instead of sent")
		gateway = mailer.NewLogGateway(logger.Named("mailer"))
	}

	ledger := service.NewLedger(notes, logger)
	producer := queue.NewProducer(tasks, cfg.MaxAttempts, queue.ProducerHooks{OnEnqueued: m.OnEnqueued})
	dispatcher := service.NewDispatcher(store, tasks, matcher.New(store), producer, cfg.PublicBaseURL, logger)
	executor := service.NewHandler(store, ledger, gateway, cfg.ModerationAdminEmail, logger)

	q := queue.New(cfg.QueueBuffer)

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	monitor := worker.NewMonitor(tasks, q, cfg.MonitorSchedule, func(s *worker.Snapshot) {
		m.ObserveQueue(s.Tasks, s.Buffer.High, s.Buffer.Normal, s.Buffer.Low)
	}, logger)
	if err := monitor.Start(workerCtx); err != nil {
		logger.Fatal("failed to start queue monitor", zap.Error(err))
	}

	// ---- worker pool ----
	// WORKERS=0 runs an intake-only process; tasks wait for another replica.
	var workers *worker.Pool
	if cfg.Workers > 0 {
		onSucceeded, onRetried, onDeadLettered := m.WorkerHooks()
		workers = worker.NewPool(cfg, q, tasks, executor, ratelimiter.New(cfg.EmailRateLimit), logger, worker.MetricHooks{
			OnSucceeded:    onSucceeded,
			OnRetried:      onRetried,
			OnDeadLettered: onDeadLettered,
		})
		workers.Start(workerCtx)

		claimer := worker.NewClaimer(tasks, q, producer.Nudges(), cfg.PollInterval, cfg.ClaimBatch, cfg.LeaseDuration, logger)
		go claimer.Run(workerCtx)
		logger.Info("worker pool started", zap.Int("workers", workers.Size()))
	}

	// ---- HTTP server ----
	var srv *http.Server
	if cfg.HTTPEnabled {
		router := api.NewRouter(api.Deps{
			Ledger:     ledger,
			Dispatcher: dispatcher,
			Tasks:      tasks,
			Producer:   producer,
			Monitor:    monitor,
			DB:         pool,
			Registry:   reg,
			JWTSecret:  cfg.JWTSecret,
			Logger:     logger,
		})
		srv = &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}

		// Start server in a goroutine so it does not block the shutdown listener.
		go func() {
			logger.Info("server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server error", zap.Error(err))
			}
		}()
	}

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. Stop claiming and signal workers to stop taking new tasks.
	cancelWorkers()

	// 3. Wait for in-flight tasks. Tasks still buffered keep their lease and
	// are reclaimed after it expires.
	if workers != nil {
		workers.Wait()
	}

	logger.Info("server stopped cleanly")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
