package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fabricflow/fabricflow/internal/app"
	"github.com/fabricflow/fabricflow/internal/observability"
	"github.com/fabricflow/fabricflow/internal/platform/cache"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
	"github.com/fabricflow/fabricflow/jobs"
	"github.com/fabricflow/fabricflow/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var (
		backend app.Backend
		pool    *pgxpool.Pool
	)
	switch cfg.AppStore {
	case app.StoreMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		backend = app.MemoryBackend(memory.New())
	default:
		pool, err = db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		backend = app.PostgresBackend(pool)
	}

	deps := app.ServiceDeps{
		Backend:     backend,
		Logger:      logger,
		JWTSecret:   cfg.JWTSecret,
		JWTTTL:      cfg.JWTTTL,
		LockTTL:     cfg.SequenceLockTTL,
		PhoneRegion: cfg.DefaultPhoneRegion,
		Location:    cfg.Location(),
		SummaryTTL:  cfg.SummaryCacheTTL,
	}

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, running without locks, logout denylist or notifications", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		deps.Redis = redisClient
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
		deps.Observer = metrics
	}

	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		queue := asynq.NewClient(redisOpts)
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		deps.Notifier = jobs.NewSaleNotifier(queue)

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	services := app.BuildServices(deps)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := app.EnsureAdmin(ctx, services.Auth, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Error("bootstrap admin", slog.Any("error", err))
			os.Exit(1)
		}
		if created {
			logger.Info("bootstrap admin created", slog.String("email", cfg.AdminEmail))
		}
	}

	pdf := report.NewClient(cfg.GotenbergURL)
	if pdf.Enabled() {
		if err := pdf.Ping(ctx); err != nil {
			logger.Warn("gotenberg ping", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		Services:   services,
		Metrics:    metrics,
		JobHandler: jobHandler,
		PDF:        pdf,
		Ready: func(r *http.Request) error {
			if pool != nil {
				if err := pool.Ping(r.Context()); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Ping(r.Context()).Err()
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.AppStore))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
