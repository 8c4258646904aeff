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

	"leadtracker_backend/internal/activity"
	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/exports"
	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/internal/http/router"
	"leadtracker_backend/internal/leads"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/owners"
	"leadtracker_backend/internal/reports"
	"leadtracker_backend/internal/scheduler"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/db"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/metrics"
	"leadtracker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	rdb, closeRedis := initRedis(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	leadMetrics := metrics.NewLeadMetrics(registry)

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Activity subscribes to domain events (not HTTP-facing)
	activity.New(leadMetrics, log).RegisterHandlers(eventBus)

	ownersModule := owners.NewModule(pool)
	fallbackName, err := ownersModule.EnsureFallbackOwner(ctx, cfg.GetFallbackOwnerID())
	if err != nil {
		log.Error("failed to ensure fallback owner", "error", err)
		panic("failed to ensure fallback owner: " + err.Error())
	}

	leadsModule, err := leads.NewModule(pool, eventBus, val, cfg, ownersModule.Repository(), rdb, leadMetrics, fallbackName, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	exportsModule := exports.NewModule(leadsModule.Repository(), cfg.GetBusinessLocation())
	reportsModule := reports.NewModule(pool, domain.Clock{Location: cfg.GetBusinessLocation()})

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			ownersModule,
			leadsModule,
			exportsModule,
			reportsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis returns a nil client when REDIS_URL is unset, so sweep passes
// run without the cross-process lock.
func initRedis(cfg config.SchedulerConfig, log *logger.Logger) (redis.Cmdable, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sweep lock disabled")
		return nil, nil
	}

	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
