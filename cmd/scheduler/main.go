package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadtracker_backend/internal/activity"
	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads"
	"leadtracker_backend/internal/owners"
	"leadtracker_backend/internal/scheduler"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/db"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "cron", cfg.GetSweepCron())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	rdb, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()
	activity.New(nil, log).RegisterHandlers(eventBus)

	// Worker-side sweep wiring (no HTTP handlers required).
	ownersModule := owners.NewModule(pool)
	fallbackName, err := ownersModule.EnsureFallbackOwner(ctx, cfg.GetFallbackOwnerID())
	if err != nil {
		log.Error("failed to ensure fallback owner", "error", err)
		panic("failed to ensure fallback owner: " + err.Error())
	}
	leadsModule, err := leads.NewModule(pool, eventBus, validator.New(), cfg, ownersModule.Repository(), rdb, nil, fallbackName, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	// Catch up on a pass missed while the scheduler was down.
	if err := client.EnqueueStartupSweep(ctx); err != nil {
		log.Warn("failed to enqueue startup sweep", "error", err)
	}
	_ = client.Close()

	periodic, err := scheduler.NewPeriodic(cfg, cfg.GetBusinessLocation(), log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go func() {
		if err := periodic.Run(ctx); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()

	worker, err := scheduler.NewWorker(cfg, leadsModule.Sweeper(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
