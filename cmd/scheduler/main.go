package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	calendarsvc "revive_backend/internal/calendar/service"
	"revive_backend/internal/callprovider"
	"revive_backend/internal/calls"
	"revive_backend/internal/email"
	"revive_backend/internal/events"
	"revive_backend/internal/leads"
	"revive_backend/internal/notification"
	"revive_backend/internal/scheduler"
	"revive_backend/internal/settings"
	"revive_backend/internal/webhook"
	"revive_backend/platform/config"
	"revive_backend/platform/db"
	"revive_backend/platform/logger"
	"revive_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	settingsModule := settings.NewModule(pool, val, log)
	leadsModule := leads.NewModule(pool, eventBus, val, log)

	// The worker is the queue consumer, so nothing here enqueues.
	notificationModule := notification.New(
		newSender(cfg, log),
		settingsModule.Service(),
		nil,
		calendarsvc.LoadLocation(cfg.GetCalendarTimezone()),
		log,
	)
	callsModule := calls.NewModule(
		callprovider.NewClient(cfg, log),
		settingsModule.Service(),
		leadsModule.Service(),
		nil,
		cfg.GetAsynqConcurrency(),
		eventBus,
		val,
		nil,
		log,
	)

	cleanupInterval := getDurationEnv("WEBHOOK_DEDUPE_CLEANUP_INTERVAL", 10*time.Minute)
	dedupeCleanup := scheduler.NewDedupeCleanup(webhook.NewRepository(pool), log, cleanupInterval)
	go dedupeCleanup.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, notificationModule, callsModule.Campaigns(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func newSender(cfg config.SMTPConfig, log *logger.Logger) email.Sender {
	if !cfg.IsSMTPEnabled() {
		log.Warn("SMTP not configured; booking notifications are dropped")
	}
	return email.NewSender(cfg)
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
