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

	"revive_backend/internal/adapters"
	"revive_backend/internal/adapters/storage"
	"revive_backend/internal/calendar"
	calendarsvc "revive_backend/internal/calendar/service"
	"revive_backend/internal/callprovider"
	"revive_backend/internal/calls"
	"revive_backend/internal/email"
	"revive_backend/internal/events"
	apphttp "revive_backend/internal/http"
	"revive_backend/internal/http/router"
	"revive_backend/internal/leads"
	"revive_backend/internal/notification"
	"revive_backend/internal/provisioning"
	provisioningsvc "revive_backend/internal/provisioning/service"
	"revive_backend/internal/scheduler"
	"revive_backend/internal/settings"
	"revive_backend/internal/webhook"
	"revive_backend/platform/config"
	"revive_backend/platform/db"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"
	"revive_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

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

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	var rec *metrics.Recorder
	if cfg.IsMetricsEnabled() {
		rec = metrics.New()
	}

	rdb := initRedis(ctx, cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	queue, closeQueue := initQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	settingsModule := settings.NewModule(pool, val, log)
	leadsModule := leads.NewModule(pool, eventBus, val, log)
	calendarModule := calendar.NewModule(pool, cfg, settingsModule.Service(), rec, log)

	provider := callprovider.NewClient(cfg, log)

	// Interface-typed queues stay untyped nil without Redis so callers fall back to inline work.
	var campaignQueue scheduler.CampaignScheduler
	var notificationQueue scheduler.NotificationScheduler
	if queue != nil {
		campaignQueue = queue
		notificationQueue = queue
	}

	callsModule := calls.NewModule(provider, settingsModule.Service(), leadsModule.Service(), campaignQueue, 0, eventBus, val, rec, log)

	provisioningModule, err := provisioning.NewModule(provider, settingsModule.Service(), provisioningsvc.Options{
		WebhookURL:    cfg.GetWebhookPublicURL(),
		WebhookSecret: cfg.GetWebhookSecret(),
		Location:      calendarsvc.LoadLocation(cfg.GetCalendarTimezone()),
	}, log)
	if err != nil {
		log.Error("failed to initialize provisioning module", "error", err)
		panic("failed to initialize provisioning module: " + err.Error())
	}

	webhookModule := webhook.NewModule(
		pool,
		rdb,
		leadsModule.Service(),
		calendarModule.Availability(),
		calendarModule.Scheduler(),
		cfg,
		eventBus,
		rec,
		log,
	)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(
		newSender(cfg, log),
		settingsModule.Service(),
		notificationQueue,
		calendarsvc.LoadLocation(cfg.GetCalendarTimezone()),
		log,
	)
	notificationModule.RegisterHandlers(eventBus)

	if cfg.IsMinIOEnabled() {
		store, err := storage.NewMinIOStore(cfg)
		if err != nil {
			log.Error("failed to initialize object storage", "error", err)
			panic("failed to initialize object storage: " + err.Error())
		}
		bucket := cfg.GetMinioBucketCallReports()
		if err := withRetry(ctx, log, "ensure call-reports bucket", 5, 2*time.Second, func() error {
			return store.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		adapters.NewCallReportArchiver(store, bucket, log).RegisterHandlers(eventBus)
		log.Info("call report archive enabled", "bucket", bucket)
	} else {
		log.Info("MINIO_ENDPOINT not configured; end-of-call reports are not archived")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			settingsModule,
			leadsModule,
			calendarModule,
			callsModule,
			provisioningModule,
			webhookModule,
		},
	}
	if rec != nil {
		app.Metrics = rec.Handler()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		eventBus.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	log.Info("server stopped")
}

func newSender(cfg config.SMTPConfig, log *logger.Logger) email.Sender {
	if !cfg.IsSMTPEnabled() {
		log.Warn("SMTP not configured; booking notifications are dropped")
	}
	return email.NewSender(cfg)
}

// initRedis returns nil when Redis is absent or unreachable; webhook dedupe then
// runs on Postgres alone.
func initRedis(ctx context.Context, cfg config.DedupeConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; webhook dedupe uses Postgres only")
		return nil
	}
	client, err := scheduler.NewRedisClient(ctx, cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to connect to redis; webhook dedupe uses Postgres only", "error", err)
		return nil
	}
	return client
}

func initQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; notifications and campaigns run in-process")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
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
