package scheduler

import (
	"context"
	"fmt"

	"revive_backend/platform/config"
	"revive_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// BookingNotifier delivers one booking notification.
type BookingNotifier interface {
	SendBookingNotification(ctx context.Context, payload BookingNotificationPayload) error
}

// CampaignDialer dials the pending leads named by a campaign task.
type CampaignDialer interface {
	DialCampaign(ctx context.Context, payload CallCampaignPayload) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	notifier BookingNotifier
	dialer   CampaignDialer
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, notifier BookingNotifier, dialer CampaignDialer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		notifier: notifier,
		dialer:   dialer,
		log:      log,
	}

	mux.HandleFunc(TaskBookingNotification, w.handleBookingNotification)
	mux.HandleFunc(TaskCallCampaign, w.handleCallCampaign)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleBookingNotification(ctx context.Context, task *asynq.Task) error {
	if w.notifier == nil {
		return nil
	}

	payload, err := ParseBookingNotificationPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.notifier.SendBookingNotification(ctx, payload)
}

// Campaign tasks are never retried.
func (w *Worker) handleCallCampaign(ctx context.Context, task *asynq.Task) error {
	if w.dialer == nil {
		return nil
	}

	payload, err := ParseCallCampaignPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := w.dialer.DialCampaign(ctx, payload); err != nil {
		w.log.Error("call campaign failed", "tenantId", payload.TenantID, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return nil
}
