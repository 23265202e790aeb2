package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"revive_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const campaignUniqueWindow = 5 * time.Minute

type Client struct {
	client *asynq.Client
	queue  string
}

// NotificationScheduler queues booking notification emails.
type NotificationScheduler interface {
	EnqueueBookingNotification(ctx context.Context, payload BookingNotificationPayload) error
}

// CampaignScheduler queues bulk dialling of a tenant's pending leads.
type CampaignScheduler interface {
	EnqueueCallCampaign(ctx context.Context, payload CallCampaignPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueBookingNotification(ctx context.Context, payload BookingNotificationPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewBookingNotificationTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

// EnqueueCallCampaign rejects a second campaign for the same tenant while one is queued.
func (c *Client) EnqueueCallCampaign(ctx context.Context, payload CallCampaignPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCallCampaignTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
		asynq.Unique(campaignUniqueWindow),
	)
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
