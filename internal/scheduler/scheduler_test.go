package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"revive_backend/platform/logger"

	"github.com/hibiken/asynq"
)

func TestRedisClientOpt(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		insecure bool
		wantAddr string
		wantDB   int
		wantTLS  bool
		skipTLS  bool
	}{
		{name: "plain", url: "redis://:secret@cache:6379/2", wantAddr: "cache:6379", wantDB: 2},
		{name: "tls", url: "rediss://cache:6380", wantAddr: "cache:6380", wantTLS: true},
		{name: "tls insecure", url: "rediss://cache:6380", insecure: true, wantAddr: "cache:6380", wantTLS: true, skipTLS: true},
		{name: "insecure without tls url", url: "redis://cache:6379", insecure: true, wantAddr: "cache:6379", wantTLS: true, skipTLS: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := redisClientOpt(tt.url, tt.insecure)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opt.Addr != tt.wantAddr || opt.DB != tt.wantDB {
				t.Fatalf("opt = %+v", opt)
			}
			if (opt.TLSConfig != nil) != tt.wantTLS {
				t.Fatalf("tls config present = %v, want %v", opt.TLSConfig != nil, tt.wantTLS)
			}
			if tt.wantTLS && opt.TLSConfig.InsecureSkipVerify != tt.skipTLS {
				t.Fatalf("InsecureSkipVerify = %v", opt.TLSConfig.InsecureSkipVerify)
			}
		})
	}
}

type fakeNotifier struct{ got []BookingNotificationPayload }

func (f *fakeNotifier) SendBookingNotification(_ context.Context, p BookingNotificationPayload) error {
	f.got = append(f.got, p)
	return nil
}

type fakeDialer struct{ err error }

func (f fakeDialer) DialCampaign(context.Context, CallCampaignPayload) error { return f.err }

func TestWorkerHandlers(t *testing.T) {
	notifier := &fakeNotifier{}
	w := &Worker{notifier: notifier, dialer: fakeDialer{err: errors.New("provider down")}, log: logger.Discard()}

	task, err := NewBookingNotificationTask(BookingNotificationPayload{TenantID: "t1", CustomerName: "Jane Doe", Datetime: "2026-01-20T15:00:00-05:00"})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := w.handleBookingNotification(context.Background(), task); err != nil {
		t.Fatalf("handleBookingNotification: %v", err)
	}
	if len(notifier.got) != 1 || notifier.got[0].CustomerName != "Jane Doe" {
		t.Fatalf("notifier got %+v", notifier.got)
	}

	bad := asynq.NewTask(TaskBookingNotification, []byte("{"))
	if err := w.handleBookingNotification(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload should skip retry, got %v", err)
	}

	campaign, _ := NewCallCampaignTask(CallCampaignPayload{TenantID: "t1"})
	if err := w.handleCallCampaign(context.Background(), campaign); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("failed campaign should skip retry, got %v", err)
	}
}

type fakePurger struct {
	calls  int
	before time.Time
}

func (f *fakePurger) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	f.calls++
	f.before = before
	return 3, nil
}

func TestDedupeCleanupRunsImmediatelyAndStops(t *testing.T) {
	purger := &fakePurger{}
	c := NewDedupeCleanup(purger, logger.Discard(), time.Hour)
	now := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)

	if purger.calls != 1 || !purger.before.Equal(now) {
		t.Fatalf("purger calls = %d before = %s", purger.calls, purger.before)
	}
}
