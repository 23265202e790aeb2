package service

import (
	"context"
	"errors"
	"sync/atomic"

	"revive_backend/internal/leads/domain"
	leadrepo "revive_backend/internal/leads/repository"
	"revive_backend/internal/scheduler"
	"revive_backend/platform/apperr"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

const defaultCampaignConcurrency = 3

const (
	msgNoPendingLeads   = "No pending leads to call."
	msgCampaignRunning  = "A campaign is already running for this account."
	msgCampaignNotQueue = "Could not queue the campaign. Try again shortly."
)

// PendingLister lists a tenant's leads by status.
type PendingLister interface {
	List(ctx context.Context, tenantID uuid.UUID, status string) ([]leadrepo.Lead, error)
}

type CampaignSummary struct {
	Attempted int `json:"attempted"`
	Started   int `json:"started"`
	Failed    int `json:"failed"`
}

// Campaigns dials every pending lead of a tenant through the Initiator.
type Campaigns struct {
	initiator   *Initiator
	leads       PendingLister
	queue       scheduler.CampaignScheduler
	concurrency int
	log         *logger.Logger
}

// NewCampaigns builds the campaign runner. A nil queue runs campaigns in-process.
func NewCampaigns(initiator *Initiator, leads PendingLister, queue scheduler.CampaignScheduler, concurrency int, log *logger.Logger) *Campaigns {
	if concurrency < 1 {
		concurrency = defaultCampaignConcurrency
	}
	return &Campaigns{
		initiator:   initiator,
		leads:       leads,
		queue:       queue,
		concurrency: concurrency,
		log:         log,
	}
}

// Start checks there is work and credentials to do it, then hands the campaign to the
// queue. It returns the number of leads waiting to be dialled.
func (c *Campaigns) Start(ctx context.Context, tenantID uuid.UUID, limit int) (int, error) {
	if _, err := c.initiator.credentials.CallCredentials(ctx, tenantID); err != nil {
		return 0, err
	}
	pending, err := c.leads.List(ctx, tenantID, string(domain.StatusPending))
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, apperr.Validation(msgNoPendingLeads)
	}
	queued := len(pending)
	if limit > 0 && limit < queued {
		queued = limit
	}

	payload := scheduler.CallCampaignPayload{TenantID: tenantID.String(), Limit: limit}
	if c.queue == nil {
		go func() {
			if err := c.DialCampaign(context.WithoutCancel(ctx), payload); err != nil {
				c.log.Error("in-process campaign failed", "tenantId", tenantID, "error", err)
			}
		}()
		return queued, nil
	}

	err = c.queue.EnqueueCallCampaign(ctx, payload)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		return 0, apperr.Conflict(msgCampaignRunning)
	case err != nil:
		return 0, apperr.Wrap(apperr.KindInternal, msgCampaignNotQueue, err)
	}
	return queued, nil
}

// DialCampaign is the worker entry point for a queued campaign.
func (c *Campaigns) DialCampaign(ctx context.Context, payload scheduler.CallCampaignPayload) error {
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}
	summary, err := c.Run(ctx, tenantID, payload.Limit)
	if err != nil {
		return err
	}
	c.log.WithContext(ctx).Info("call campaign finished",
		"tenantId", tenantID, "attempted", summary.Attempted, "started", summary.Started, "failed", summary.Failed)
	return nil
}

// Run dials pending leads with bounded concurrency. Individual call failures are
// counted, not returned; each has already been rolled back by the Initiator.
func (c *Campaigns) Run(ctx context.Context, tenantID uuid.UUID, limit int) (CampaignSummary, error) {
	pending, err := c.leads.List(ctx, tenantID, string(domain.StatusPending))
	if err != nil {
		return CampaignSummary{}, err
	}
	if limit > 0 && limit < len(pending) {
		pending = pending[:limit]
	}

	var started, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, lead := range pending {
		lead := lead
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			in := InitiateCallInput{Name: lead.Name, Phone: lead.Phone}
			if lead.Interest != nil {
				in.Interest = *lead.Interest
			}
			if _, err := c.initiator.InitiateCall(gctx, tenantID, in); err != nil {
				failed.Add(1)
				if apperr.Is(err, apperr.KindConfiguration) {
					return err
				}
				return nil
			}
			started.Add(1)
			return nil
		})
	}

	err = g.Wait()
	summary := CampaignSummary{
		Attempted: int(started.Load() + failed.Load()),
		Started:   int(started.Load()),
		Failed:    int(failed.Load()),
	}
	return summary, err
}
