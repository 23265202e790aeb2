package webhook

import (
	"revive_backend/internal/events"
	apphttp "revive_backend/internal/http"
	leadsvc "revive_backend/internal/leads/service"
	"revive_backend/platform/config"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Config is what the webhook module reads from the environment.
type Config interface {
	config.DedupeConfig
	config.WebhookConfig
}

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
	secret  string
}

// NewModule wires the router. rdb may be nil; deliveries are then deduplicated in Postgres.
func NewModule(
	pool *pgxpool.Pool,
	rdb *redis.Client,
	leads *leadsvc.Service,
	availability AvailabilityChecker,
	scheduler AppointmentScheduler,
	cfg Config,
	eventBus events.Bus,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Module {
	repo := NewRepository(pool)
	deduper := NewDeduper(rdb, repo, cfg.GetWebhookDedupeTTL(), log)
	router := NewRouter(leads.Resolver(), leads, availability, scheduler, deduper, eventBus, rec, log)
	if cfg.GetWebhookSecret() == "" {
		log.Warn("WEBHOOK_SECRET is not set; the provider webhook accepts unauthenticated deliveries")
	}
	return &Module{handler: NewHandler(router), repo: repo, secret: cfg.GetWebhookSecret()}
}

func (m *Module) Name() string {
	return "webhook"
}

// Repository exposes the delivery store for the purge job.
func (m *Module) Repository() *Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Not throttled: every authenticated delivery is acknowledged with 200.
	group := ctx.V1.Group("/webhook")
	group.Use(SecretAuthMiddleware(m.secret))
	group.POST("/vapi", m.handler.HandleVapi)
}

var _ apphttp.Module = (*Module)(nil)
