package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"revive_backend/internal/cli"
	"revive_backend/internal/events"
	leadrepo "revive_backend/internal/leads/repository"
	leadsvc "revive_backend/internal/leads/service"
	"revive_backend/internal/webhook"
	"revive_backend/platform/config"
	"revive_backend/platform/db"
	"revive_backend/platform/logger"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

type migrator struct {
	cfg config.DatabaseConfig
}

func (m migrator) Up(ctx context.Context) error {
	return db.RunMigrations(ctx, m.cfg)
}

func (m migrator) Status(ctx context.Context) ([]string, error) {
	return db.MigrationStatus(ctx, m.cfg)
}

func open(ctx context.Context) (*cli.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Env)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewInMemoryBus(log)
	return &cli.Backend{
		Leads:      leadsvc.New(leadrepo.New(pool), bus, log),
		Deliveries: webhook.NewRepository(pool),
		Migrations: migrator{cfg: cfg},
		Close: func() {
			bus.Wait()
			pool.Close()
		},
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(Version, open).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
