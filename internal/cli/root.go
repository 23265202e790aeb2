// Package cli implements revivectl, the operator command line.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	leadsvc "revive_backend/internal/leads/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// LeadImporter loads a CSV of leads into one tenant.
type LeadImporter interface {
	ImportCSV(ctx context.Context, tenantID uuid.UUID, r io.Reader) (leadsvc.ImportResult, error)
}

// DedupePurger drops webhook delivery claims that expired before a cutoff.
type DedupePurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Migrator applies and reports the embedded schema migrations.
type Migrator interface {
	Up(ctx context.Context) error
	Status(ctx context.Context) ([]string, error)
}

// Backend is what the commands operate on. Close releases connections.
type Backend struct {
	Leads      LeadImporter
	Deliveries DedupePurger
	Migrations Migrator
	Close      func()
}

// Opener connects to the database lazily so --help never needs a DATABASE_URL.
type Opener func(ctx context.Context) (*Backend, error)

func NewRootCmd(version string, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "revivectl",
		Short:        "Operate the Revive lead reactivation backend",
		SilenceUsage: true,
	}

	cmd.AddCommand(newMigrateCmd(open))
	cmd.AddCommand(newImportLeadsCmd(open))
	cmd.AddCommand(newPurgeDedupeCmd(open))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}

func withBackend(cmd *cobra.Command, open Opener, fn func(*Backend) error) error {
	backend, err := open(cmd.Context())
	if err != nil {
		return err
	}
	if backend.Close != nil {
		defer backend.Close()
	}
	return fn(backend)
}
