package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	leadsvc "revive_backend/internal/leads/service"

	"github.com/google/uuid"
)

type fakeImporter struct {
	tenant uuid.UUID
	body   string
}

func (f *fakeImporter) ImportCSV(_ context.Context, tenantID uuid.UUID, r io.Reader) (leadsvc.ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return leadsvc.ImportResult{}, err
	}
	f.tenant = tenantID
	f.body = string(raw)
	return leadsvc.ImportResult{Imported: 2, Skipped: 1}, nil
}

type fakePurger struct {
	before time.Time
}

func (f *fakePurger) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 7, nil
}

type fakeMigrator struct {
	applied bool
}

func (f *fakeMigrator) Up(context.Context) error { f.applied = true; return nil }

func (f *fakeMigrator) Status(context.Context) ([]string, error) {
	return []string{"00001 applied 00001_init.sql"}, nil
}

type harness struct {
	leads    *fakeImporter
	purger   *fakePurger
	migrator *fakeMigrator
	opened   int
	closed   int
}

func newHarness() *harness {
	return &harness{leads: &fakeImporter{}, purger: &fakePurger{}, migrator: &fakeMigrator{}}
}

func (h *harness) open(context.Context) (*Backend, error) {
	h.opened++
	return &Backend{
		Leads:      h.leads,
		Deliveries: h.purger,
		Migrations: h.migrator,
		Close:      func() { h.closed++ },
	}, nil
}

func run(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test", h.open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	root := NewRootCmd("", newHarness().open)
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "import-leads", "purge-dedupe"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
	if root.Version != "dev" {
		t.Errorf("Version = %q", root.Version)
	}
}

func TestMigrate(t *testing.T) {
	h := newHarness()
	out, err := run(t, h, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !h.migrator.applied || !strings.Contains(out, "migrations applied") {
		t.Fatalf("applied=%v out=%q", h.migrator.applied, out)
	}
	if h.closed != 1 {
		t.Fatalf("backend closed %d times", h.closed)
	}

	out, err = run(t, h, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate status: %v", err)
	}
	if !strings.Contains(out, "00001 applied") {
		t.Fatalf("status output = %q", out)
	}
}

func TestImportLeads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	csv := "name,phone\nJane Doe,555-123-4567\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	tenant := uuid.New()

	h := newHarness()
	out, err := run(t, h, "import-leads", "--tenant", tenant.String(), "--file", path)
	if err != nil {
		t.Fatalf("import-leads: %v", err)
	}
	if h.leads.tenant != tenant || h.leads.body != csv {
		t.Fatalf("importer saw tenant=%s body=%q", h.leads.tenant, h.leads.body)
	}
	if !strings.Contains(out, "imported 2 leads, skipped 1 rows") {
		t.Fatalf("output = %q", out)
	}
}

func TestImportLeadsRejectsBadInputBeforeConnecting(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing flags", args: []string{"import-leads"}},
		{name: "tenant not a uuid", args: []string{"import-leads", "--tenant", "acme", "--file", "x.csv"}},
		{name: "file missing", args: []string{"import-leads", "--tenant", uuid.NewString(), "--file", filepath.Join(t.TempDir(), "nope.csv")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			if _, err := run(t, h, tt.args...); err == nil {
				t.Fatal("expected an error")
			}
			if h.opened != 0 {
				t.Fatalf("backend opened %d times", h.opened)
			}
		})
	}
}

func TestPurgeDedupe(t *testing.T) {
	h := newHarness()
	before := time.Now()
	out, err := run(t, h, "purge-dedupe", "--older-than", "1h")
	if err != nil {
		t.Fatalf("purge-dedupe: %v", err)
	}
	cutoff := h.purger.before
	if cutoff.After(before.Add(-time.Hour).Add(time.Second)) || cutoff.Before(before.Add(-time.Hour).Add(-time.Minute)) {
		t.Fatalf("cutoff = %s, started at %s", cutoff, before)
	}
	if !strings.Contains(out, "purged 7 expired claims") {
		t.Fatalf("output = %q", out)
	}
}

func TestOpenFailureSurfaces(t *testing.T) {
	boom := errors.New("no database")
	root := NewRootCmd("", func(context.Context) (*Backend, error) { return nil, boom })
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"migrate"})
	if err := root.Execute(); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
