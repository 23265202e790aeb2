package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newImportLeadsCmd(open Opener) *cobra.Command {
	var tenant, file string

	cmd := &cobra.Command{
		Use:   "import-leads",
		Short: "Import leads from a CSV file (name, phone, interest, notes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("--tenant must be a UUID: %w", err)
			}

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			return withBackend(cmd, open, func(b *Backend) error {
				result, err := b.Leads.ImportCSV(cmd.Context(), tenantID, f)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d leads, skipped %d rows\n", result.Imported, result.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant (user) id the leads belong to")
	cmd.Flags().StringVar(&file, "file", "", "Path to the CSV file")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
