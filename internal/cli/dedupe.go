package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPurgeDedupeCmd(open Opener) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-dedupe",
		Short: "Delete webhook delivery claims that expired before now minus --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			cutoff := time.Now().Add(-olderThan)
			return withBackend(cmd, open, func(b *Backend) error {
				deleted, err := b.Deliveries.PurgeExpired(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired claims\n", deleted)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only purge claims that expired at least this long ago")
	return cmd
}
