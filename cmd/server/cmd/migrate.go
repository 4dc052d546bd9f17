package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/social-events/internal/config"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"github.com/Togather-Foundation/social-events/internal/storage/mongostore"
	"github.com/spf13/cobra"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "One-shot data normalization tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "joined-ids",
		Short: "Rewrite legacy hex-string joined-event ids as ObjectIDs",
		Long: `Rewrite joined-event records stored under a 24-character hex string _id
so that they are keyed by the equivalent ObjectID. Other string ids are left
alone. The task is idempotent and safe to re-run after an interruption.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := config.NewLogger(cfg.Logging)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			store, err := mongostore.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer func() { _ = store.Close(context.Background()) }()

			converted, err := joined.NewService(store.Joined()).NormalizeIDs(ctx)
			if err != nil {
				return fmt.Errorf("normalize joined ids (%d converted before failure): %w", converted, err)
			}
			logger.Info().Int64("converted", converted).Msg("joined ids normalized")
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d joined-event ids\n", converted)
			return nil
		},
	})

	return cmd
}
