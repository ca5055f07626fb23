package main

import (
	"fmt"

	"investor-matching/internal/common/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			zapLog, log := newLogger()
			defer func() { _ = zapLog.Sync() }()

			pg, err := openPostgres(cmd.Context(), retryPolicy(cfg.Retry))
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer func() { _ = pg.Close() }()

			applied, err := database.Migrate(cmd.Context(), pg.DB)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied", map[string]interface{}{"applied": applied, "count": len(applied)})
			return nil
		},
	}
}
