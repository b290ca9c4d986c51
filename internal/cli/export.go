package cli

import (
	"fmt"
	"os"

	"campus-quiz-service/internal/config"
	"campus-quiz-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewExportCmd dumps a quiz's submission results as CSV to stdout.
func NewExportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <quiz-id>",
		Short: "Export quiz results as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			ctx := cmd.Context()
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			return postgres.NewResultsReader(pool).ExportCSV(ctx, args[0], os.Stdout)
		},
	}
}
