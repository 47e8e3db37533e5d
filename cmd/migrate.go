package cmd

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/congsh/PeerHaiguitang/internal/application/config"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/postgres/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		db, err := sql.Open("pgx", cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()

		goose.SetBaseFS(migrations.MigrationsFS)

		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}

		if err := goose.Up(db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
