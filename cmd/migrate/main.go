// Command migrate manages the recommendations schema behind DATABASE_URL.
//
//	go run ./cmd/migrate            # apply pending migrations
//	go run ./cmd/migrate down       # roll back the latest migration
//	go run ./cmd/migrate version    # print the applied version
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"advisor-backend/internal/shared/config"
	"advisor-backend/internal/shared/storage/db"
	"advisor-backend/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply pending database migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withDB(func(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
			if err := db.RunMigrations(ctx, conn, dialect); err != nil {
				return err
			}
			telemetry.Info("migrate.up", map[string]any{"dialect": string(dialect)})
			return nil
		}),
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withDB(func(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
				if err := db.RollbackMigration(ctx, conn, dialect); err != nil {
					return err
				}
				telemetry.Info("migrate.down", map[string]any{"dialect": string(dialect)})
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withDB(func(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
				v, err := db.MigrationVersion(ctx, conn, dialect)
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			}),
		},
	)
	return root
}

// withDB connects to DATABASE_URL for the duration of one subcommand.
func withDB(fn func(ctx context.Context, conn *sql.DB, dialect db.Dialect) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		conn, dialect, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
		if err != nil {
			telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
			return err
		}
		defer conn.Close()
		if err := fn(ctx, conn, dialect); err != nil {
			telemetry.Error("migrate.failed", map[string]any{"command": cmd.Name(), "error": err.Error()})
			return err
		}
		return nil
	}
}
