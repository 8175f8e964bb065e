package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/adiwp/lotno/internal/storage/postgres"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations (postgres backend)",
	Long: `Apply the embedded schema migrations to the configured PostgreSQL
database. The sqlite backend applies its schema automatically on open and
does not need this command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.StorageBackend != "postgres" {
			fmt.Println("sqlite backend applies its schema on open; nothing to do")
			return nil
		}

		m, err := postgres.NewMigrator(pgConfig(cfg).MigrateURL())
		if err != nil {
			return fmt.Errorf("failed to create migrator: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()

		if migrateDown {
			if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migration down failed: %w", err)
			}
			fmt.Printf("%s migrations rolled back\n", green("✓"))
			return nil
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration up failed: %w", err)
		}

		version, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		if dirty {
			return fmt.Errorf("database is in a dirty migration state at version %d", version)
		}

		fmt.Printf("%s schema at version %d\n", green("✓"), version)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "roll all migrations back")
	rootCmd.AddCommand(migrateCmd)
}
