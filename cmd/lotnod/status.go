package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database health and record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== lotno status ==="))
		fmt.Printf("%s\n", yellow("Storage:"))
		fmt.Printf("  Backend:  %s\n", cfg.StorageBackend)
		if cfg.StorageBackend == "sqlite" {
			fmt.Printf("  Path:     %s\n", cfg.SQLitePath)
		} else {
			fmt.Printf("  Database: %s@%s:%d/%s\n",
				cfg.PostgresUser, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDatabase)
		}

		store, err := openStorage(ctx, cfg)
		if err != nil {
			fmt.Printf("  Health:   %s %v\n\n", red("✗"), err)
			return fmt.Errorf("storage unavailable")
		}
		defer store.Close()

		stats, err := store.GetStatistics(ctx)
		if err != nil {
			fmt.Printf("  Health:   %s %v\n\n", red("✗"), err)
			return fmt.Errorf("failed to read statistics: %w", err)
		}
		fmt.Printf("  Health:   %s connected\n\n", green("✓"))

		fmt.Printf("%s\n", yellow("Records:"))
		fmt.Printf("  Categories:    %d\n", stats.Categories)
		fmt.Printf("  Documents:     %d\n", stats.Documents)
		fmt.Printf("  Batches:       %d (%d verified)\n", stats.Batches, stats.VerifiedBatches)
		fmt.Printf("  Scan records:  %d (%d matched)\n", stats.ScanRecords, stats.MatchedScanRecords)
		fmt.Println()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
