// lotnod is the production-batch records service: it allocates sequential
// document numbers per category and date, and reconciles scanned label text
// against the week's pending batches.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adiwp/lotno/internal/config"
	"github.com/adiwp/lotno/internal/storage"
	"github.com/adiwp/lotno/internal/storage/postgres"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lotnod",
	Short: "Production-batch records service",
	Long: `lotnod manages production-batch records: sequential document number
allocation per category and issue date, and reconciliation of scanned label
text against the current week's pending batches.

Configuration comes from environment variables (LOTNO_*) with an optional
YAML file via --config.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// openStorage builds the configured backend. The sqlite path applies its
// schema on open; the postgres path expects `lotnod migrate` to have run.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "postgres":
		return postgres.New(ctx, pgConfig(cfg))
	default:
		return storage.NewStorage(ctx, &storage.Config{
			Backend:      cfg.StorageBackend,
			Path:         cfg.SQLitePath,
			NumberPrefix: cfg.NumberPrefix,
		})
	}
}

func pgConfig(cfg *config.Config) *postgres.Config {
	pc := postgres.DefaultConfig()
	pc.Host = cfg.PostgresHost
	pc.Port = cfg.PostgresPort
	pc.Database = cfg.PostgresDatabase
	pc.User = cfg.PostgresUser
	pc.Password = cfg.PostgresPassword
	pc.SSLMode = cfg.PostgresSSLMode
	pc.NumberPrefix = cfg.NumberPrefix
	return pc
}
