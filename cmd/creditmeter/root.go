package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gatewaylabs/creditmeter/adapters/sqlite"
	"github.com/gatewaylabs/creditmeter/config"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "creditmeter",
	Short: "Usage metering and credit enforcement for hosted chat apps",
	Long: `Creditmeter decides, per inbound chat request, whether the request
may proceed: prepaid credits against per-model costs, daily message caps
for anonymous and no-credit users, and daily/monthly token and cost
limits.

Quick start:
  creditmeter serve     # Start the API server

Management:
  creditmeter limits    # Inspect and configure usage limits
  creditmeter usage     # View usage statistics
  creditmeter validate  # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "creditmeter.yaml", "config file path")
}

// openDatabase opens the configured database for management commands.
func openDatabase() (*sqlite.DB, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
