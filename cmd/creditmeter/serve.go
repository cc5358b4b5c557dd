package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gatewaylabs/creditmeter/bootstrap"
	"github.com/gatewaylabs/creditmeter/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the metering API server",
	Long: `Start the creditmeter API server.

The server will:
  - Load configuration from creditmeter.yaml (or --config)
  - Or load configuration from CREDITMETER_* environment variables
  - Connect to the database and run migrations
  - Serve the evaluation and usage-recording API

Environment variables (for Docker deployments):
  CREDITMETER_DATABASE_DSN       - Database path (default: creditmeter.db)
  CREDITMETER_SERVER_PORT        - Server port (default: 8080)
  CREDITMETER_LEDGER_PROVIDER    - Ledger: stripe, remote, static
  CREDITMETER_STRIPE_SECRET_KEY  - Stripe API key when provider is stripe
  CREDITMETER_LOG_LEVEL          - Log level: debug, info, warn, error

Examples:
  creditmeter serve
  creditmeter serve --config /etc/creditmeter/config.yaml
  creditmeter serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
