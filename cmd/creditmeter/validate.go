package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatewaylabs/creditmeter/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		fmt.Println("Configuration valid")
		fmt.Printf("  Database: %s\n", cfg.Database.DSN)
		fmt.Printf("  Ledger:   %s\n", cfg.Ledger.Provider)
		fmt.Printf("  Models:   %d\n", len(cfg.Models))
		fmt.Printf("  Server:   %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
