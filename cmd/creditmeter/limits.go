package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gatewaylabs/creditmeter/adapters/sqlite"
	"github.com/gatewaylabs/creditmeter/domain/limits"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Inspect and configure usage limits",
	Long: `Inspect and configure usage-limit rows.

A row is scoped to a user (--user), or global when no scope is given.
Setting a limit deactivates the previously active row for the same scope.

Examples:
  creditmeter limits get
  creditmeter limits get --user=user_123
  creditmeter limits set --daily-tokens=100000 --monthly-tokens=2000000
  creditmeter limits set --user=user_123 --daily-cost=25
  creditmeter limits deactivate --id=<row-id>`,
}

var limitsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the effective limit for a scope",
	RunE:  runLimitsGet,
}

var limitsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace the active limit row for a scope",
	RunE:  runLimitsSet,
}

var limitsDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate a limit row",
	RunE:  runLimitsDeactivate,
}

var (
	limitsUserID        string
	limitsDailyTokens   int64
	limitsMonthlyTokens int64
	limitsDailyCost     float64
	limitsMonthlyCost   float64
	limitsRPM           int
	limitsCurrency      string
	limitsRowID         string
)

func init() {
	rootCmd.AddCommand(limitsCmd)

	limitsCmd.AddCommand(limitsGetCmd)
	limitsCmd.AddCommand(limitsSetCmd)
	limitsCmd.AddCommand(limitsDeactivateCmd)

	limitsGetCmd.Flags().StringVar(&limitsUserID, "user", "", "user ID (empty = global)")

	limitsSetCmd.Flags().StringVar(&limitsUserID, "user", "", "user ID (empty = global)")
	limitsSetCmd.Flags().Int64Var(&limitsDailyTokens, "daily-tokens", 0, "daily token cap")
	limitsSetCmd.Flags().Int64Var(&limitsMonthlyTokens, "monthly-tokens", 0, "monthly token cap")
	limitsSetCmd.Flags().Float64Var(&limitsDailyCost, "daily-cost", 0, "daily cost cap")
	limitsSetCmd.Flags().Float64Var(&limitsMonthlyCost, "monthly-cost", 0, "monthly cost cap")
	limitsSetCmd.Flags().IntVar(&limitsRPM, "rpm", 0, "requests per minute (advisory)")
	limitsSetCmd.Flags().StringVar(&limitsCurrency, "currency", "", "cost currency")

	limitsDeactivateCmd.Flags().StringVar(&limitsRowID, "id", "", "limit row ID")
	limitsDeactivateCmd.MarkFlagRequired("id")
}

func runLimitsGet(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewLimitStore(db)
	ctx := context.Background()

	var l limits.Limit
	var found bool
	source := "built-in default"

	if limitsUserID != "" {
		l, found, err = store.GetForUser(ctx, limitsUserID)
		if err != nil {
			return err
		}
		if found {
			source = "user row"
		}
	}
	if !found {
		l, found, err = store.GetGlobal(ctx)
		if err != nil {
			return err
		}
		if found {
			source = "global row"
		}
	}
	if !found {
		l = limits.Default()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Source:\t%s\n", source)
	if l.ID != "" {
		fmt.Fprintf(w, "ID:\t%s\n", l.ID)
	}
	fmt.Fprintf(w, "Daily tokens:\t%d\n", l.DailyTokens)
	fmt.Fprintf(w, "Monthly tokens:\t%d\n", l.MonthlyTokens)
	fmt.Fprintf(w, "Daily cost:\t%.2f %s\n", l.DailyCost, l.Currency)
	fmt.Fprintf(w, "Monthly cost:\t%.2f %s\n", l.MonthlyCost, l.Currency)
	fmt.Fprintf(w, "Requests/min:\t%d\n", l.RequestsPerMinute)
	return w.Flush()
}

func runLimitsSet(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	// Unset flags inherit from the built-in default so a partial set still
	// produces a complete row.
	l := limits.Default()
	l.ID = uuid.New().String()
	l.UserID = limitsUserID
	if limitsDailyTokens > 0 {
		l.DailyTokens = limitsDailyTokens
	}
	if limitsMonthlyTokens > 0 {
		l.MonthlyTokens = limitsMonthlyTokens
	}
	if limitsDailyCost > 0 {
		l.DailyCost = limitsDailyCost
	}
	if limitsMonthlyCost > 0 {
		l.MonthlyCost = limitsMonthlyCost
	}
	if limitsRPM > 0 {
		l.RequestsPerMinute = limitsRPM
	}
	if limitsCurrency != "" {
		l.Currency = limitsCurrency
	}
	l.Active = true
	l.CreatedAt = time.Now().UTC()
	l.UpdatedAt = l.CreatedAt

	store := sqlite.NewLimitStore(db)
	if err := store.Upsert(context.Background(), l); err != nil {
		return fmt.Errorf("upsert limit: %w", err)
	}

	scope := "global"
	if l.UserID != "" {
		scope = "user " + l.UserID
	}
	fmt.Printf("Limit %s set for %s\n", l.ID, scope)
	return nil
}

func runLimitsDeactivate(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewLimitStore(db)
	if err := store.Deactivate(context.Background(), limitsRowID); err != nil {
		return fmt.Errorf("deactivate limit: %w", err)
	}

	fmt.Printf("Limit %s deactivated\n", limitsRowID)
	return nil
}
