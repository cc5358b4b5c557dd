package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatewaylabs/creditmeter/adapters/sqlite"
	"github.com/gatewaylabs/creditmeter/domain/usage"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "View usage statistics",
	Long: `View usage statistics for a principal.

Examples:
  creditmeter usage summary --user=user_123
  creditmeter usage recent --user=user_123 --limit=20`,
}

var usageSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show daily and monthly totals",
	RunE:  runUsageSummary,
}

var usageRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent usage events",
	RunE:  runUsageRecent,
}

var (
	usageUserID string
	usageLimit  int
)

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.AddCommand(usageSummaryCmd)
	usageCmd.AddCommand(usageRecentCmd)

	usageSummaryCmd.Flags().StringVar(&usageUserID, "user", "", "user ID")
	usageSummaryCmd.MarkFlagRequired("user")

	usageRecentCmd.Flags().StringVar(&usageUserID, "user", "", "user ID")
	usageRecentCmd.Flags().IntVar(&usageLimit, "limit", 20, "number of events to show")
	usageRecentCmd.MarkFlagRequired("user")
}

func runUsageSummary(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewUsageStore(db)
	now := time.Now().UTC()

	totals, err := store.Totals(context.Background(), usageUserID,
		usage.DayStart(now), usage.MonthStart(now))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "User:\t%s\n", usageUserID)
	fmt.Fprintf(w, "Daily tokens:\t%d\n", totals.DailyTokens)
	fmt.Fprintf(w, "Monthly tokens:\t%d\n", totals.MonthlyTokens)
	fmt.Fprintf(w, "Daily cost:\t%.4f\n", totals.DailyCost)
	fmt.Fprintf(w, "Monthly cost:\t%.4f\n", totals.MonthlyCost)
	return w.Flush()
}

func runUsageRecent(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewUsageStore(db)
	events, err := store.Recent(context.Background(), usageUserID, usageLimit)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("No usage recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMODEL\tIN\tOUT\tTOTAL\tCOST")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.4f\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.ModelID, e.InputTokens, e.OutputTokens, e.TotalTokens, e.EstimatedCost)
	}
	return w.Flush()
}
