package main

import (
	"fmt"

	"ztfalerts/internal/repair"

	"github.com/spf13/cobra"
)

var (
	repairDates  []string
	repairDryRun bool
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Re-fetch stamps missing for alerts already in the partition logs",
	Long: `Scan every date=YYYY-MM-DD partition (or only those given with --date),
read alerts.jsonl and download the stamps of any object that is missing one
of its three PNG files in the partition's image directory.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().StringSliceVar(&repairDates, "date", nil, "Partition date(s) to repair, YYYY-MM-DD")
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "Report missing stamps without downloading")
}

func runRepair(cmd *cobra.Command, args []string) error {
	reconciler := repair.NewReconciler(layout(), newFetcher(), repair.Options{Dates: repairDates, DryRun: repairDryRun})
	report, err := reconciler.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "partitions=%d lines=%d malformed=%d missing=%d refetched=%d failed=%d\n",
		report.Partitions, report.Lines, report.Malformed, report.Missing, report.Refetched, report.Failed)
	return nil
}
