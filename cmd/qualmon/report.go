package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/qualmon/internal/history"
	"github.com/steveyegge/qualmon/internal/repl"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render the latest check of every file from the run log",
	Long: `Print the quality report rebuilt from the SQLite run log, using the most
recent run of every path. With --trend, print the issue counts of one file
over its recorded runs instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		historyDB, _ := cmd.Flags().GetString("history-db")
		if !cmd.Flags().Changed("history-db") {
			historyDB = cfg.HistoryDB
		}
		if historyDB == "" {
			return fmt.Errorf("no run log configured (set history_db or --history-db)")
		}
		trend, _ := cmd.Flags().GetString("trend")
		limit, _ := cmd.Flags().GetInt("limit")

		log, err := history.Open(historyDB)
		if err != nil {
			return fmt.Errorf("opening run log: %w", err)
		}
		defer func() { _ = log.Close() }()

		ctx := context.Background()
		if trend != "" {
			return printTrend(ctx, log, trend, limit)
		}

		report, err := log.Report(ctx, moduleTitle("."))
		if err != nil {
			return err
		}
		if len(report.Files) == 0 {
			fmt.Println("No runs recorded yet. Run 'qualmon check' first.")
			return nil
		}
		fmt.Print(report.Render(repl.ColorStyle()))
		return nil
	},
}

func init() {
	reportCmd.Flags().String("history-db", "", "SQLite run log (default from config)")
	reportCmd.Flags().String("trend", "", "show the run history of one file")
	reportCmd.Flags().Int("limit", 10, "most recent runs shown with --trend (0 = all)")
	rootCmd.AddCommand(reportCmd)
}

func printTrend(ctx context.Context, log *history.Log, path string, limit int) error {
	runs, err := log.Trend(ctx, path, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("No runs recorded for %s\n", path)
		return nil
	}
	return repl.WriteTrend(os.Stdout, runs)
}
