package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/qualmon/internal/learning"
	"github.com/steveyegge/qualmon/internal/repl"
)

var learningCmd = &cobra.Command{
	Use:   "learning",
	Short: "Show issue patterns and threshold suggestions",
	Long: `Print what the learning history has accumulated: issue pattern counts,
the current threshold suggestions and, with --patterns, the most common
clean lines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("patterns")
		file, _ := cmd.Flags().GetString("file")

		store := learning.Open(cfg.StatePath, cfg.LearningConfig(), logger)
		if file != "" {
			return printFileHistory(store, file)
		}
		return repl.WriteLearning(os.Stdout, store.Snapshot(), store.Confidence(), top)
	},
}

func init() {
	learningCmd.Flags().Int("patterns", 0, "also list the N most frequent clean patterns")
	learningCmd.Flags().String("file", "", "show the effectiveness records of one file")
	rootCmd.AddCommand(learningCmd)
}

func printFileHistory(store *learning.Store, path string) error {
	records := store.History(path)
	if len(records) == 0 {
		fmt.Printf("No records for %s\n", path)
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %s  issues=%d  loc=%d  confidence=%.2f\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04:05"), rec.CheckID,
			rec.IssuesFound, rec.Stats.LinesOfCode, rec.Confidence)
	}
	return nil
}
