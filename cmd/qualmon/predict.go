package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/qualmon/internal/repl"
)

var predictCmd = &cobra.Command{
	Use:   "predict <file>",
	Short: "Forecast likely issues from the learning history",
	Long: `Print the issue kinds the learning history has seen often enough to
predict, together with how familiar the file's lines are. The file is
not checked and nothing is recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		engine := newEngine()
		return repl.WritePredictions(os.Stdout, engine.Predict(src), engine.Store().Familiarity(src))
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
}
