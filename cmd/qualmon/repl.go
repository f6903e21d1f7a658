package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/steveyegge/qualmon/internal/repl"
	"github.com/steveyegge/qualmon/internal/syntax"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start interactive REPL shell",
	Long: `Start an interactive shell that shares one engine and learning history
across commands.

Type 'help' in the REPL for available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		historyFile, _ := cmd.Flags().GetString("history-file")

		style := repl.ColorStyle()
		r, err := repl.New(&repl.Config{
			Engine:      newEngine(),
			Walk:        syntax.DefaultWalkOptions(),
			Style:       &style,
			Out:         os.Stdout,
			HistoryFile: historyFile,
		})
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		return r.Run(ctx)
	},
}

func init() {
	replCmd.Flags().String("history-file", "", "persist line history to this file")
	rootCmd.AddCommand(replCmd)
}
