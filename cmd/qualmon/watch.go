package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/qualmon/internal/quality"
	"github.com/steveyegge/qualmon/internal/repl"
	"github.com/steveyegge/qualmon/internal/syntax"
	"github.com/steveyegge/qualmon/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Re-check Go files as they change",
	Long: `Watch directories (default: the current directory) and check every Go
file shortly after it is written. Each check is recorded in the learning
history and its issues are printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		includeTests, _ := cmd.Flags().GetBool("tests")

		roots := args
		if len(roots) == 0 {
			roots = []string{"."}
		}
		walk := syntax.DefaultWalkOptions()
		walk.IncludeTests = includeTests

		engine := newEngine()
		style := repl.ColorStyle()
		check := func(path string) {
			if err := engine.CheckFile(path); err != nil {
				if errors.Is(err, quality.ErrRead) {
					// Removed or renamed before the debounce fired
					logger.Debug("changed file not readable", "path", path, "error", err)
					return
				}
				logger.Warn("check failed", "path", path, "error", err)
				return
			}
			issues, _ := engine.Issues(path)
			report := quality.Report{
				Title:      time.Now().Format("15:04:05"),
				Files:      []quality.FileReport{{Path: path, Issues: issues}},
				Confidence: engine.Store().Confidence(),
			}
			fmt.Print(report.Render(style))
		}

		w, err := watcher.New(watcher.Config{
			Roots:    roots,
			Debounce: cfg.WatchDebounce,
			Walk:     walk,
		}, check, logger)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := w.Start(ctx); err != nil {
			return err
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s %v (Ctrl+C to stop)\n", cyan("Watching"), roots)

		<-ctx.Done()
		w.Stop()
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("tests", false, "include _test.go files")
	rootCmd.AddCommand(watchCmd)
}
