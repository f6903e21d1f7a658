// Command qualmon checks Go source files for quality issues and learns
// from the results over time.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/qualmon/internal/config"
	"github.com/steveyegge/qualmon/internal/learning"
	"github.com/steveyegge/qualmon/internal/quality"
)

var (
	configPath string
	statePath  string
	logLevel   string
	noColor    bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qualmon",
	Short: "Adaptive code quality monitor for Go",
	Long: `qualmon runs structural, documentation, error-handling and style checks over
Go source files and keeps a learning history of what it has seen.

The learning history suggests threshold changes once it is confident and
forecasts the issues a file is likely to have.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		if noColor {
			color.NoColor = true
		}

		// config init writes the defaults and must not fail on a bad file
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			cfg = config.Default()
			return nil
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("state") {
			cfg.StatePath = statePath
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", learning.DefaultStatePath, "learning state file (empty keeps state in memory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return level, nil
}

// newEngine opens the learning store and builds an engine from the loaded
// configuration.
func newEngine(opts ...quality.Option) *quality.Engine {
	store := learning.Open(cfg.StatePath, cfg.LearningConfig(), logger)
	opts = append([]quality.Option{
		quality.WithLogger(logger),
		quality.WithWorkers(cfg.Workers),
		quality.WithTitle(moduleTitle(".")),
	}, opts...)
	return quality.NewEngine(cfg.Config, store, opts...)
}
