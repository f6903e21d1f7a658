package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/qualmon/internal/enrich"
	"github.com/steveyegge/qualmon/internal/history"
	"github.com/steveyegge/qualmon/internal/quality"
	"github.com/steveyegge/qualmon/internal/repl"
	"github.com/steveyegge/qualmon/internal/syntax"
	"github.com/steveyegge/qualmon/internal/vcs"
)

// errIssuesFound makes the process exit non-zero without printing more.
var errIssuesFound = errors.New("quality issues at or above the --fail-on severity")

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Check Go files and print a quality report",
	Long: `Check Go files or directories (default: the current directory).

Directories are walked for .go files, skipping vendor, .git, node_modules
and testdata. Each checked file is recorded in the learning history and,
unless disabled, in the SQLite run log.

Examples:
  # Check the whole module
  qualmon check ./...

  # Include tests and fail only on critical issues
  qualmon check --tests --fail-on critical internal/

  # Only files touched since the last commit
  qualmon check --changed

  # Ask a language model for extra findings
  qualmon check --enrich main.go`,
	RunE: func(cmd *cobra.Command, args []string) error {
		includeTests, _ := cmd.Flags().GetBool("tests")
		failOn, _ := cmd.Flags().GetString("fail-on")
		withEnrich, _ := cmd.Flags().GetBool("enrich")
		changed, _ := cmd.Flags().GetBool("changed")
		historyDB, _ := cmd.Flags().GetString("history-db")
		if !cmd.Flags().Changed("history-db") {
			historyDB = cfg.HistoryDB
		}

		threshold, failEnabled, err := parseFailOn(failOn)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		walk := syntax.DefaultWalkOptions()
		walk.IncludeTests = includeTests
		files, err := syntax.CollectFiles(expandPaths(args), walk)
		if err != nil {
			return err
		}
		if changed {
			files, err = onlyChanged(ctx, files)
			if err != nil {
				return err
			}
		}
		if len(files) == 0 {
			fmt.Println("No Go files found.")
			return nil
		}

		var opts []quality.Option
		if historyDB != "" {
			log, err := history.Open(historyDB)
			if err != nil {
				return fmt.Errorf("opening run log: %w", err)
			}
			defer func() { _ = log.Close() }()
			opts = append(opts, quality.WithObserver(historyObserver(ctx, log)))
		}

		engine := newEngine(opts...)
		failures, err := engine.CheckFiles(ctx, files)
		if err != nil {
			return err
		}
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, f := range failures {
			if errors.Is(f.Err, quality.ErrRead) {
				fmt.Fprintf(os.Stderr, "%s %v\n", yellow("Warning:"), &f)
			}
		}

		// Model findings are shown but never decide the exit status.
		report := engine.Report()
		shown := report
		if withEnrich {
			enricher, err := enrich.New(cfg.Enrichment, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s enrichment skipped: %v\n", yellow("Warning:"), err)
			} else if shown, err = enrichReport(ctx, enricher, report); err != nil {
				fmt.Fprintf(os.Stderr, "%s enrichment skipped: %v\n", yellow("Warning:"), err)
				shown = report
			}
		}

		fmt.Print(shown.Render(repl.ColorStyle()))
		fmt.Printf("Checked %d file(s) at %s\n", len(files), time.Now().Format(time.RFC3339))
		printSuggestions(engine)

		if failEnabled && exceeds(report, threshold) {
			return errIssuesFound
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().Bool("tests", false, "include _test.go files")
	checkCmd.Flags().String("fail-on", "important", "exit non-zero on issues at or above: critical, important, style, none")
	checkCmd.Flags().Bool("changed", false, "only check files changed since the last commit (git or jj)")
	checkCmd.Flags().Bool("enrich", false, "add findings from the Anthropic API (needs ANTHROPIC_API_KEY)")
	checkCmd.Flags().String("history-db", "", "SQLite run log (default from config; empty string disables)")
	rootCmd.AddCommand(checkCmd)
}

// expandPaths maps Go-style "./..." patterns onto directories and defaults
// to the current directory.
func expandPaths(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "..." {
			arg = "."
		}
		arg = strings.TrimSuffix(arg, "/...")
		if arg == "" {
			arg = "."
		}
		out = append(out, arg)
	}
	return out
}

// onlyChanged keeps the files the working copy has changed.
func onlyChanged(ctx context.Context, files []string) ([]string, error) {
	changed, err := vcs.ChangedFiles(ctx, ".")
	if err != nil {
		return nil, fmt.Errorf("listing changed files: %w", err)
	}
	abs := func(path string) string {
		if a, err := filepath.Abs(path); err == nil {
			return a
		}
		return filepath.Clean(path)
	}
	keep := make(map[string]bool, len(changed))
	for _, path := range changed {
		keep[abs(path)] = true
	}
	var out []string
	for _, path := range files {
		if keep[abs(path)] {
			out = append(out, path)
		}
	}
	return out, nil
}

// parseFailOn maps a --fail-on value to the least severe severity that
// still fails the run. ERROR always counts as at or above it.
func parseFailOn(s string) (quality.Severity, bool, error) {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return 0, false, nil
	}
	sev, err := quality.ParseSeverity(s)
	if err != nil || sev == quality.SeverityError {
		return 0, false, fmt.Errorf("invalid --fail-on %q: want critical, important, style or none", s)
	}
	return sev, true, nil
}

// exceeds reports whether the report holds an issue at or above threshold.
// Lower severity values are more severe.
func exceeds(report quality.Report, threshold quality.Severity) bool {
	for _, sev := range quality.Severities {
		if sev <= threshold && report.Count(sev) > 0 {
			return true
		}
	}
	return false
}

func historyObserver(ctx context.Context, log *history.Log) func(quality.Event) {
	return func(ev quality.Event) {
		run := history.Run{
			ID:         ev.CheckID,
			Path:       ev.Path,
			CheckedAt:  ev.CheckedAt,
			Issues:     ev.Issues,
			Stats:      ev.Stats,
			Confidence: ev.Confidence,
		}
		if err := log.Append(ctx, run); err != nil {
			logger.Warn("run not logged", "path", ev.Path, "error", err)
		}
	}
}

// enrichReport returns a copy of report with model findings appended to
// every file. Files that fail are logged and left as they are. The input
// report is not modified.
func enrichReport(ctx context.Context, enricher *enrich.Enricher, report quality.Report) (quality.Report, error) {
	out := report
	out.Files = make([]quality.FileReport, len(report.Files))
	for i, f := range report.Files {
		out.Files[i] = quality.FileReport{Path: f.Path, Issues: append([]quality.Issue(nil), f.Issues...)}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range out.Files {
		file := &out.Files[i]
		g.Go(func() error {
			src, err := os.ReadFile(file.Path)
			if err != nil {
				logger.Warn("enrichment read failed", "path", file.Path, "error", err)
				return nil
			}
			extra, err := enricher.Enrich(gctx, file.Path, src, file.Issues)
			if err != nil {
				logger.Warn("enrichment failed", "path", file.Path, "error", err)
				return nil
			}
			file.Issues = append(file.Issues, extra...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return out, nil
}

func printSuggestions(engine *quality.Engine) {
	var changed []string
	for _, adj := range engine.Store().Adjustments() {
		if adj.Changed() {
			changed = append(changed, fmt.Sprintf("%s %g -> %g", adj.Parameter, adj.Current, adj.Suggested))
		}
	}
	if len(changed) == 0 {
		return
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s %s\n", cyan("Suggested thresholds:"), strings.Join(changed, ", "))
}
