// Package repl provides the interactive qualmon shell and the terminal
// rendering shared with the CLI.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/steveyegge/qualmon/internal/quality"
	"github.com/steveyegge/qualmon/internal/syntax"
)

// errExit signals the loop to stop.
var errExit = errors.New("exit")

// REPL represents the interactive shell
type REPL struct {
	engine   *quality.Engine
	walk     syntax.WalkOptions
	style    quality.Style
	out      io.Writer
	history  string
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Engine *quality.Engine
	Walk   syntax.WalkOptions

	// Style decorates reports. Default: PlainStyle
	Style *quality.Style

	// Out receives command output. Default: os.Stdout
	Out io.Writer

	// HistoryFile persists line history; empty keeps it in memory
	HistoryFile string
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	style := quality.PlainStyle()
	if cfg.Style != nil {
		style = *cfg.Style
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	r := &REPL{
		engine:   cfg.Engine,
		walk:     cfg.Walk,
		style:    style,
		out:      out,
		history:  cfg.HistoryFile,
		ctx:      context.Background(),
		commands: make(map[string]CommandHandler),
	}

	// Register built-in commands
	r.registerCommands()

	return r, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("qualmon> "),
		HistoryFile:       r.history,
		AutoComplete:      r.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.rl = rl

	r.printWelcome()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				// Ctrl+C - just show prompt again
				continue
			} else if err == io.EOF {
				// Ctrl+D - exit
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		if err := r.processInput(strings.TrimSpace(line)); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := parts[0]
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.out, "%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	r.commands["check"] = r.cmdCheck
	r.commands["report"] = r.cmdReport
	r.commands["predict"] = r.cmdPredict
	r.commands["learning"] = r.cmdLearning
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
}

func (r *REPL) completer() *readline.PrefixCompleter {
	files := readline.PcItemDynamic(func(line string) []string {
		fields := strings.Fields(line)
		dir := "."
		if len(fields) > 1 && !strings.HasSuffix(line, " ") {
			if i := strings.LastIndex(fields[len(fields)-1], "/"); i >= 0 {
				dir = fields[len(fields)-1][:i+1]
			}
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}
		var names []string
		for _, e := range entries {
			name := e.Name()
			if dir != "." {
				name = dir + name
			}
			if e.IsDir() {
				names = append(names, name+"/")
			} else if syntax.IsSourceFile(name, r.walk) {
				names = append(names, name)
			}
		}
		return names
	})

	return readline.NewPrefixCompleter(
		readline.PcItem("check", files),
		readline.PcItem("predict", files),
		readline.PcItem("report"),
		readline.PcItem("learning"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("qualmon interactive shell"))
	fmt.Fprintf(r.out, "Learning confidence: %.2f\n\n", r.engine.Store().Confidence())
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")
	fmt.Fprintln(r.out)
}

// cmdCheck checks files or directories and prints their issues
func (r *REPL) cmdCheck(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: check <file|dir>...")
	}
	files, err := syntax.CollectFiles(args, r.walk)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(r.out, "No Go files found.")
		return nil
	}

	failures, err := r.engine.CheckFiles(r.ctx, files)
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintf(r.out, "%s %v\n", color.New(color.FgYellow).Sprint("Skipped:"), &f)
	}

	checked := make(map[string]bool, len(files))
	for _, f := range files {
		checked[f] = true
	}
	report := r.engine.Report()
	kept := report.Files[:0]
	for _, f := range report.Files {
		if checked[f.Path] {
			kept = append(kept, f)
		}
	}
	report.Files = kept
	fmt.Fprint(r.out, report.Render(r.style))
	return nil
}

// cmdReport prints the report for every file checked in this session
func (r *REPL) cmdReport(args []string) error {
	fmt.Fprint(r.out, r.engine.Report().Render(r.style))
	return nil
}

// cmdPredict forecasts issues for a file without checking it
func (r *REPL) cmdPredict(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: predict <file>")
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	return WritePredictions(r.out, r.engine.Predict(src), r.engine.Store().Familiarity(src))
}

// cmdLearning shows what the store has learned
func (r *REPL) cmdLearning(args []string) error {
	store := r.engine.Store()
	return WriteLearning(r.out, store.Snapshot(), store.Confidence(), 0)
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"check <paths...>", "Check files or directories"},
		{"report", "Show the report for everything checked so far"},
		{"predict <file>", "Forecast likely issues from learned patterns"},
		{"learning", "Show issue patterns and threshold suggestions"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the REPL"},
	}

	green := color.New(color.FgGreen).SprintFunc()
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %s  %s\n", green(fmt.Sprintf("%-18s", cmd.name)), cmd.desc)
	}
	fmt.Fprintln(r.out)
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	return errExit
}
