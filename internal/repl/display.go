package repl

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/steveyegge/qualmon/internal/history"
	"github.com/steveyegge/qualmon/internal/learning"
	"github.com/steveyegge/qualmon/internal/quality"
)

// ColorStyle decorates reports for a terminal. fatih/color drops the escape
// codes on its own when color.NoColor is set.
func ColorStyle() quality.Style {
	return quality.Style{
		Header: paint(color.FgCyan, color.Bold),
		File:   paint(color.Bold),
		Severity: map[quality.Severity]func(string) string{
			quality.SeverityError:     paint(color.FgRed, color.Bold),
			quality.SeverityCritical:  paint(color.FgRed),
			quality.SeverityImportant: paint(color.FgYellow),
			quality.SeverityStyle:     paint(color.FgBlue),
		},
		OK:        paint(color.FgGreen),
		Secondary: paint(color.Faint),
	}
}

// paint adapts a color to the string decorator quality.Style expects.
func paint(attrs ...color.Attribute) func(string) string {
	c := color.New(attrs...)
	return func(s string) string { return c.Sprint(s) }
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleRounded),
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)
}

// WriteLearning prints the issue patterns, threshold suggestions and the most
// frequent clean patterns of a learning snapshot.
func WriteLearning(w io.Writer, state learning.State, confidence float64, topPatterns int) error {
	fmt.Fprintf(w, "Learning confidence: %.2f\n", confidence)
	fmt.Fprintf(w, "Files tracked: %d, clean patterns: %d\n\n", len(state.Effectiveness), len(state.Patterns))

	if len(state.IssuePatterns) == 0 {
		fmt.Fprintln(w, "No issue patterns recorded yet.")
	} else {
		keys := sortedByCount(state.IssuePatterns)
		t := newTable(w)
		t.Header([]string{"Issue pattern", "Count"})
		for _, key := range keys {
			if err := t.Append([]string{key, fmt.Sprint(state.IssuePatterns[key])}); err != nil {
				return fmt.Errorf("building issue table: %w", err)
			}
		}
		if err := t.Render(); err != nil {
			return fmt.Errorf("rendering issue table: %w", err)
		}
	}
	fmt.Fprintln(w)

	if len(state.ThresholdAdjustments) == 0 {
		fmt.Fprintln(w, "No threshold suggestions.")
	} else {
		t := newTable(w)
		t.Header([]string{"Parameter", "Current", "Suggested", "Confidence"})
		for _, adj := range state.ThresholdAdjustments {
			suggested := fmt.Sprintf("%g", adj.Suggested)
			if !adj.Changed() {
				suggested = "-"
			}
			row := []string{adj.Parameter, fmt.Sprintf("%g", adj.Current), suggested, fmt.Sprintf("%.2f", adj.Confidence)}
			if err := t.Append(row); err != nil {
				return fmt.Errorf("building adjustment table: %w", err)
			}
		}
		if err := t.Render(); err != nil {
			return fmt.Errorf("rendering adjustment table: %w", err)
		}
	}

	if topPatterns <= 0 || len(state.Patterns) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	keys := sortedByCount(state.Patterns)
	if len(keys) > topPatterns {
		keys = keys[:topPatterns]
	}
	t := newTable(w)
	t.Header([]string{"Clean pattern", "Count"})
	for _, key := range keys {
		if err := t.Append([]string{key, fmt.Sprint(state.Patterns[key])}); err != nil {
			return fmt.Errorf("building pattern table: %w", err)
		}
	}
	if err := t.Render(); err != nil {
		return fmt.Errorf("rendering pattern table: %w", err)
	}
	return nil
}

// WritePredictions prints advisory predictions and the familiarity score.
func WritePredictions(w io.Writer, predictions []learning.PredictedIssue, familiarity float64) error {
	fmt.Fprintf(w, "Familiarity: %.2f\n", familiarity)
	if len(predictions) == 0 {
		fmt.Fprintln(w, "No predictions (not enough history).")
		return nil
	}

	t := newTable(w)
	t.Header([]string{"Severity", "Category", "Seen", "Confidence"})
	for _, p := range predictions {
		row := []string{p.Severity, p.Category, fmt.Sprint(p.Count), fmt.Sprintf("%.2f", p.Confidence)}
		if err := t.Append(row); err != nil {
			return fmt.Errorf("building prediction table: %w", err)
		}
	}
	if err := t.Render(); err != nil {
		return fmt.Errorf("rendering prediction table: %w", err)
	}
	return nil
}

// WriteTrend prints one row per run with its issue counts by severity.
func WriteTrend(w io.Writer, runs []history.Run) error {
	t := newTable(w)
	header := []string{"Checked at", "Issues"}
	for _, sev := range quality.Severities {
		header = append(header, sev.String())
	}
	header = append(header, "Confidence")
	t.Header(header)

	for _, run := range runs {
		row := []string{run.CheckedAt.Local().Format("2006-01-02 15:04:05"), fmt.Sprint(len(run.Issues))}
		for _, sev := range quality.Severities {
			row = append(row, fmt.Sprint(run.Count(sev)))
		}
		row = append(row, fmt.Sprintf("%.2f", run.Confidence))
		if err := t.Append(row); err != nil {
			return fmt.Errorf("building trend table: %w", err)
		}
	}
	if err := t.Render(); err != nil {
		return fmt.Errorf("rendering trend table: %w", err)
	}
	return nil
}

// sortedByCount orders keys by descending count, then by key.
func sortedByCount(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
