package quality

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// ValuesChecker looks for words in the raw text that hint at cleverness
// winning over clarity. It is a plain substring search and ignores the tree.
type ValuesChecker struct {
	markers []string
}

// NewValuesChecker creates a values checker for cfg.ValueMarkers.
func NewValuesChecker(cfg Config) *ValuesChecker {
	markers := make([]string, 0, len(cfg.ValueMarkers))
	for _, m := range cfg.ValueMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	return &ValuesChecker{markers: markers}
}

// Name implements Checker.
func (c *ValuesChecker) Name() string {
	return "values"
}

// Check implements Checker.
func (c *ValuesChecker) Check(src []byte, _ *syntax.Tree) []Issue {
	if len(src) == 0 || len(c.markers) == 0 {
		return nil
	}

	lower := bytes.ToLower(src)
	var issues []Issue
	for _, marker := range c.markers {
		idx := bytes.Index(lower, []byte(marker))
		if idx < 0 {
			continue
		}
		issues = append(issues, Issue{
			Severity:   SeverityImportant,
			Category:   CategoryValues,
			Message:    fmt.Sprintf("Possible complexity over clarity (%s)", marker),
			Suggestion: "Prefer clear, straightforward solutions",
			Line:       bytes.Count(lower[:idx], []byte("\n")) + 1,
		})
	}
	return issues
}
