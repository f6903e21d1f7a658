package quality

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/steveyegge/qualmon/internal/syntax"
)

const tabWidth = 4

// LineLengthChecker reports lines wider than the configured limit. It emits
// at most one issue per file so a badly formatted file does not drown the
// rest of the report.
type LineLengthChecker struct {
	max int
}

// NewLineLengthChecker creates a line length checker from cfg.
func NewLineLengthChecker(cfg Config) *LineLengthChecker {
	return &LineLengthChecker{max: cfg.MaxLineLength}
}

// Name implements Checker.
func (c *LineLengthChecker) Name() string {
	return "line_length"
}

// Check implements Checker.
func (c *LineLengthChecker) Check(src []byte, _ *syntax.Tree) []Issue {
	if c.max <= 0 || len(src) == 0 {
		return nil
	}

	count, first := 0, 0
	for i, line := range strings.Split(string(src), "\n") {
		if lineWidth(line) > c.max {
			count++
			if first == 0 {
				first = i + 1
			}
		}
	}
	if count == 0 {
		return nil
	}

	return []Issue{{
		Severity:   SeverityStyle,
		Category:   CategoryStyle,
		Message:    fmt.Sprintf("%d line(s) exceed %d characters (first at line %d)", count, c.max, first),
		Suggestion: "Wrap long lines or extract long expressions into named variables",
		Line:       first,
	}}
}

// lineWidth counts runes with tabs expanded to tabWidth columns.
func lineWidth(line string) int {
	line = strings.TrimRight(line, "\r")
	tabs := strings.Count(line, "\t")
	return utf8.RuneCountInString(line) + tabs*(tabWidth-1)
}
