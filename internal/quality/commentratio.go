package quality

import (
	"fmt"
	"strings"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// minRatioLines is the smallest file, in non-blank lines, worth judging.
const minRatioLines = 20

// CommentRatioChecker flags files with too few comment lines.
type CommentRatioChecker struct {
	min float64
}

// NewCommentRatioChecker creates a comment ratio checker from cfg.
func NewCommentRatioChecker(cfg Config) *CommentRatioChecker {
	return &CommentRatioChecker{min: cfg.MinCommentRatio}
}

// Name implements Checker.
func (c *CommentRatioChecker) Name() string {
	return "comment_ratio"
}

// Check implements Checker.
func (c *CommentRatioChecker) Check(src []byte, _ *syntax.Tree) []Issue {
	if c.min <= 0 {
		return nil
	}

	nonBlank, comments := 0, 0
	for _, line := range strings.Split(string(src), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonBlank++
		if isCommentLine(trimmed) {
			comments++
		}
	}
	if nonBlank < minRatioLines {
		return nil
	}

	ratio := float64(comments) / float64(nonBlank)
	if ratio >= c.min {
		return nil
	}
	return []Issue{{
		Severity: SeverityStyle,
		Category: CategoryDocumentation,
		Message: fmt.Sprintf("Low comment ratio (%.0f%% of %d lines, want %.0f%%)",
			ratio*100, nonBlank, c.min*100),
		Suggestion: "Comment the non-obvious parts: invariants, edge cases and intent",
	}}
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*")
}
