package quality

import (
	"fmt"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// StructureChecker flags long functions and deep control-flow nesting.
type StructureChecker struct {
	maxStatements   int
	maxDepth        int
	nestingSeverity Severity
}

// NewStructureChecker creates a structure checker from the thresholds in cfg.
func NewStructureChecker(cfg Config) *StructureChecker {
	return &StructureChecker{
		maxStatements:   cfg.MaxFunctionLines,
		maxDepth:        cfg.MaxNestedDepth,
		nestingSeverity: cfg.NestingSeverity,
	}
}

// Name implements Checker.
func (c *StructureChecker) Name() string {
	return "structure"
}

// Check implements Checker.
func (c *StructureChecker) Check(_ []byte, tree *syntax.Tree) []Issue {
	if tree == nil {
		return nil
	}

	var issues []Issue
	for _, fn := range tree.Functions {
		name := fn.QualifiedName()

		if fn.BodyStatements > c.maxStatements {
			issues = append(issues, Issue{
				Severity:   SeverityCritical,
				Category:   CategoryStructure,
				Message:    fmt.Sprintf("Function '%s' is too long (%d lines)", name, fn.BodyStatements),
				Suggestion: fmt.Sprintf("Break it into smaller, focused functions of at most %d statements", c.maxStatements),
				Line:       fn.Line,
			})
		}

		if depth := NestingDepth(fn.Blocks); depth > c.maxDepth {
			issues = append(issues, Issue{
				Severity:   c.nestingSeverity,
				Category:   CategoryComplexity,
				Message:    fmt.Sprintf("Deep nesting in '%s' (depth: %d)", name, depth),
				Suggestion: fmt.Sprintf("Extract nested logic into helper functions or return early (max depth %d)", c.maxDepth),
				Line:       fn.Line,
			})
		}
	}
	return issues
}

// NestingDepth returns the deepest block chain: 0 for no blocks, otherwise
// one more than the deepest child chain of any block.
func NestingDepth(blocks []syntax.Block) int {
	depth := 0
	for _, b := range blocks {
		if d := 1 + NestingDepth(b.Children); d > depth {
			depth = d
		}
	}
	return depth
}
