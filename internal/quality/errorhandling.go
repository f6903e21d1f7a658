package quality

import (
	"fmt"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// ErrorHandlingChecker flags catch-all and silent failure handlers.
//
// The two findings are independent: a recover() whose value is discarded is
// both catch-all and silent and yields two issues.
type ErrorHandlingChecker struct{}

// NewErrorHandlingChecker creates an error-handling checker.
func NewErrorHandlingChecker() *ErrorHandlingChecker {
	return &ErrorHandlingChecker{}
}

// Name implements Checker.
func (c *ErrorHandlingChecker) Name() string {
	return "error_handling"
}

// Check implements Checker.
func (c *ErrorHandlingChecker) Check(_ []byte, tree *syntax.Tree) []Issue {
	if tree == nil {
		return nil
	}

	var issues []Issue
	for _, h := range tree.Handlers {
		if h.CatchAll {
			issues = append(issues, Issue{
				Severity:   SeverityImportant,
				Category:   CategoryErrorHandling,
				Message:    fmt.Sprintf("Bare except clause in '%s': recovered value is never inspected", h.Function),
				Suggestion: "Type-assert the recovered value and re-panic on anything unexpected",
				Line:       h.Line,
			})
		}
		if h.NoOp {
			issues = append(issues, Issue{
				Severity:   SeverityImportant,
				Category:   CategoryErrorHandling,
				Message:    fmt.Sprintf("Silent failure in '%s': %s", h.Function, silentDetail(h.Kind)),
				Suggestion: "Return, wrap or log the failure instead of discarding it",
				Line:       h.Line,
			})
		}
	}
	return issues
}

func silentDetail(kind syntax.HandlerKind) string {
	if kind == syntax.HandlerRecover {
		return "pass in except block (recover result discarded)"
	}
	return "pass in except block (error branch does nothing)"
}
