package quality

import (
	"fmt"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// DocumentationChecker flags missing and brief doc comments on the package
// clause, every function and method, and every named type.
type DocumentationChecker struct {
	minWords int
}

// NewDocumentationChecker creates a documentation checker from cfg.
func NewDocumentationChecker(cfg Config) *DocumentationChecker {
	return &DocumentationChecker{minWords: cfg.MinDocstringWords}
}

// Name implements Checker.
func (c *DocumentationChecker) Name() string {
	return "documentation"
}

// Check implements Checker.
func (c *DocumentationChecker) Check(_ []byte, tree *syntax.Tree) []Issue {
	if tree == nil {
		return nil
	}

	var issues []Issue
	add := func(kind syntax.UnitKind, name string, line int, doc *syntax.Doc) {
		if issue, ok := c.checkUnit(kind, name, line, doc); ok {
			issues = append(issues, issue)
		}
	}

	// The package comment lives in one file per package.
	if tree.Package.Doc != nil || tree.Package.DocFile == "" {
		add(syntax.KindPackage, tree.Package.Name, 1, tree.Package.Doc)
	}
	for _, fn := range tree.Functions {
		add(fn.Kind, fn.QualifiedName(), fn.Line, fn.Doc)
	}
	for _, t := range tree.Types {
		add(syntax.KindType, t.Name, t.Line, t.Doc)
	}
	return issues
}

func (c *DocumentationChecker) checkUnit(kind syntax.UnitKind, name string, line int, doc *syntax.Doc) (Issue, bool) {
	if doc == nil {
		return Issue{
			Severity:   SeverityImportant,
			Category:   CategoryDocumentation,
			Message:    fmt.Sprintf("Missing docstring in %s '%s'", kind, name),
			Suggestion: "Add a doc comment that explains its purpose and contract",
			Line:       line,
		}, true
	}

	if words := doc.Words(); words < c.minWords {
		return Issue{
			Severity:   SeverityStyle,
			Category:   CategoryDocumentation,
			Message:    fmt.Sprintf("Brief docstring in %s '%s' (%d words)", kind, name, words),
			Suggestion: fmt.Sprintf("Expand the doc comment to at least %d words", c.minWords),
			Line:       doc.Line,
		}, true
	}
	return Issue{}, false
}
