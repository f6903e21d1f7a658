package quality

import (
	"errors"
	"fmt"
	"strings"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// Severity ranks an issue. The zero value is SeverityError, which is only
// produced for files that cannot be parsed; checkers emit the other three.
type Severity int

const (
	SeverityError Severity = iota
	SeverityCritical
	SeverityImportant
	SeverityStyle
)

// Severities lists every severity in report order.
var Severities = []Severity{SeverityError, SeverityCritical, SeverityImportant, SeverityStyle}

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	case SeverityImportant:
		return "IMPORTANT"
	case SeverityStyle:
		return "STYLE"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity converts a case-insensitive severity name.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return SeverityError, nil
	case "CRITICAL":
		return SeverityCritical, nil
	case "IMPORTANT":
		return SeverityImportant, nil
	case "STYLE":
		return SeverityStyle, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityError || s > SeverityStyle {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Issue is one quality finding.
type Issue struct {
	Severity   Severity `json:"severity"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`

	// Line is the 1-based source line the issue refers to, 0 when the
	// issue concerns the whole file.
	Line int `json:"line,omitempty"`
}

// PatternKey returns the "SEVERITY:category" key used by the learning store.
func (i Issue) PatternKey() string {
	return i.Severity.String() + ":" + i.Category
}

// Issue categories.
const (
	CategoryStructure     = "Code Structure"
	CategoryComplexity    = "Complexity"
	CategoryDocumentation = "Documentation"
	CategoryErrorHandling = "ErrorHandling"
	CategoryValues        = "Values"
	CategoryStyle         = "Style"
	CategoryParse         = "Parse"
)

// FileStats are per-file counts gathered alongside the checks.
type FileStats struct {
	LinesOfCode      int `json:"lines_of_code"`
	FunctionCount    int `json:"function_count"`
	ClassCount       int `json:"class_count"`
	DocumentedCount  int `json:"documented_count"`
	CommentLineCount int `json:"comment_line_count"`
}

// Checker evaluates one family of rules against a parsed file.
//
// Implementations are stateless: the same (src, tree) always yields the same
// issues in the same order. A construct missing an expected attribute is
// treated as absent, never as a reason to panic.
type Checker interface {
	// Name returns the unique identifier for this checker.
	Name() string

	// Check returns the issues found in the file.
	Check(src []byte, tree *syntax.Tree) []Issue
}

// ParseFailure builds the synthetic issue recorded for an unparseable file.
func ParseFailure(err error) Issue {
	issue := Issue{
		Severity:   SeverityError,
		Category:   CategoryParse,
		Message:    fmt.Sprintf("Parse failure: %v", err),
		Suggestion: "Fix the syntax error so the file can be analyzed",
	}

	var perr *syntax.ParseError
	if errors.As(err, &perr) {
		issue.Line = perr.Line
	}
	return issue
}
