package quality

import (
	"errors"
	"fmt"
	"strings"

	"github.com/steveyegge/qualmon/internal/learning"
)

// Config holds the thresholds the checkers compare against.
type Config struct {
	// MaxFunctionLines is the largest allowed number of top-level statements
	// in a function body. Default: 25
	MaxFunctionLines int `yaml:"max_function_lines"`

	// MaxNestedDepth is the deepest allowed control-flow nesting. Default: 3
	MaxNestedDepth int `yaml:"max_nested_depth"`

	// NestingSeverity is reported for functions deeper than MaxNestedDepth.
	// Default: IMPORTANT
	NestingSeverity Severity `yaml:"nesting_severity"`

	// MinDocstringWords is the shortest doc comment that is not flagged as
	// brief. Default: 10
	MinDocstringWords int `yaml:"min_docstring_words"`

	// MaxLineLength is the longest allowed source line, with tabs counted as
	// four columns. Zero or less disables the check. Default: 0 (off)
	MaxLineLength int `yaml:"max_line_length"`

	// MinCommentRatio is the smallest allowed share of comment lines among
	// non-blank lines. Zero or less disables the check. Default: 0 (off)
	MinCommentRatio float64 `yaml:"min_comment_ratio"`

	// ValueMarkers are lowercase words that suggest cleverness over clarity.
	ValueMarkers []string `yaml:"value_markers"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MaxFunctionLines:  25,
		MaxNestedDepth:    3,
		NestingSeverity:   SeverityImportant,
		MinDocstringWords: 10,
		ValueMarkers:      []string{"clever", "hack", "trick", "magic"},
	}
}

// Validate reports every invalid threshold at once.
func (c Config) Validate() error {
	var errs []error
	if c.MaxFunctionLines < 1 {
		errs = append(errs, fmt.Errorf("max_function_lines must be at least 1, got %d", c.MaxFunctionLines))
	}
	if c.MaxNestedDepth < 1 {
		errs = append(errs, fmt.Errorf("max_nested_depth must be at least 1, got %d", c.MaxNestedDepth))
	}
	if c.NestingSeverity == SeverityError || c.NestingSeverity > SeverityStyle {
		errs = append(errs, fmt.Errorf("nesting_severity must be CRITICAL, IMPORTANT or STYLE, got %s", c.NestingSeverity))
	}
	if c.MinDocstringWords < 0 {
		errs = append(errs, fmt.Errorf("min_docstring_words must not be negative, got %d", c.MinDocstringWords))
	}
	if c.MinCommentRatio > 1 {
		errs = append(errs, fmt.Errorf("min_comment_ratio must be at most 1, got %g", c.MinCommentRatio))
	}
	for _, m := range c.ValueMarkers {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, errors.New("value_markers must not contain empty entries"))
			break
		}
	}
	return errors.Join(errs...)
}

// DefaultCheckers returns the built-in checkers in report order. The line
// length and comment ratio checkers stay silent until their thresholds are set.
func DefaultCheckers(cfg Config) []Checker {
	return []Checker{
		NewStructureChecker(cfg),
		NewDocumentationChecker(cfg),
		NewErrorHandlingChecker(),
		NewValuesChecker(cfg),
		NewLineLengthChecker(cfg),
		NewCommentRatioChecker(cfg),
	}
}

// Tunables describes the thresholds the learning store may propose to move,
// with the step taken once confidence is high. Disabled checks are left out.
func (c Config) Tunables() []learning.Tunable {
	tunables := []learning.Tunable{
		{Name: "max_function_lines", Current: float64(c.MaxFunctionLines), Delta: 5},
		{Name: "max_nested_depth", Current: float64(c.MaxNestedDepth), Delta: 1},
	}
	if c.MaxLineLength > 0 {
		tunables = append(tunables, learning.Tunable{Name: "max_line_length", Current: float64(c.MaxLineLength), Delta: 10})
	}
	tunables = append(tunables, learning.Tunable{Name: "min_docstring_words", Current: float64(c.MinDocstringWords), Delta: -2, Floor: 1})
	if c.MinCommentRatio > 0 {
		tunables = append(tunables, learning.Tunable{Name: "min_comment_ratio", Current: c.MinCommentRatio, Delta: -0.02})
	}
	return tunables
}
