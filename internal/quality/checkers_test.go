package quality

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/qualmon/internal/syntax"
)

const cleanSource = `// Package geometry provides small helpers for working with points on a
// two dimensional plane.
package geometry

import "math"

// Point is a location on the plane expressed as a pair of float64
// coordinates.
type Point struct {
	X, Y float64
}

// Distance returns the straight line distance between p and q using the
// Euclidean metric.
func Distance(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Scale returns p with both coordinates multiplied by factor, leaving the
// original point untouched.
func (p Point) Scale(factor float64) Point {
	if factor == 1 {
		return p
	}
	return Point{X: p.X * factor, Y: p.Y * factor}
}
`

// docPrefix documents the package so tests can focus on one construct.
const docPrefix = "// Package p is a fixture used by the checker tests in this package.\npackage p\n\n"

func mustParse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse("fixture.go", []byte(src))
	require.NoError(t, err)
	return tree
}

func runAll(t *testing.T, cfg Config, src string) []Issue {
	t.Helper()
	tree := mustParse(t, src)
	var issues []Issue
	for _, c := range DefaultCheckers(cfg) {
		issues = append(issues, c.Check([]byte(src), tree)...)
	}
	return issues
}

func filter(issues []Issue, severity Severity, category string) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Severity == severity && issue.Category == category {
			out = append(out, issue)
		}
	}
	return out
}

// nestedIfs builds a documented function whose body nests depth ifs.
func nestedIfs(depth int) string {
	var b strings.Builder
	b.WriteString(docPrefix)
	b.WriteString("// Nested walks down through conditionals to exercise the depth measure.\n")
	b.WriteString("func Nested(x int) int {\n")
	for i := 0; i < depth; i++ {
		fmt.Fprintf(&b, "%sif x > %d {\n", strings.Repeat("\t", i+1), i)
	}
	fmt.Fprintf(&b, "%sx++\n", strings.Repeat("\t", depth+1))
	for i := depth; i > 0; i-- {
		fmt.Fprintf(&b, "%s}\n", strings.Repeat("\t", i))
	}
	b.WriteString("\treturn x\n}\n")
	return b.String()
}

func TestCheckers_CleanInputHasNoIssues(t *testing.T) {
	issues := runAll(t, DefaultConfig(), cleanSource)
	assert.Empty(t, issues)
}

func TestCheckers_SparseCommentsAndWideLineAreClean(t *testing.T) {
	var b strings.Builder
	b.WriteString("// Package stats sums weighted samples for the reporting pipeline and nothing more.\n")
	b.WriteString("package stats\n\n")
	b.WriteString("// WeightedSum multiplies every sample by its weight and adds the products together.\n")
	b.WriteString("func WeightedSum(weights, values []float64) float64 {\n")
	b.WriteString("\ttotal := weights[0]*values[0] + weights[1]*values[1] + weights[2]*values[2] + weights[3]*values[3]\n")
	for i := 4; i < 24; i++ {
		fmt.Fprintf(&b, "\ttotal += weights[%d] * values[%d]\n", i, i)
	}
	b.WriteString("\treturn total\n}\n\n")
	b.WriteString("// Zero returns the neutral element used when no samples were collected at all.\n")
	b.WriteString("func Zero() float64 {\n\treturn 0\n}\n")
	src := b.String()

	tree := mustParse(t, src)
	require.Len(t, tree.Functions, 2)
	require.Equal(t, 22, tree.Functions[0].BodyStatements)

	assert.Empty(t, runAll(t, DefaultConfig(), src))
}

func TestStructureChecker_LongFunction(t *testing.T) {
	var b strings.Builder
	b.WriteString(docPrefix)
	b.WriteString("// Long performs thirty statements in a row to trip the length limit.\n")
	b.WriteString("func Long() int {\n\tx := 0\n")
	for i := 0; i < 28; i++ {
		b.WriteString("\tx++\n")
	}
	b.WriteString("\treturn x\n}\n")

	issues := runAll(t, DefaultConfig(), b.String())
	structure := filter(issues, SeverityCritical, CategoryStructure)
	require.Len(t, structure, 1)
	assert.Contains(t, structure[0].Message, "Long")
	assert.Contains(t, structure[0].Message, "30")
	assert.Equal(t, 5, structure[0].Line)
}

func TestStructureChecker_DepthBoundary(t *testing.T) {
	cfg := DefaultConfig()
	checker := NewStructureChecker(cfg)

	atLimit := checker.Check(nil, mustParse(t, nestedIfs(cfg.MaxNestedDepth)))
	assert.Empty(t, filter(atLimit, SeverityImportant, CategoryComplexity))

	over := checker.Check(nil, mustParse(t, nestedIfs(cfg.MaxNestedDepth+1)))
	deep := filter(over, SeverityImportant, CategoryComplexity)
	require.Len(t, deep, 1)
	assert.Contains(t, deep[0].Message, "Nested")
	assert.Contains(t, deep[0].Message, "depth: 4")
}

func TestStructureChecker_NestingSeverityConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NestingSeverity = SeverityCritical

	issues := NewStructureChecker(cfg).Check(nil, mustParse(t, nestedIfs(5)))
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityCritical, issues[0].Severity)
	assert.Equal(t, CategoryComplexity, issues[0].Category)
}

func TestNestingDepth(t *testing.T) {
	leaf := syntax.Block{Kind: syntax.BlockIf}
	tests := []struct {
		name   string
		blocks []syntax.Block
		want   int
	}{
		{"empty", nil, 0},
		{"flat", []syntax.Block{leaf, leaf, leaf}, 1},
		{"uneven", []syntax.Block{
			leaf,
			{Kind: syntax.BlockFor, Children: []syntax.Block{
				{Kind: syntax.BlockSwitch, Children: []syntax.Block{leaf}},
			}},
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NestingDepth(tt.blocks))
		})
	}
}

func TestDocumentationChecker(t *testing.T) {
	src := "package p\n\n" +
		"// Brief says too little.\nfunc Brief() {}\n\n" +
		"func Missing() {}\n\n" +
		"// Thing is a type whose comment easily clears the minimum word count.\ntype Thing struct{}\n"

	issues := NewDocumentationChecker(DefaultConfig()).Check(nil, mustParse(t, src))

	missing := filter(issues, SeverityImportant, CategoryDocumentation)
	require.Len(t, missing, 2)
	assert.Equal(t, "Missing docstring in package 'p'", missing[0].Message)
	assert.Equal(t, "Missing docstring in function 'Missing'", missing[1].Message)

	brief := filter(issues, SeverityStyle, CategoryDocumentation)
	require.Len(t, brief, 1)
	assert.Contains(t, brief[0].Message, "Brief docstring")
	assert.Contains(t, brief[0].Message, "'Brief' (4 words)")
}

func TestDocumentationChecker_FiveWordDoc(t *testing.T) {
	src := docPrefix + "// Run does the work quickly.\nfunc Run() {}\n"

	issues := runAll(t, DefaultConfig(), src)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityStyle, issues[0].Severity)
	assert.Equal(t, CategoryDocumentation, issues[0].Category)
	assert.Contains(t, issues[0].Message, "Brief docstring")
}

func TestDocumentationChecker_MethodAndTypeKinds(t *testing.T) {
	src := docPrefix + "type T struct{}\n\nfunc (t *T) Close() {}\n"

	issues := NewDocumentationChecker(DefaultConfig()).Check(nil, mustParse(t, src))
	require.Len(t, issues, 2)
	assert.Equal(t, "Missing docstring in method 'T.Close'", issues[0].Message)
	assert.Equal(t, "Missing docstring in type 'T'", issues[1].Message)
}

func TestErrorHandlingChecker(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		bare     int
		silent   int
		contains string
	}{
		{
			name: "discarded recover fires both checks",
			body: "\tdefer func() { recover() }()\n",
			bare: 1, silent: 1, contains: "recover result discarded",
		},
		{
			name: "logged recover is only catch-all",
			body: "\tdefer func() {\n\t\tr := recover()\n\t\tprintln(r)\n\t}()\n",
			bare: 1, silent: 0,
		},
		{
			name: "empty error branch is only silent",
			body: "\tif err := work(); err != nil {\n\t}\n",
			bare: 0, silent: 1, contains: "error branch does nothing",
		},
		{
			name: "returned error is fine",
			body: "\tif err := work(); err != nil {\n\t\treturn\n\t}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "package p\n\nfunc run() {\n" + tt.body + "}\n"
			issues := NewErrorHandlingChecker().Check(nil, mustParse(t, src))

			var bare, silent int
			for _, issue := range issues {
				assert.Equal(t, SeverityImportant, issue.Severity)
				assert.Equal(t, CategoryErrorHandling, issue.Category)
				switch {
				case strings.Contains(issue.Message, "Bare except clause"):
					bare++
				case strings.Contains(issue.Message, "Silent failure"):
					silent++
					assert.Contains(t, issue.Message, tt.contains)
				}
			}
			assert.Equal(t, tt.bare, bare, "bare-except issues")
			assert.Equal(t, tt.silent, silent, "silent-failure issues")
		})
	}
}

func TestErrorHandlingChecker_DoubleDetectionIsTwoIssues(t *testing.T) {
	src := docPrefix + "// Guard swallows every panic raised while the callback runs to completion.\n" +
		"func Guard(fn func()) {\n\tdefer func() { _ = recover() }()\n\tfn()\n}\n"

	issues := filter(runAll(t, DefaultConfig(), src), SeverityImportant, CategoryErrorHandling)
	require.Len(t, issues, 2)
	assert.NotEqual(t, issues[0].Message, issues[1].Message)
}

func TestValuesChecker(t *testing.T) {
	src := "package p\n\n// A clever Hack.\nvar x = 1\n"
	issues := NewValuesChecker(DefaultConfig()).Check([]byte(src), nil)

	require.Len(t, issues, 2)
	assert.Equal(t, "Possible complexity over clarity (clever)", issues[0].Message)
	assert.Equal(t, "Possible complexity over clarity (hack)", issues[1].Message)
	for _, issue := range issues {
		assert.Equal(t, SeverityImportant, issue.Severity)
		assert.Equal(t, CategoryValues, issue.Category)
		assert.Equal(t, 3, issue.Line)
	}

	cfg := DefaultConfig()
	cfg.ValueMarkers = []string{" ", "XYZZY"}
	issues = NewValuesChecker(cfg).Check([]byte("// xyzzy\n"), nil)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "xyzzy")
}

func TestLineLengthChecker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLineLength = 80
	long := "// " + strings.Repeat("a", 80)
	src := "package p\n\n" + long + "\n" + long + "\nvar x = 1\n"

	issues := NewLineLengthChecker(cfg).Check([]byte(src), nil)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityStyle, issues[0].Severity)
	assert.Equal(t, CategoryStyle, issues[0].Category)
	assert.Contains(t, issues[0].Message, "2 line(s) exceed 80")
	assert.Equal(t, 3, issues[0].Line)

	// Tabs count as four columns.
	tabbed := strings.Repeat("\t", 20) + "x"
	assert.Len(t, NewLineLengthChecker(cfg).Check([]byte(tabbed), nil), 1)

	cfg.MaxLineLength = 0
	assert.Empty(t, NewLineLengthChecker(cfg).Check([]byte(src), nil))
}

func TestCommentRatioChecker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinCommentRatio = 0.12
	code := strings.Repeat("x := 1\n", 30)

	issues := NewCommentRatioChecker(cfg).Check([]byte(code), nil)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityStyle, issues[0].Severity)
	assert.Equal(t, CategoryDocumentation, issues[0].Category)
	assert.Contains(t, issues[0].Message, "Low comment ratio")

	commented := strings.Repeat("// why\n", 5) + code
	assert.Empty(t, NewCommentRatioChecker(cfg).Check([]byte(commented), nil))

	short := strings.Repeat("x := 1\n", minRatioLines-1)
	assert.Empty(t, NewCommentRatioChecker(cfg).Check([]byte(short), nil))
}

func TestCheckers_NilTree(t *testing.T) {
	for _, c := range DefaultCheckers(DefaultConfig()) {
		assert.NotPanics(t, func() { c.Check(nil, nil) }, c.Name())
	}
}

func TestGatherStats(t *testing.T) {
	stats := GatherStats([]byte(cleanSource), mustParse(t, cleanSource))

	assert.Equal(t, strings.Count(cleanSource, "\n")+1, stats.LinesOfCode)
	assert.Equal(t, 2, stats.FunctionCount)
	assert.Equal(t, 1, stats.ClassCount)
	assert.Equal(t, 4, stats.DocumentedCount)
	assert.Equal(t, 8, stats.CommentLineCount)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MaxFunctionLines = 0
	cfg.NestingSeverity = SeverityError
	cfg.ValueMarkers = []string{""}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_function_lines")
	assert.Contains(t, err.Error(), "nesting_severity")
	assert.Contains(t, err.Error(), "value_markers")
}

func TestSeverity_Text(t *testing.T) {
	for _, s := range Severities {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var parsed Severity
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}

	_, err := ParseSeverity("fatal")
	assert.Error(t, err)

	sev, err := ParseSeverity(" important ")
	require.NoError(t, err)
	assert.Equal(t, SeverityImportant, sev)
}
