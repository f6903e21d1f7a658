package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_Render(t *testing.T) {
	report := Report{
		Files: []FileReport{
			{Path: "z.go", Issues: []Issue{
				{Severity: SeverityStyle, Category: CategoryStyle, Message: "wide", Suggestion: "wrap", Line: 9},
				{Severity: SeverityCritical, Category: CategoryStructure, Message: "long", Suggestion: "split"},
			}},
			{Path: "a.go", Issues: []Issue{
				{Severity: SeverityError, Category: CategoryParse, Message: "Parse failure: boom"},
			}},
			{Path: "m.go"},
		},
		Confidence: 0.756,
	}

	want := `Code Quality Report
==================================================

File: a.go
----------
ERROR Issues:
  - [Parse] Parse failure: boom

File: m.go
----------
✓ No quality issues found

File: z.go
----------
CRITICAL Issues:
  - [Code Structure] long
    Suggestion: split
STYLE Issues:
  - [Style] wide (line 9)
    Suggestion: wrap

Learning confidence: 0.76
`
	assert.Equal(t, want, report.Render(PlainStyle()))
	assert.Equal(t, "z.go", report.Files[0].Path, "render does not reorder the caller's files")
}

func TestReport_RenderStyle(t *testing.T) {
	report := Report{Files: []FileReport{{Path: "a.go", Issues: []Issue{
		{Severity: SeverityImportant, Category: CategoryValues, Message: "m"},
	}}}}
	style := Style{
		Severity: map[Severity]func(string) string{
			SeverityImportant: func(s string) string { return "<" + s + ">" },
		},
	}

	assert.Contains(t, report.Render(style), "<IMPORTANT Issues:>\n")
}

func TestReport_Count(t *testing.T) {
	report := Report{Files: []FileReport{
		{Path: "a.go", Issues: []Issue{{Severity: SeverityStyle}, {Severity: SeverityCritical}}},
		{Path: "b.go", Issues: []Issue{{Severity: SeverityStyle}}},
	}}

	assert.Equal(t, 2, report.Count(SeverityStyle))
	assert.Equal(t, 1, report.Count(SeverityCritical))
	assert.Equal(t, 0, report.Count(SeverityError))
}
