package quality

import (
	"fmt"
	"sort"
	"strings"
)

// FileReport is the latest issue list for one path.
type FileReport struct {
	Path   string
	Issues []Issue
}

// Report is a point-in-time view of the engine state.
type Report struct {
	Title      string
	Files      []FileReport
	Confidence float64
}

// Style decorates report fragments. Each field wraps its text; nil fields
// leave the text unchanged.
type Style struct {
	Header    func(string) string
	File      func(string) string
	Severity  map[Severity]func(string) string
	OK        func(string) string
	Secondary func(string) string
}

// PlainStyle renders without decoration.
func PlainStyle() Style {
	return Style{}
}

func decorate(fn func(string) string, s string) string {
	if fn == nil {
		return s
	}
	return fn(s)
}

// Count returns how many issues of severity the report holds.
func (r Report) Count(severity Severity) int {
	n := 0
	for _, f := range r.Files {
		for _, issue := range f.Issues {
			if issue.Severity == severity {
				n++
			}
		}
	}
	return n
}

// Render formats the report. Files appear sorted by path and issues are
// grouped by severity, most severe first, keeping their original order
// within a group. The output depends only on the report contents.
func (r Report) Render(style Style) string {
	var b strings.Builder

	b.WriteString(decorate(style.Header, "Code Quality Report"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n")
	if r.Title != "" {
		b.WriteString(decorate(style.Secondary, r.Title))
		b.WriteString("\n")
	}

	files := append([]FileReport(nil), r.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	for _, f := range files {
		b.WriteString("\n")
		b.WriteString(decorate(style.File, "File: "+f.Path))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len("File: ")+len(f.Path)))
		b.WriteString("\n")

		if len(f.Issues) == 0 {
			b.WriteString(decorate(style.OK, "✓ No quality issues found"))
			b.WriteString("\n")
			continue
		}

		for _, severity := range Severities {
			var group []Issue
			for _, issue := range f.Issues {
				if issue.Severity == severity {
					group = append(group, issue)
				}
			}
			if len(group) == 0 {
				continue
			}

			b.WriteString(decorate(style.Severity[severity], fmt.Sprintf("%s Issues:", severity)))
			b.WriteString("\n")
			for _, issue := range group {
				fmt.Fprintf(&b, "  - [%s] %s", issue.Category, issue.Message)
				if issue.Line > 0 {
					fmt.Fprintf(&b, " (line %d)", issue.Line)
				}
				b.WriteString("\n")
				if issue.Suggestion != "" {
					b.WriteString(decorate(style.Secondary, "    Suggestion: "+issue.Suggestion))
					b.WriteString("\n")
				}
			}
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Learning confidence: %.2f\n", r.Confidence)
	return b.String()
}
