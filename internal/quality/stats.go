package quality

import (
	"strings"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// GatherStats counts lines, units and comment lines for one file.
// A nil tree contributes only the text-derived counts.
func GatherStats(src []byte, tree *syntax.Tree) FileStats {
	var stats FileStats

	lines := strings.Split(string(src), "\n")
	stats.LinesOfCode = len(lines)
	for _, line := range lines {
		if isCommentLine(strings.TrimSpace(line)) {
			stats.CommentLineCount++
		}
	}

	if tree == nil {
		return stats
	}

	stats.FunctionCount = len(tree.Functions)
	stats.ClassCount = len(tree.Types)
	if documented(tree.Package.Doc) {
		stats.DocumentedCount++
	}
	for _, fn := range tree.Functions {
		if documented(fn.Doc) {
			stats.DocumentedCount++
		}
	}
	for _, t := range tree.Types {
		if documented(t.Doc) {
			stats.DocumentedCount++
		}
	}
	return stats
}

func documented(doc *syntax.Doc) bool {
	return doc.Words() > 0
}
