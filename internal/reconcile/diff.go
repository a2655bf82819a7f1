package reconcile

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff of two unit bodies, one line per entry prefixed with
// "+ ", "- " or "  ". It returns "" when the bodies have no differing lines.
func Diff(oldBody, newBody string) string {
	if oldBody == newBody {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldBody, newBody)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var buf strings.Builder
	changed := false
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
			changed = true
		case diffmatchpatch.DiffDelete:
			prefix = "- "
			changed = true
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix)
			buf.WriteString(strings.TrimSuffix(line, "\n"))
			buf.WriteString("\n")
		}
	}

	if !changed {
		return ""
	}
	return buf.String()
}
