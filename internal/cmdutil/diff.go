package cmdutil

import (
	"bytes"
	"io"
	"strings"

	"github.com/leefowlercu/dron/internal/tui/styles"
)

// DiffWriter colors unit diffs line by line: "---" headers, "+" additions
// and "-" removals. Partial lines are held until their newline arrives.
type DiffWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewDiffWriter wraps w.
func NewDiffWriter(w io.Writer) *DiffWriter {
	return &DiffWriter{w: w}
}

func (d *DiffWriter) Write(p []byte) (int, error) {
	d.buf.Write(p)
	for {
		line, err := d.buf.ReadString('\n')
		if err != nil {
			// incomplete line: put it back for the next write
			d.buf.Reset()
			d.buf.WriteString(line)
			return len(p), nil
		}
		if _, err := io.WriteString(d.w, colorLine(strings.TrimSuffix(line, "\n"))+"\n"); err != nil {
			return len(p), err
		}
	}
}

func colorLine(line string) string {
	switch {
	case strings.HasPrefix(line, "--- "):
		return styles.DiffHeader.Render(line)
	case strings.HasPrefix(line, "+"):
		return styles.DiffAdded.Render(line)
	case strings.HasPrefix(line, "-"):
		return styles.DiffRemoved.Render(line)
	default:
		return line
	}
}
