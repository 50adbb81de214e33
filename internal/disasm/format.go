package disasm

import (
	"fmt"
	"io"
	"strings"
)

// commentColumn is where listing comments start.
const commentColumn = 64

// WriteListing writes fn as a plain listing: a LABEL_n line before every jump
// target, then the instruction text with its comment.
func WriteListing(w io.Writer, fn *Function) error {
	for _, ln := range fn.Lines {
		if ln.Label >= 0 {
			if _, err := fmt.Fprintf(w, "LABEL_%d:\n", ln.Label); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, FormatLine(ln)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Format returns the listing of fn as a string.
func Format(fn *Function) string {
	var sb strings.Builder
	_ = WriteListing(&sb, fn)
	return sb.String()
}

// FormatLine renders the text of ln followed by its comment, if any.
func FormatLine(ln *Line) string {
	if ln.Comment == "" {
		return ln.Text
	}
	return fmt.Sprintf("%-*s; %s", commentColumn, ln.Text, ln.Comment)
}
