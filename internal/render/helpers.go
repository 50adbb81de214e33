// Package render produces Graphviz DOT output from control-flow graphs and
// call graphs.
package render

import (
	"fmt"
	"strings"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;")

// dotEscape escapes a string for use in DOT HTML labels.
func dotEscape(s string) string { return htmlEscaper.Replace(s) }

// dotID creates a safe DOT identifier from a prefix and a name. Script
// names use dashes and dots, which DOT ids do not allow.
func dotID(prefix, name string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		} else {
			fmt.Fprintf(&b, "_%04x", c)
		}
	}
	return b.String()
}

// truncLabel shortens a label to maxLen, appending "..." if truncated.
func truncLabel(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func blockID(start int) string { return fmt.Sprintf("bb%04X", start) }
