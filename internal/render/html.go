package render

import (
	"fmt"
	"html"
	"io"
)

// IndexFunc is one lambda row of the index page.
type IndexFunc struct {
	Name  string
	File  string // file name stem under asm/ and cfg/
	Lines int
	Nodes int
	Loops int
	Error string
}

// Index is the data shown on the summary page of a disasm run.
type Index struct {
	Title       string
	Size        int
	Entries     int
	Funcs       []IndexFunc
	Stats       CallStats
	EntryPoints []string
	Reachable   int
	Graphs      bool // DOT files were written next to the page
}

// WriteIndexHTML writes a small HTML page summarizing the disasm output.
func WriteIndexHTML(w io.Writer, idx Index) error {
	var loops, failed int
	for _, f := range idx.Funcs {
		loops += f.Loops
		if f.Error != "" {
			failed++
		}
	}

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: #1A1A1A; background: #F5F5F5; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
td.err { color: #FC3D21; }
a { color: #0B3D91; }
.ep { font-family: "Courier New", monospace; font-size: 12px; }
</style>
</head>
<body>
`, html.EscapeString(idx.Title))
	fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(idx.Title))

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintf(w, "<tr><td>File size</td><td class=\"num\">%d</td></tr>\n", idx.Size)
	fmt.Fprintf(w, "<tr><td>Entries</td><td class=\"num\">%d</td></tr>\n", idx.Entries)
	fmt.Fprintf(w, "<tr><td>Lambdas</td><td class=\"num\">%d</td></tr>\n", len(idx.Funcs))
	fmt.Fprintf(w, "<tr><td>Failed</td><td class=\"num\">%d</td></tr>\n", failed)
	fmt.Fprintf(w, "<tr><td>Loops</td><td class=\"num\">%d</td></tr>\n", loops)
	fmt.Fprintf(w, "<tr><td>Call sites</td><td class=\"num\">%d</td></tr>\n", idx.Stats.CallSites)
	fmt.Fprintf(w, "<tr><td>External callees</td><td class=\"num\">%d</td></tr>\n", idx.Stats.External)
	fmt.Fprintf(w, "<tr><td>Entry points</td><td class=\"num\">%d</td></tr>\n", len(idx.EntryPoints))
	fmt.Fprintf(w, "<tr><td>Reachable names</td><td class=\"num\">%d</td></tr>\n", idx.Reachable)
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Files</h2>")
	fmt.Fprint(w, `<p><a href="listing.txt">Listing</a> | <a href="functions.jsonl">functions.jsonl</a> | <a href="loops.jsonl">loops.jsonl</a>`)
	if idx.Graphs {
		fmt.Fprint(w, ` | <a href="callgraph.dot">callgraph.dot</a> | <a href="reachable.dot">reachable.dot</a>`)
	}
	fmt.Fprintln(w, "</p>")

	if len(idx.EntryPoints) > 0 {
		fmt.Fprintln(w, "<h2>Entry Points</h2>")
		fmt.Fprintf(w, "<p>%d lambdas no other lambda calls:</p>\n", len(idx.EntryPoints))
		fmt.Fprintln(w, "<table>")
		limit := min(len(idx.EntryPoints), 50)
		for _, ep := range idx.EntryPoints[:limit] {
			fmt.Fprintf(w, "<tr><td class=\"ep\">%s</td></tr>\n", html.EscapeString(ep))
		}
		if len(idx.EntryPoints) > limit {
			fmt.Fprintf(w, "<tr><td>... and %d more</td></tr>\n", len(idx.EntryPoints)-limit)
		}
		fmt.Fprintln(w, "</table>")
	}

	if len(idx.Funcs) > 0 {
		fmt.Fprintln(w, "<h2>Lambdas</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Name</th><th>Lines</th><th>Nodes</th><th>Loops</th><th></th></tr>")
		for _, f := range idx.Funcs {
			name := html.EscapeString(f.Name)
			if f.File != "" {
				name = fmt.Sprintf(`<a href="asm/%s.txt">%s</a>`, html.EscapeString(f.File), name)
				if idx.Graphs && f.Nodes > 0 {
					name += fmt.Sprintf(` <a href="cfg/%s.dot" style="font-size:11px">[cfg]</a>`, html.EscapeString(f.File))
				}
			}
			if f.Error != "" {
				fmt.Fprintf(w, "<tr><td class=\"ep\">%s</td><td class=\"err\" colspan=\"4\">%s</td></tr>\n", name, html.EscapeString(f.Error))
				continue
			}
			fmt.Fprintf(w, "<tr><td class=\"ep\">%s</td><td class=\"num\">%d</td><td class=\"num\">%d</td><td class=\"num\">%d</td><td></td></tr>\n",
				name, f.Lines, f.Nodes, f.Loops)
		}
		fmt.Fprintln(w, "</table>")
	}

	writeTop := func(heading, col string, list []NameCount) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(w, "<h2>%s</h2>\n", heading)
		fmt.Fprintln(w, "<table>")
		fmt.Fprintf(w, "<tr><th>Name</th><th>%s</th></tr>\n", col)
		for _, nc := range list[:min(len(list), 15)] {
			fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%d</td></tr>\n", html.EscapeString(nc.Name), nc.Count)
		}
		fmt.Fprintln(w, "</table>")
	}
	writeTop("Top Callers", "Outgoing", idx.Stats.TopCallers)
	writeTop("Top Callees", "Incoming", idx.Stats.TopCallees)

	_, err := fmt.Fprintln(w, "</body></html>")
	return err
}
