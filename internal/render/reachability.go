package render

import (
	"fmt"
	"sort"
	"strings"

	"dcdis/internal/callgraph"
)

// FindEntryPoints returns the lambdas that no other lambda of the container
// calls. A lambda calling itself still counts as an entry point.
func FindEntryPoints(funcs []callgraph.FuncInfo) []string {
	called := make(map[string]bool)
	for _, f := range funcs {
		for _, c := range f.Callees {
			if c != f.Name {
				called[c] = true
			}
		}
	}
	var entries []string
	for _, f := range funcs {
		if !called[f.Name] {
			entries = append(entries, f.Name)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet walks call edges breadth-first from the entry points and
// returns every name reached, external callees included.
func ReachableSet(entryPoints []string, funcs []callgraph.FuncInfo) map[string]bool {
	adj := make(map[string][]string, len(funcs))
	for _, f := range funcs {
		adj[f.Name] = append(adj[f.Name], f.Callees...)
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}
	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// ReachabilityDOT renders the call tree rooted at the entry points. Entry
// points get the entry border; callees outside the container are plaintext.
func ReachabilityDOT(funcs []callgraph.FuncInfo, title string, t Theme) string {
	entries := FindEntryPoints(funcs)
	reachable := ReachableSet(entries, funcs)
	if len(reachable) == 0 {
		return ""
	}
	entrySet := make(map[string]bool, len(entries))
	for _, ep := range entries {
		entrySet[ep] = true
	}
	local := make(map[string]bool, len(funcs))
	for _, f := range funcs {
		local[f.Name] = true
	}

	type edgeKey struct{ from, to string }
	counts := make(map[edgeKey]int)
	for _, f := range funcs {
		if !reachable[f.Name] {
			continue
		}
		for _, c := range f.Callees {
			counts[edgeKey{f.Name, c}]++
		}
	}
	keys := make([]edgeKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})
	names := make([]string, 0, len(reachable))
	for name := range reachable {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("digraph reachable {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeCall)
	if title != "" {
		b.WriteString("  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n", t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	for _, name := range names {
		id := dotID("n_", name)
		label := truncLabel(name, 50)
		switch {
		case entrySet[name]:
			fmt.Fprintf(&b, "  %s [label=%q, penwidth=1.5, color=%q];\n", id, label, t.EntryBorder)
		case !local[name]:
			fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fontcolor=%q];\n", id, label, t.UnreachedText)
		default:
			fmt.Fprintf(&b, "  %s [label=%q];\n", id, label)
		}
	}
	b.WriteByte('\n')
	for _, k := range keys {
		attrs := fmt.Sprintf("color=%q", t.EdgeCall)
		if n := counts[k]; n > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(n)*0.1)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID("n_", k.from), dotID("n_", k.to), attrs)
	}
	b.WriteString("}\n")
	return b.String()
}
