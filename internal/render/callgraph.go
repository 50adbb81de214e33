package render

import (
	"fmt"
	"sort"
	"strings"

	"dcdis/internal/callgraph"
)

// CallgraphDOT renders the cross-lambda call graph as DOT. Lambdas of the
// container are boxes; callees defined elsewhere are plaintext nodes.
// Repeated calls thicken the edge and label it with the count.
// maxNodes limits the number of lambda nodes rendered (0 = all).
func CallgraphDOT(funcs []callgraph.FuncInfo, title string, t Theme, maxNodes int) string {
	type edgeKey struct{ from, to string }
	counts := make(map[edgeKey]int)
	var order []edgeKey

	refNodes := make(map[string]bool)
	for _, f := range funcs {
		for _, callee := range f.Callees {
			if callee == "" {
				continue
			}
			k := edgeKey{f.Name, callee}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
			refNodes[f.Name] = true
			refNodes[callee] = true
		}
	}

	var shown []callgraph.FuncInfo
	for _, f := range funcs {
		if refNodes[f.Name] {
			shown = append(shown, f)
		}
	}
	if maxNodes > 0 && len(shown) > maxNodes {
		shown = shown[:maxNodes]
	}
	funcSet := make(map[string]bool, len(shown))
	for _, f := range shown {
		funcSet[f.Name] = true
	}
	known := make(map[string]bool, len(funcs))
	for _, f := range funcs {
		known[f.Name] = true
	}

	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee];\n")
	if title != "" {
		b.WriteString("  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	for _, f := range shown {
		fmt.Fprintf(&b, "  %s [label=%q];\n", dotID("n_", f.Name), truncLabel(f.Name, 60))
	}

	external := make(map[string]bool)
	for _, k := range order {
		if funcSet[k.from] && !known[k.to] {
			external[k.to] = true
		}
	}
	names := make([]string, 0, len(external))
	for name := range external {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fillcolor=none, fontcolor=%q, fontsize=8];\n",
			dotID("n_", name), truncLabel(name, 50), t.UnreachedText)
	}
	b.WriteByte('\n')

	for _, k := range order {
		if !funcSet[k.from] || (!funcSet[k.to] && !external[k.to]) {
			continue
		}
		n := counts[k]
		attrs := fmt.Sprintf("color=%q", t.EdgeCall)
		if n > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(n)*0.1)
			if n > 2 {
				attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%dx</font>>", t.EdgeCall, n)
			}
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID("n_", k.from), dotID("n_", k.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

// CallStats summarizes a call graph.
type CallStats struct {
	Functions  int         `json:"functions"`
	CallSites  int         `json:"call_sites"`
	External   int         `json:"external"` // distinct callees that are not lambdas
	TopCallers []NameCount `json:"top_callers"`
	TopCallees []NameCount `json:"top_callees"`
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ComputeStats computes call statistics from per-lambda call sites.
func ComputeStats(funcs []callgraph.FuncInfo) CallStats {
	stats := CallStats{Functions: len(funcs)}
	known := make(map[string]bool, len(funcs))
	for _, f := range funcs {
		known[f.Name] = true
	}

	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	for _, f := range funcs {
		for _, callee := range f.Callees {
			stats.CallSites++
			callerCount[f.Name]++
			calleeCount[callee]++
		}
	}
	for callee := range calleeCount {
		if !known[callee] {
			stats.External++
		}
	}

	stats.TopCallers = topNMap(callerCount, 20)
	stats.TopCallees = topNMap(calleeCount, 20)
	return stats
}

// topNMap returns the top N entries from a map, sorted by descending count
// then name.
func topNMap(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
