package render

import (
	"fmt"
	"sort"
	"strings"

	"dcdis/internal/cfg"
	"dcdis/internal/disasm"
)

// maxBlockLines caps the instruction lines shown per node.
const maxBlockLines = 12

// CFGDOT renders one function graph as DOT. Every node is a basic block,
// loop bodies are grouped into clusters with the head ranked first and the
// latch last, and nodes ending in Return share one exit sink.
func CFGDOT(g *cfg.Graph, t Theme) string {
	if len(g.Nodes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	b.WriteString("  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(g.Func.Name))
	b.WriteByte('\n')

	owner := loopOwners(g.Loops)
	clustered := make(map[int][]*cfg.Node)
	var top []*cfg.Node
	for _, nd := range g.Sorted() {
		if li, ok := owner[nd.Start]; ok {
			clustered[li] = append(clustered[li], nd)
		} else {
			top = append(top, nd)
		}
	}

	for li, l := range g.Loops {
		nodes := clustered[li]
		if len(nodes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  subgraph cluster_loop_%d {\n", li)
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">loop %d</font>>;\n", t.ClusterLabel, li)
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, nd := range nodes {
			writeBlock(&b, "    ", nd, t)
		}
		if owner[l.Head] == li {
			fmt.Fprintf(&b, "    { rank=source; %s; }\n", blockID(l.Head))
		}
		if owner[l.Latch] == li && l.Latch != l.Head {
			fmt.Fprintf(&b, "    { rank=max; %s; }\n", blockID(l.Latch))
		}
		b.WriteString("  }\n")
	}
	for _, nd := range top {
		writeBlock(&b, "  ", nd, t)
	}
	b.WriteByte('\n')

	exit := false
	for _, nd := range g.Sorted() {
		from := blockID(nd.Start)
		for _, s := range nd.Succs {
			writeEdge(&b, from, blockID(s), cfg.Classify(nd, s), t)
		}
		if last := nd.Last(); last != nil && last.Inst.Opcode == disasm.Return {
			fmt.Fprintf(&b, "  %s -> exit [color=%q, style=dotted];\n", from, t.EdgeFallThrough)
			exit = true
		}
	}
	if exit {
		fmt.Fprintf(&b, "  exit [shape=doublecircle, label=\"\", width=0.15, fillcolor=%q, color=%q];\n",
			t.ExitFill, t.NodeBorder)
		b.WriteString("  { rank=sink; exit; }\n")
	}

	b.WriteString("}\n")
	return b.String()
}

// loopOwners assigns each node to the smallest loop containing it, since a
// DOT node can sit in one cluster only.
func loopOwners(loops []*cfg.Loop) map[int]int {
	order := make([]int, len(loops))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return len(loops[order[a]].Body) < len(loops[order[b]].Body) })

	owner := make(map[int]int)
	for _, li := range order {
		for _, start := range loops[li].Body {
			if _, ok := owner[start]; !ok {
				owner[start] = li
			}
		}
	}
	return owner
}

func writeBlock(b *strings.Builder, indent string, nd *cfg.Node, t Theme) {
	id := blockID(nd.Start)
	if nd.Empty() {
		fmt.Fprintf(b, "%s%s [label=\"%04X (unreached)\", style=dashed, fontcolor=%q];\n",
			indent, id, nd.Start, t.UnreachedText)
		return
	}

	var lines []string
	for _, ln := range nd.Lines {
		text := fmt.Sprintf("%04X: %s %s", ln.Location, ln.Mnemonic, ln.Operands)
		if ln.Comment != "" {
			text += "  ; " + truncLabel(ln.Comment, 48)
		}
		lines = append(lines, dotEscape(text))
	}
	if len(lines) > maxBlockLines {
		kept := append(lines[:5:5], fmt.Sprintf("... (%d more)", len(lines)-10))
		lines = append(kept, lines[len(lines)-5:]...)
	}
	label := strings.Join(lines, "<br align=\"left\"/>") + "<br align=\"left\"/>"

	attrs := ""
	if nd.Start == 0 {
		attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
	}
	if nd.Last().Inst.Opcode == disasm.Return {
		attrs += fmt.Sprintf(", fillcolor=%q", t.ExitFill)
	}
	fmt.Fprintf(b, "%s%s [label=<%s>%s];\n", indent, id, label, attrs)
}

func writeEdge(b *strings.Builder, from, to string, kind cfg.EdgeKind, t Theme) {
	switch kind {
	case cfg.EdgeTrue:
		fmt.Fprintf(b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>];\n",
			from, to, t.EdgeTrue, t.EdgeTrue)
	case cfg.EdgeFalse:
		fmt.Fprintf(b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>];\n",
			from, to, t.EdgeFalse, t.EdgeFalse)
	case cfg.EdgeBack:
		fmt.Fprintf(b, "  %s -> %s [color=%q, style=dashed, constraint=false];\n", from, to, t.EdgeBack)
	case cfg.EdgeBranch:
		fmt.Fprintf(b, "  %s -> %s [color=%q];\n", from, to, t.EdgeBranch)
	default:
		fmt.Fprintf(b, "  %s -> %s [color=%q];\n", from, to, t.EdgeFallThrough)
	}
}
