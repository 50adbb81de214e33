package cfg

import (
	"bufio"
	"fmt"
	"io"

	"dcdis/internal/disasm"
)

// EdgeKind classifies a successor edge for renderers.
type EdgeKind int

const (
	EdgeFallThrough EdgeKind = iota
	EdgeFalse                // fall-through of a conditional branch
	EdgeTrue                 // conditional branch taken
	EdgeBranch               // unconditional branch
	EdgeBack                 // edge to a node above the source
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFalse:
		return "false"
	case EdgeTrue:
		return "true"
	case EdgeBranch:
		return "branch"
	case EdgeBack:
		return "back"
	default:
		return "fallthrough"
	}
}

// Edge is one successor relation.
type Edge struct {
	From int      `json:"from"`
	To   int      `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Classify returns the kind of the edge from nd to the node starting at to.
// The line after nd wins over the branch target, so a conditional branch to
// its own next line is a false edge.
func Classify(nd *Node, to int) EdgeKind {
	last := nd.Last()
	conditional := last != nil && last.Inst.Opcode.IsConditional()
	switch {
	case nd.End+1 == to && conditional:
		return EdgeFalse
	case nd.End+1 == to:
		return EdgeFallThrough
	case to < nd.Start:
		return EdgeBack
	case last != nil && last.Inst.Opcode == disasm.Branch:
		return EdgeBranch
	default:
		return EdgeTrue
	}
}

// Edges lists all successor edges ordered by source then successor order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, nd := range g.Sorted() {
		for _, s := range nd.Succs {
			out = append(out, Edge{From: nd.Start, To: s, Kind: Classify(nd, s)})
		}
	}
	return out
}

// WriteText dumps the graph as "#nodes" followed by one line per node
// ("<start> <text>;<text>;") and "#edges" followed by "<from> <to>" pairs.
func WriteText(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#nodes")
	for _, nd := range g.Sorted() {
		fmt.Fprintf(bw, "%d ", nd.Start)
		for _, ln := range nd.Lines {
			bw.WriteString(ln.Text)
			bw.WriteByte(';')
		}
		bw.WriteByte('\n')
	}
	fmt.Fprintln(bw, "#edges")
	for _, e := range g.Edges() {
		fmt.Fprintf(bw, "%d %d\n", e.From, e.To)
	}
	return bw.Flush()
}
