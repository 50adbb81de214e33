// Package cfg splits a decoded function into basic blocks, tests dominance
// and discovers loops from the backward jumps recorded while decoding.
package cfg

import (
	"sort"

	"dcdis/internal/dcfmt"
	"dcdis/internal/disasm"
)

// Node is a basic block keyed by its start line.
type Node struct {
	Start int
	End   int // location of the last line; -1 while the node has no lines
	Lines []*disasm.Line
	Succs []int // successor start lines
}

// Empty reports whether no line was placed in the node. This happens to
// branch targets that construction never reached.
func (n *Node) Empty() bool { return len(n.Lines) == 0 }

// Last returns the final line of the node, or nil.
func (n *Node) Last() *disasm.Line {
	if len(n.Lines) == 0 {
		return nil
	}
	return n.Lines[len(n.Lines)-1]
}

func (n *Node) addSucc(start int) {
	for _, s := range n.Succs {
		if s == start {
			return
		}
	}
	n.Succs = append(n.Succs, start)
}

// Graph owns the nodes and loops of one function.
type Graph struct {
	Func  *disasm.Function
	Nodes map[int]*Node
	Loops []*Loop
	Diags dcfmt.Diags
}

// Options controls graph construction.
type Options struct {
	// ContinuePastReturn resumes construction at the next jump target after a
	// Return instead of stopping at the first one.
	ContinuePastReturn bool
	// ExactLoops computes textbook natural-loop bodies instead of the forward
	// flood fill from the head.
	ExactLoops bool
}

// Build constructs the graph of fn in one linear pass and discovers its loops.
func Build(fn *disasm.Function, opts Options) *Graph {
	g := &Graph{Func: fn, Nodes: make(map[int]*Node)}
	n := fn.Len()
	if n == 0 {
		return g
	}

	cur := g.node(0)
	for i := 0; i < n; i++ {
		ln := fn.Lines[i]
		cur.Lines = append(cur.Lines, ln)
		cur.End = i

		switch {
		case ln.Inst.Opcode == disasm.Return:
			if !opts.ContinuePastReturn {
				i = n
				break
			}
			next := g.nextLabel(i + 1)
			if next < 0 {
				i = n
				break
			}
			cur = g.node(next)
			i = next - 1

		case ln.HasTarget():
			if ln.Target < n {
				cur.addSucc(g.node(ln.Target).Start)
			} else {
				g.Diags.Addf(ln.Offset, dcfmt.DiagOutOfRange,
					"%s: branch at %04X targets %04X outside the function", fn.Name, i, ln.Target)
			}
			if i+1 >= n {
				break
			}
			next := g.node(i + 1)
			if ln.Inst.Opcode != disasm.Branch {
				cur.addSucc(next.Start)
			}
			cur = next

		case i+1 < n && fn.Frame.IsLabel(i+1):
			next := g.node(i + 1)
			cur.addSucc(next.Start)
			cur = next
		}
	}

	for _, nd := range g.Sorted() {
		if nd.Empty() {
			g.Diags.Addf(uint64(nd.Start), dcfmt.DiagUnreachable,
				"%s: node %04X was never filled", fn.Name, nd.Start)
		}
	}

	g.Loops = g.FindLoops(opts.ExactLoops)
	return g
}

// node returns the node starting at start, creating it on first use.
func (g *Graph) node(start int) *Node {
	if nd, ok := g.Nodes[start]; ok {
		return nd
	}
	nd := &Node{Start: start, End: -1}
	g.Nodes[start] = nd
	return nd
}

// nextLabel returns the first jump target at or after from, or -1.
func (g *Graph) nextLabel(from int) int {
	for i := from; i < g.Func.Len(); i++ {
		if g.Func.Frame.IsLabel(i) {
			return i
		}
	}
	return -1
}

// Entry returns the node at line 0, or nil for an empty function.
func (g *Graph) Entry() *Node { return g.Nodes[0] }

// Sorted returns the nodes ordered by start line.
func (g *Graph) Sorted() []*Node {
	out := make([]*Node, 0, len(g.Nodes))
	for _, nd := range g.Nodes {
		out = append(out, nd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Predecessors maps every node start to the starts of nodes that list it as
// a successor, in ascending order.
func (g *Graph) Predecessors() map[int][]int {
	preds := make(map[int][]int, len(g.Nodes))
	for _, nd := range g.Sorted() {
		for _, s := range nd.Succs {
			preds[s] = append(preds[s], nd.Start)
		}
	}
	return preds
}

// NodeEndingAt returns the non-empty node whose last line is loc, or nil.
func (g *Graph) NodeEndingAt(loc int) *Node {
	for _, nd := range g.Nodes {
		if !nd.Empty() && nd.End == loc {
			return nd
		}
	}
	return nil
}
