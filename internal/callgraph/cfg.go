package callgraph

import (
	"github.com/zboralski/lattice"

	"dcdis/internal/cfg"
	"dcdis/internal/disasm"
)

// BuildCFG converts the graphs of several functions into one lattice.CFGGraph.
func BuildCFG(graphs []*cfg.Graph) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, g := range graphs {
		cg.Funcs = append(cg.Funcs, FuncCFG(g))
	}
	return cg
}

// FuncCFG maps a cfg.Graph to a lattice.FuncCFG. Blocks are numbered in
// start-line order and span [Start, End). Conditional successors carry "T"
// for the taken edge and "F" for the fall-through. Nodes that were never
// filled are left out together with the edges into them.
func FuncCFG(g *cfg.Graph) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: g.Func.Name}

	ids := make(map[int]int, len(g.Nodes))
	var nodes []*cfg.Node
	for _, nd := range g.Sorted() {
		if nd.Empty() {
			continue
		}
		ids[nd.Start] = len(nodes)
		nodes = append(nodes, nd)
	}

	for _, nd := range nodes {
		last := nd.Last()
		lb := &lattice.BasicBlock{
			ID:    ids[nd.Start],
			Start: nd.Start,
			End:   nd.End + 1,
			Term:  last.Inst.Opcode == disasm.Return || len(nd.Succs) == 0,
		}

		for _, s := range nd.Succs {
			id, ok := ids[s]
			if !ok {
				continue
			}
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: id, Cond: cond(nd, s)})
		}

		for _, ln := range nd.Lines {
			if ln.Callee == "" {
				continue
			}
			lb.Calls = append(lb.Calls, lattice.CallSite{Offset: ln.Location, Callee: ln.Callee})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// cond labels conditional successors. The line after the node is the
// fall-through even when the branch targets it too.
func cond(nd *cfg.Node, succ int) string {
	if !nd.Last().Inst.Opcode.IsConditional() {
		return ""
	}
	if nd.End+1 == succ {
		return "F"
	}
	return "T"
}
