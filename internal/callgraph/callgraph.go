// Package callgraph converts analysis results into lattice graphs.
package callgraph

import (
	"github.com/zboralski/lattice"

	"dcdis/internal/disasm"
)

// FuncInfo holds the data needed to place one function in the call graph.
type FuncInfo struct {
	Name    string
	Callees []string // one per call site, in line order
}

// Info extracts the call sites of a decoded function.
func Info(fn *disasm.Function) FuncInfo {
	fi := FuncInfo{Name: fn.Name}
	for _, ln := range fn.Lines {
		if ln.Callee != "" {
			fi.Callees = append(fi.Callees, ln.Callee)
		}
	}
	return fi
}

// BuildCallGraph constructs a lattice.Graph from decoded functions. Each
// function becomes a node and each resolved callee an edge. Callees that
// are not lambdas of the container still appear as edge targets.
func BuildCallGraph(funcs []FuncInfo) *lattice.Graph {
	g := &lattice.Graph{}
	seen := make(map[[2]string]bool)
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, callee := range f.Callees {
			e := lattice.Edge{Caller: f.Name, Callee: callee}
			k := [2]string{e.Caller, e.Callee}
			if callee == "" || seen[k] {
				continue
			}
			seen[k] = true
			g.Edges = append(g.Edges, e)
		}
	}
	g.Dedup()
	return g
}
