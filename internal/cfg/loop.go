package cfg

import (
	"errors"
	"fmt"
	"sort"

	"dcdis/internal/dcfmt"
)

// ErrDominanceViolation marks a loop whose head does not dominate its latch,
// an irreducible or mis-decoded region.
var ErrDominanceViolation = errors.New("cfg: dominance violation")

// Dominates reports whether every path from the entry node to n passes
// through d. The search stops expanding at d and fails as soon as n is
// reached without it. Nodes unreachable from entry are vacuously dominated.
func (g *Graph) Dominates(d, n int) bool {
	if d == n {
		return true
	}
	if _, ok := g.Nodes[n]; !ok {
		return false
	}
	if d == 0 {
		return true
	}
	entry := g.Entry()
	if entry == nil {
		return false
	}

	visited := map[int]bool{entry.Start: true}
	stack := []int{entry.Start}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if k == n {
			return false
		}
		nd := g.Nodes[k]
		if nd == nil {
			continue
		}
		for _, s := range nd.Succs {
			if s == d || visited[s] {
				continue
			}
			visited[s] = true
			stack = append(stack, s)
		}
	}
	return true
}

// Loop is a region closed by one backward jump.
type Loop struct {
	Head      int   `json:"head"`
	Latch     int   `json:"latch"`
	Body      []int `json:"body"` // node starts, ascending; includes head and latch
	Dominated bool  `json:"dominated"`
}

// Err returns ErrDominanceViolation when the head does not dominate the latch.
func (l *Loop) Err() error {
	if l.Dominated {
		return nil
	}
	return fmt.Errorf("%w: head %04X does not dominate latch %04X", ErrDominanceViolation, l.Head, l.Latch)
}

// Contains reports whether start is a node of the loop body.
func (l *Loop) Contains(start int) bool {
	i := sort.SearchInts(l.Body, start)
	return i < len(l.Body) && l.Body[i] == start
}

// FindLoops builds one loop per backward jump recorded while decoding. The
// latch is the node ending at the jump, the head the node at its target.
// A head that does not dominate its latch is reported and the loop is kept.
func (g *Graph) FindLoops(exact bool) []*Loop {
	var loops []*Loop
	var preds map[int][]int
	if exact {
		preds = g.Predecessors()
	}

	for _, j := range g.Func.Frame.BackwardJumps {
		latch := g.NodeEndingAt(j.Location)
		head := g.Nodes[j.Target]
		if latch == nil || head == nil || head.Empty() {
			g.Diags.Addf(uint64(j.Location), dcfmt.DiagInvalid,
				"%s: backward jump %04X -> %04X has no matching nodes", g.Func.Name, j.Location, j.Target)
			continue
		}

		l := &Loop{Head: head.Start, Latch: latch.Start, Dominated: g.Dominates(head.Start, latch.Start)}
		if !l.Dominated {
			g.Diags.Add(uint64(j.Location), dcfmt.DiagDominance, g.Func.Name+": "+l.Err().Error())
		}
		if exact {
			l.Body = naturalBody(preds, head.Start, latch.Start)
		} else {
			l.Body = g.floodBody(head.Start, latch.Start)
		}
		loops = append(loops, l)
	}
	return loops
}

// floodBody collects every node reachable forward from head without
// expanding latch. This is a superset of the natural loop when paths leave
// the loop and merge back in.
func (g *Graph) floodBody(head, latch int) []int {
	seen := map[int]bool{head: true, latch: true}
	queue := []int{head}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if k == latch {
			continue
		}
		nd := g.Nodes[k]
		if nd == nil {
			continue
		}
		for _, s := range nd.Succs {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
	return sortedKeys(seen)
}

// naturalBody is head plus every node that reaches latch backwards without
// passing through head.
func naturalBody(preds map[int][]int, head, latch int) []int {
	seen := map[int]bool{head: true, latch: true}
	var stack []int
	if latch != head {
		stack = append(stack, latch)
	}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range preds[m] {
			if !seen[p] {
				seen[p] = true
				stack = append(stack, p)
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
