package output

import (
	"fmt"

	"dcdis/internal/cfg"
	"dcdis/internal/disasm"
)

// FuncRecord is one line in functions.jsonl.
type FuncRecord struct {
	Name         string   `json:"name" cbor:"name"`
	Entry        int      `json:"entry" cbor:"entry"`
	InstrOffset  string   `json:"instr_offset" cbor:"instr_offset"`
	ConstOffset  string   `json:"const_offset" cbor:"const_offset"`
	Instructions int      `json:"instructions" cbor:"instructions"`
	Nodes        int      `json:"nodes" cbor:"nodes"`
	Edges        int      `json:"edges" cbor:"edges"`
	Loops        int      `json:"loops" cbor:"loops"`
	Symbols      int      `json:"symbols" cbor:"symbols"`
	Calls        int      `json:"calls" cbor:"calls"`
	Callees      []string `json:"callees,omitempty" cbor:"callees,omitempty"`
	Faults       []string `json:"faults,omitempty" cbor:"faults,omitempty"`
	Diags        []string `json:"diags,omitempty" cbor:"diags,omitempty"`
	Error        string   `json:"error,omitempty" cbor:"error,omitempty"`
	File         string   `json:"file,omitempty" cbor:"file,omitempty"`

	// Registers maps each register still holding a value after the last
	// line to the type of that value.
	Registers map[string]string `json:"registers,omitempty" cbor:"registers,omitempty"`
}

// LoopRecord is one line in loops.jsonl.
type LoopRecord struct {
	Func      string `json:"func" cbor:"func"`
	Head      int    `json:"head" cbor:"head"`
	Latch     int    `json:"latch" cbor:"latch"`
	Body      []int  `json:"body" cbor:"body"`
	Dominated bool   `json:"dominated" cbor:"dominated"`
}

// CallEdgeRecord is one call site.
type CallEdgeRecord struct {
	FromFunc string `json:"from_func" cbor:"from_func"`
	FromLine int    `json:"from_line" cbor:"from_line"`
	Callee   string `json:"callee" cbor:"callee"`
}

// NewFuncRecord summarizes a decoded function and its graph. g may be nil
// when graph construction was skipped.
func NewFuncRecord(entry int, fn *disasm.Function, g *cfg.Graph) FuncRecord {
	rec := FuncRecord{
		Name:         fn.Name,
		Entry:        entry,
		InstrOffset:  fmt.Sprintf("0x%x", fn.InstrOffset),
		ConstOffset:  fmt.Sprintf("0x%x", fn.ConstOffset),
		Instructions: fn.Len(),
		Symbols:      len(fn.Frame.Symbols),
		Callees:      fn.Callees(),
	}
	for _, ln := range fn.Lines {
		if ln.Inst.Opcode.IsCall() {
			rec.Calls++
		}
	}
	for i, v := range fn.Frame.Registers {
		if _, none := v.(disasm.None); none || v == nil {
			continue
		}
		if rec.Registers == nil {
			rec.Registers = make(map[string]string)
		}
		rec.Registers[fmt.Sprintf("r%d", i)] = disasm.TypeName(v)
	}
	for _, f := range fn.Faults {
		rec.Faults = append(rec.Faults, f.Error())
	}
	for _, d := range fn.Diags.Items() {
		rec.Diags = append(rec.Diags, d.String())
	}
	if g != nil {
		rec.Nodes = len(g.Nodes)
		rec.Edges = len(g.Edges())
		rec.Loops = len(g.Loops)
		for _, d := range g.Diags.Items() {
			rec.Diags = append(rec.Diags, d.String())
		}
	}
	return rec
}

// NewLoopRecords lists the loops of g.
func NewLoopRecords(g *cfg.Graph) []LoopRecord {
	out := make([]LoopRecord, 0, len(g.Loops))
	for _, l := range g.Loops {
		out = append(out, LoopRecord{
			Func:      g.Func.Name,
			Head:      l.Head,
			Latch:     l.Latch,
			Body:      l.Body,
			Dominated: l.Dominated,
		})
	}
	return out
}

// NewCallEdgeRecords lists the resolved call sites of fn.
func NewCallEdgeRecords(fn *disasm.Function) []CallEdgeRecord {
	var out []CallEdgeRecord
	for _, ln := range fn.Lines {
		if ln.Callee != "" {
			out = append(out, CallEdgeRecord{FromFunc: fn.Name, FromLine: ln.Location, Callee: ln.Callee})
		}
	}
	return out
}
