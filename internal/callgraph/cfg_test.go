package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"dcdis/internal/cfg"
	"dcdis/internal/disasm"
	"dcdis/internal/sid"
)

const spawnHash = 0x5A5A

func decode(t *testing.T, name string, insts ...disasm.Instruction) *disasm.Function {
	t.Helper()
	code := disasm.Assemble(insts...)
	data := append(append([]byte(nil), code...), 0x5A, 0x5A, 0, 0, 0, 0, 0, 0)
	names := sid.FromMap(map[uint64]string{spawnHash: "spawn-npc"})
	fn, err := disasm.Disassemble(disasm.Input{Name: name, Data: data, ConstOffset: uint64(len(code))},
		disasm.Options{Names: names})
	require.NoError(t, err)
	return fn
}

// branchyFunc:
//
//	0: LookupPointer r0, 0      ; spawn-npc
//	1: Call r1, r0, 0
//	2: BranchIf r1 -> 5
//	3: Call r2, r0, 0
//	4: Branch -> 6
//	5: LoadU16Imm
//	6: Return
func branchyFunc(t *testing.T) *disasm.Function {
	return decode(t, "npc-spawner",
		disasm.Op(disasm.LookupPointer, 0, 0, 0),
		disasm.Op(disasm.Call, 1, 0, 0),
		disasm.Jmp(disasm.BranchIf, 1, 5),
		disasm.Op(disasm.Call, 2, 0, 0),
		disasm.Jmp(disasm.Branch, 0, 6),
		disasm.Op(disasm.LoadU16Imm, 3, 1, 0),
		disasm.Op(disasm.Return, 0, 0, 0),
	)
}

func TestFuncCFG(t *testing.T) {
	g := cfg.Build(branchyFunc(t), cfg.Options{})
	f := FuncCFG(g)

	assert.Equal(t, "npc-spawner", f.Name)
	require.Len(t, f.Blocks, 4)

	b0 := f.Blocks[0]
	assert.Equal(t, 0, b0.Start)
	assert.Equal(t, 3, b0.End)
	assert.Equal(t, []lattice.CallSite{{Offset: 1, Callee: "spawn-npc"}}, b0.Calls)
	assert.Equal(t, []lattice.Successor{{BlockID: 2, Cond: "T"}, {BlockID: 1, Cond: "F"}}, b0.Succs)
	assert.False(t, b0.Term)

	b1 := f.Blocks[1]
	assert.Equal(t, []lattice.CallSite{{Offset: 3, Callee: "spawn-npc"}}, b1.Calls)
	assert.Equal(t, []lattice.Successor{{BlockID: 3}}, b1.Succs)

	assert.Equal(t, []lattice.Successor{{BlockID: 3}}, f.Blocks[2].Succs)
	assert.True(t, f.Blocks[3].Term)

	dot := render.DOTCFG(BuildCFG([]*cfg.Graph{g}), "npc-spawner")
	assert.NotEmpty(t, dot)
}

func TestFuncCFGSkipsUnfilledNodes(t *testing.T) {
	fn := decode(t, "early-exit",
		disasm.Jmp(disasm.BranchIf, 0, 2),
		disasm.Op(disasm.Return, 0, 0, 0),
		disasm.Op(disasm.Return, 0, 0, 0),
	)
	f := FuncCFG(cfg.Build(fn, cfg.Options{}))
	require.Len(t, f.Blocks, 2)
	assert.Equal(t, []lattice.Successor{{BlockID: 1, Cond: "F"}}, f.Blocks[0].Succs)
}

func TestFuncCFGBranchToNextLine(t *testing.T) {
	fn := decode(t, "skip",
		disasm.Jmp(disasm.BranchIfNot, 0, 1),
		disasm.Op(disasm.Return, 0, 0, 0),
	)
	f := FuncCFG(cfg.Build(fn, cfg.Options{}))
	assert.Equal(t, []lattice.Successor{{BlockID: 1, Cond: "F"}}, f.Blocks[0].Succs)
}

func TestBuildCallGraph(t *testing.T) {
	funcs := []FuncInfo{
		Info(branchyFunc(t)),
		{Name: "spawn-npc", Callees: []string{"log", "", "log"}},
		{Name: "idle"},
	}
	cg := BuildCallGraph(funcs)

	assert.Equal(t, []string{"spawn-npc", "spawn-npc"}, funcs[0].Callees)
	assert.Len(t, cg.Nodes, 3)
	assert.ElementsMatch(t, []lattice.Edge{
		{Caller: "npc-spawner", Callee: "spawn-npc"},
		{Caller: "spawn-npc", Callee: "log"},
	}, cg.Edges)

	assert.NotEmpty(t, render.DOT(cg, "calls"))
}
