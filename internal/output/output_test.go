package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcdis/internal/cfg"
	"dcdis/internal/disasm"
)

func loopGraph(t *testing.T) (*disasm.Function, *cfg.Graph) {
	t.Helper()
	filler := disasm.Op(disasm.LoadU16Imm, 1, 1, 0)
	code := disasm.Assemble(
		filler,
		disasm.Jmp(disasm.BranchIfNot, 0, 4),
		filler,
		disasm.Jmp(disasm.Branch, 0, 1),
		disasm.Op(disasm.Return, 0, 0, 0),
	)
	fn, err := disasm.Disassemble(disasm.Input{Name: "guard/patrol", Data: code, ConstOffset: uint64(len(code))}, disasm.Options{})
	require.NoError(t, err)
	return fn, cfg.Build(fn, cfg.Options{})
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "guard_patrol", SafeName("guard/patrol"))
	assert.Equal(t, "#00000000DEADBEEF", SafeName("#00000000DEADBEEF"))
	assert.Equal(t, "a_b-c.d", SafeName("a b-c.d"))
	assert.Equal(t, "_", SafeName(""))
}

func TestWriteASMAndCFG(t *testing.T) {
	dir := t.TempDir()
	fn, g := loopGraph(t)
	name := SafeName(fn.Name)

	require.NoError(t, WriteASM(dir, name, fn))
	asm, err := os.ReadFile(filepath.Join(dir, "asm", "guard_patrol.txt"))
	require.NoError(t, err)
	assert.Equal(t, disasm.Format(fn), string(asm))
	assert.Contains(t, string(asm), "LABEL_1:\n0001")

	require.NoError(t, WriteCFGText(dir, name, g))
	dump, err := os.ReadFile(filepath.Join(dir, "cfg", "guard_patrol.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dump), "#nodes\n0 0000"))
	assert.Contains(t, string(dump), "#edges\n0 1\n")

	require.NoError(t, WriteDOT(dir, "empty.dot", ""))
	_, err = os.Stat(filepath.Join(dir, "empty.dot"))
	assert.True(t, os.IsNotExist(err))
}

func TestJSONLRecords(t *testing.T) {
	dir := t.TempDir()
	fn, g := loopGraph(t)

	j, err := CreateJSONL(dir, "loops.jsonl")
	require.NoError(t, err)
	for _, rec := range NewLoopRecords(g) {
		require.NoError(t, j.Write(rec))
	}
	require.NoError(t, j.Close())

	f, err := os.Open(filepath.Join(dir, "loops.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	var recs []LoopRecord
	for sc.Scan() {
		var rec LoopRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 1)
	assert.Equal(t, LoopRecord{Func: "guard/patrol", Head: 1, Latch: 2, Body: []int{1, 2, 4}, Dominated: true}, recs[0])

	rec := NewFuncRecord(3, fn, g)
	assert.Equal(t, 3, rec.Entry)
	assert.Equal(t, 5, rec.Instructions)
	assert.Equal(t, 4, rec.Nodes)
	assert.Equal(t, 4, rec.Edges)
	assert.Equal(t, 1, rec.Loops)
	assert.Equal(t, "0x14", rec.ConstOffset)
	assert.Zero(t, rec.Calls)
	assert.Equal(t, map[string]string{"r1": "u16"}, rec.Registers)
	assert.Empty(t, rec.Faults)
}

func TestCBORBundle(t *testing.T) {
	dir := t.TempDir()
	fn, g := loopGraph(t)
	b := &Bundle{
		File:      "test.bin",
		Size:      64,
		Entries:   1,
		Functions: []FuncRecord{NewFuncRecord(0, fn, g)},
		Loops:     NewLoopRecords(g),
	}
	path := filepath.Join(dir, "analysis.cbor")
	require.NoError(t, WriteCBOR(path, b))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteCBOR(path, b))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := ReadCBOR(path)
	require.NoError(t, err)
	assert.Equal(t, b.Functions[0].Name, got.Functions[0].Name)
	assert.Equal(t, b.Loops, got.Loops)

	_, err = ReadCBOR(filepath.Join(dir, "missing.cbor"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
