package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcdis/internal/dc"
	"dcdis/internal/disasm"
	"dcdis/internal/output"
	"dcdis/internal/sid"
	"dcdis/internal/store"
)

const (
	typeLambda = 0x4001
	typeInt    = 0x4002
	typeScript = 0x4003
)

// fixture writes a container and a resolver table into a temp dir.
func fixture(t *testing.T) (dir, bin, table string) {
	t.Helper()
	dir = t.TempDir()

	var b dc.Builder
	b.AddHash(0x10, typeScript, 0xbeef)
	b.AddInt32(0x11, typeInt, 42)
	b.AddLambda(0x12, typeLambda, disasm.Assemble(
		disasm.Op(disasm.LoadU16Imm, 1, 1, 0),
		disasm.Jmp(disasm.BranchIfNot, 0, 5),
		disasm.Op(disasm.LookupPointer, 2, 0, 0),
		disasm.Op(disasm.Call, 3, 2, 0),
		disasm.Jmp(disasm.Branch, 0, 1),
		disasm.Op(disasm.Return, 0, 0, 0),
	), []uint64{0x13})
	bin = filepath.Join(dir, "guard.bin")
	require.NoError(t, os.WriteFile(bin, b.Bytes(), 0644))

	table = filepath.Join(dir, "names.sid")
	require.NoError(t, os.WriteFile(table, sid.Encode(map[uint64]string{
		typeLambda: "script-lambda",
		typeInt:    "int32",
		typeScript: "state-script",
		0x10:       "guard-state",
		0x11:       "max-guards",
		0x12:       "patrol",
		0x13:       "walk-to",
		0xbeef:     "guard-ai",
	}), 0644))
	return dir, bin, table
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestScanJSON(t *testing.T) {
	_, bin, table := fixture(t)
	out, _, err := run(t, "scan", bin, "--json", "--sid", table)
	require.NoError(t, err)

	var rep scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Entries, 3)
	assert.Equal(t, uint32(dc.Magic), rep.Header.Magic)
	assert.Equal(t, "state-script", rep.Entries[0].Kind)
	assert.Equal(t, "max-guards", rep.Entries[1].Name)
	assert.Equal(t, "patrol", rep.Entries[2].Name)
	assert.Equal(t, "script-lambda", rep.Entries[2].Kind)
	assert.Equal(t, 6, rep.Entries[2].Size)
}

func TestScanTypeOverrides(t *testing.T) {
	dir, bin, _ := fixture(t)
	cfg := filepath.Join(dir, "dcdis.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("types:\n  \"0x4001\": lambda\n"), 0644))

	out, _, err := run(t, "scan", bin, "--config", cfg)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[5], "script-lambda")
	assert.Contains(t, lines[5], "#0000000000000012")
	assert.Contains(t, lines[5], "6 instructions")
	assert.Contains(t, lines[3], "unknown")
}

func TestDisasmWritesArtifacts(t *testing.T) {
	dir, bin, table := fixture(t)
	outDir := filepath.Join(dir, "out")
	_, stderr, err := run(t, "disasm", bin, "--sid", table, "--out", outDir, "--graph", "--cbor")
	require.NoError(t, err)
	assert.Contains(t, stderr, "disasm: 1/1 lambdas written, 1 loops, 0 failed")

	for _, rel := range []string{
		"listing.txt",
		"asm/patrol.txt",
		"cfg/patrol.txt",
		"cfg/patrol.dot",
		"lattice/patrol.dot",
		"functions.jsonl",
		"loops.jsonl",
		"call_edges.jsonl",
		"callgraph.dot",
		"callgraph_lattice.dot",
		"analysis.cbor",
		"reachable.dot",
		"index.html",
	} {
		assert.FileExists(t, filepath.Join(outDir, rel))
	}

	lst, err := os.ReadFile(filepath.Join(outDir, "listing.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(lst), "Listing for script: guard-ai")
	assert.Contains(t, string(lst), "BEGIN LAMBDA <patrol>")

	funcs, err := os.ReadFile(filepath.Join(outDir, "functions.jsonl"))
	require.NoError(t, err)
	var rec output.FuncRecord
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(funcs), &rec))
	assert.Equal(t, "patrol", rec.Name)
	assert.Equal(t, "asm/patrol.txt", rec.File)
	assert.Equal(t, []string{"walk-to"}, rec.Callees)

	b, err := output.ReadCBOR(filepath.Join(outDir, "analysis.cbor"))
	require.NoError(t, err)
	assert.Equal(t, "guard.bin", b.File)
	require.Len(t, b.Loops, 1)
	assert.Equal(t, 1, b.Loops[0].Head)
}

func TestDisasmRequiresOut(t *testing.T) {
	_, bin, _ := fixture(t)
	_, _, err := run(t, "disasm", bin)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	_, bin, table := fixture(t)
	out, _, err := run(t, "list", bin, "--sid", table, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Integer: 0x")
	assert.Contains(t, out, "<42>")
	assert.Contains(t, out, "r3 = walk-to()")
	assert.NotContains(t, out, "\x1b[")
}

func TestSid(t *testing.T) {
	_, _, table := fixture(t)
	out, _, err := run(t, "sid", "--sid", table, "0xbeef", "#0000000000000012", "99")
	require.NoError(t, err)
	assert.Equal(t, "#000000000000BEEF  guard-ai\n#0000000000000012  patrol\n#0000000000000099  (not found)\n", out)

	_, _, err = run(t, "sid", "beef")
	assert.ErrorContains(t, err, "no resolver table")
	_, _, err = run(t, "sid", "--sid", table, "xyz")
	assert.ErrorContains(t, err, "bad hash")
}

func TestExport(t *testing.T) {
	dir, bin, table := fixture(t)
	db := filepath.Join(dir, "runs.db")
	out, _, err := run(t, "export", bin, "--sid", table, "--db", db)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.Len(t, id, 36)

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(t.Context(), id, "lines")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	callees, err := s.Callees(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"walk-to"}, callees)
}

func TestBadLogLevel(t *testing.T) {
	_, bin, _ := fixture(t)
	_, _, err := run(t, "scan", bin, "--log-level", "loud")
	assert.ErrorContains(t, err, "log-level")
}
