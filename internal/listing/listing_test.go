package listing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcdis/internal/dc"
	"dcdis/internal/dcfmt"
	"dcdis/internal/disasm"
	"dcdis/internal/sid"
)

const (
	typeBool   = 0x1001
	typeInt    = 0x1002
	typeFloat  = 0x1003
	typeSID    = 0x1004
	typeLambda = 0x1005
	typeScript = 0x1006
	typeOther  = 0x1007
)

var names = sid.FromMap(map[uint64]string{
	typeBool:   "boolean",
	typeInt:    "int32",
	typeFloat:  "float",
	typeSID:    "sid",
	typeLambda: "script-lambda",
	typeScript: "state-script",
	0xa5:       "on-update",
	0xbeef:     "intro-cutscene",
	0xfeedface: "player-name",
})

func container(t *testing.T, extra func(b *dc.Builder)) *dc.File {
	t.Helper()
	var b dc.Builder
	b.AddHash(0xa6, typeScript, 0xbeef)
	b.AddBool(0xa1, typeBool, true)
	b.AddInt32(0xa2, typeInt, -7)
	b.AddFloat32(0xa3, typeFloat, 2.5)
	b.AddHash(0xa4, typeSID, 0xfeedface)
	b.AddLambda(0xa5, typeLambda, disasm.Assemble(
		disasm.Op(disasm.LoadStaticInt, 0, 0, 0),
		disasm.Jmp(disasm.BranchIf, 0, 3),
		disasm.Op(disasm.LoadU16Imm, 1, 2, 0),
		disasm.Op(disasm.Return, 0, 0, 0),
	), []uint64{5})
	b.AddInt32(0xa7, typeOther, 1)
	if extra != nil {
		extra(&b)
	}
	f, err := dc.Parse(b.Bytes(), dcfmt.Options{})
	require.NoError(t, err)
	return f
}

func render(t *testing.T, f *dc.File, opts Options) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, Write(&sb, f, opts))
	return sb.String()
}

func TestListing(t *testing.T) {
	f := container(t, nil)
	out := render(t, f, Options{Names: names, Classifier: dc.Classifier{Names: names}})

	assert.Contains(t, out, "Listing for script: intro-cutscene\n")
	assert.Contains(t, out, "Script ID: #000000000000BEEF\n")
	assert.Contains(t, out, fmt.Sprintf("Filesize: %d bytes\n\n", f.Size()))
	assert.Contains(t, out, "START OF DISASSEMBLY\n")
	assert.Contains(t, out, "State Script ID: intro-cutscene\n")
	assert.Contains(t, out, "<true>\n")
	assert.Contains(t, out, "<-7>\n")
	assert.Contains(t, out, "<2.500000>\n")
	assert.Contains(t, out, "  Hash: player-name\n")
	assert.Contains(t, out, "BEGIN LAMBDA <on-update> AT [0x")
	assert.Contains(t, out, "INSTRUCTION POINTER: 0x")
	assert.Contains(t, out, "SYMBOL TABLE POINTER: 0x")
	assert.Contains(t, out, "; r0 <5> = ST[0] -> <5>\n")
	assert.Contains(t, out, "; IF r0 <5> GOTO LABEL_0\n")
	assert.Contains(t, out, "            LABEL_0:\n              0003")
	assert.Contains(t, out, "UNKNOWN SYMBOL TYPE: 0x")

	assert.Less(t, strings.Index(out, "BOOL:"), strings.Index(out, "Integer:"))
	assert.Less(t, strings.Index(out, "Integer:"), strings.Index(out, "BEGIN LAMBDA"))
}

func TestListingUsesDecodedFunctions(t *testing.T) {
	f := container(t, nil)
	fn := &disasm.Function{
		Name:        "cached",
		InstrOffset: 0x1234,
		ConstOffset: 0x1234,
		Frame:       &disasm.StackFrame{},
	}
	out := render(t, f, Options{
		Names:      names,
		Classifier: dc.Classifier{Names: names},
		Functions:  map[int]*disasm.Function{5: fn},
	})
	assert.Contains(t, out, "INSTRUCTION POINTER: 0x001234\n")
	assert.NotContains(t, out, "ST[0]")
}

func TestListingReportsBadEntries(t *testing.T) {
	f := container(t, func(b *dc.Builder) {
		b.Add(0xa9, typeLambda, []byte{1, 2, 3, 4})
	})
	out := render(t, f, Options{Names: names, Classifier: dc.Classifier{Names: names}})
	assert.Contains(t, out, "ERROR: dc: truncated data")
	assert.Contains(t, out, "BEGIN LAMBDA <#00000000000000A9>")
}

func TestListingWithoutNames(t *testing.T) {
	f := container(t, nil)
	out := render(t, f, Options{Classifier: dc.Classifier{Overrides: map[uint64]dc.Kind{typeLambda: dc.KindLambda}}})
	assert.Contains(t, out, "Listing for script: UNKNOWN SCRIPT\n")
	assert.Contains(t, out, "BEGIN LAMBDA <#00000000000000A5>")
	assert.Equal(t, 6, strings.Count(out, "UNKNOWN SYMBOL TYPE"))
}

func TestListingStyle(t *testing.T) {
	f := container(t, nil)
	mark := func(tag string) Paint {
		return func(a ...any) string { return "<" + tag + ">" + fmt.Sprint(a...) + "</" + tag + ">" }
	}
	out := render(t, f, Options{
		Names:      names,
		Classifier: dc.Classifier{Names: names},
		Style:      Style{Hash: mark("h"), Label: mark("l")},
	})
	assert.Contains(t, out, "<h>player-name\n</h>")
	assert.Contains(t, out, "<l>LABEL_0:\n</l>")
}
