package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcdis/internal/analyze"
	"dcdis/internal/dc"
	"dcdis/internal/dcfmt"
	"dcdis/internal/disasm"
	"dcdis/internal/sid"
)

const (
	typeLambda = 0x3001
	typeBool   = 0x3002
)

var names = sid.FromMap(map[uint64]string{
	typeLambda: "script-lambda",
	typeBool:   "boolean",
	0xc1:       "guard-loop",
	0xc2:       "enabled",
	0xd00d:     "play-anim",
})

func report(t *testing.T) *analyze.Report {
	t.Helper()
	var b dc.Builder
	b.AddBool(0xc2, typeBool, true)
	b.AddLambda(0xc1, typeLambda, disasm.Assemble(
		disasm.Op(disasm.LoadU16Imm, 1, 1, 0),
		disasm.Jmp(disasm.BranchIfNot, 0, 5),
		disasm.Op(disasm.LookupPointer, 2, 0, 0),
		disasm.Op(disasm.Call, 3, 2, 0),
		disasm.Jmp(disasm.Branch, 0, 1),
		disasm.Op(disasm.Return, 0, 0, 0),
	), []uint64{0xd00d})
	f, err := dc.Parse(b.Bytes(), dcfmt.Options{})
	require.NoError(t, err)

	r, err := analyze.Run(context.Background(), f, analyze.Options{Classifier: dc.Classifier{Names: names}, Names: names})
	require.NoError(t, err)
	return r
}

func TestSaveAndQuery(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "dcdis.db"))
	require.NoError(t, err)
	defer s.Close()

	r := report(t)
	id, err := s.Save(ctx, "guard.bin", r, dc.Classifier{Names: names}, names)
	require.NoError(t, err)
	require.Len(t, id, 36)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "guard.bin", run.File)
	assert.Equal(t, r.File.Size(), run.Size)
	assert.Equal(t, 2, run.Entries)
	assert.Zero(t, run.Failed)
	assert.WithinDuration(t, time.Now(), run.Created, time.Minute)

	for table, want := range map[string]int{
		"entries":   2,
		"functions": 1,
		"lines":     6,
		"nodes":     4,
		"edges":     4,
		"loops":     1,
	} {
		n, err := s.Count(ctx, id, table)
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}

	loops, err := s.Loops(ctx, id)
	require.NoError(t, err)
	require.Len(t, loops, 1)
	assert.Equal(t, Loop{Entry: 1, Head: 1, Latch: 2, Body: []int{1, 2, 5}, Dominated: true}, loops[0])

	callees, err := s.Callees(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"play-anim"}, callees)
}

func TestRunsAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dcdis.db")
	s, err := Open(path)
	require.NoError(t, err)

	first, err := s.Save(ctx, "a.bin", report(t), dc.Classifier{Names: names}, names)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	second, err := s.Save(ctx, "b.bin", report(t), dc.Classifier{Names: names}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	n, err := s.Count(ctx, first, "lines")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.Count(ctx, first, "runs; DROP TABLE runs")
	assert.Error(t, err)
}
