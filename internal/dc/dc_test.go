package dc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dcdis/internal/dcfmt"
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

var typeNames = sid.FromMap(map[uint64]string{
	typeBool:   "boolean",
	typeInt:    "int32",
	typeFloat:  "float",
	typeSID:    "sid",
	typeLambda: "script-lambda",
	typeScript: "state-script",
	typeOther:  "mystery",
})

func sample() []byte {
	var b Builder
	b.AddBool(0xa1, typeBool, true)
	b.AddInt32(0xa2, typeInt, -7)
	b.AddFloat32(0xa3, typeFloat, 2.5)
	b.AddHash(0xa4, typeSID, 0xfeedface)
	b.AddLambda(0xa5, typeLambda, []byte{0, 1, 0, 0, 0, 2, 0, 0}, []uint64{5})
	b.AddHash(0xa6, typeScript, 0xbeef)
	return b.Bytes()
}

func TestParseSample(t *testing.T) {
	f, err := Parse(sample(), dcfmt.Options{})
	require.NoError(t, err)
	require.Empty(t, f.Diags)
	require.Equal(t, uint32(Magic), f.Header.Magic)
	require.Equal(t, int32(6), f.Header.NumEntries)
	require.Len(t, f.Entries, 6)

	c := Classifier{Names: typeNames}
	kinds := make([]Kind, len(f.Entries))
	for i, e := range f.Entries {
		kinds[i] = c.Kind(e.TypeHash)
	}
	require.Equal(t, []Kind{KindBool, KindInt32, KindFloat32, KindHash, KindLambda, KindStateScript}, kinds)

	bv, err := f.Bool(f.Entries[0])
	require.NoError(t, err)
	require.True(t, bv)

	iv, err := f.Int32(f.Entries[1])
	require.NoError(t, err)
	require.Equal(t, int32(-7), iv)

	fv, err := f.Float32(f.Entries[2])
	require.NoError(t, err)
	require.Equal(t, float32(2.5), fv)

	hv, err := f.Hash(f.Entries[3])
	require.NoError(t, err)
	require.Equal(t, uint64(0xfeedface), hv)

	l, err := f.Lambda(f.Entries[4])
	require.NoError(t, err)
	require.Equal(t, 2, l.NumInstructions())
	require.Equal(t, l.Offset+16, l.InstrOffset)
	require.Equal(t, uint64(5), binary.LittleEndian.Uint64(f.Data[l.ConstOffset:]))

	ss, err := f.StateScriptID(f.Entries[5])
	require.NoError(t, err)
	require.Equal(t, uint64(0xbeef), ss)
}

func TestParseEmptyTable(t *testing.T) {
	var b Builder
	f, err := Parse(b.Bytes(), dcfmt.Options{})
	require.NoError(t, err)
	require.Empty(t, f.Entries)
}

func TestParseBadMagic(t *testing.T) {
	data := sample()
	binary.LittleEndian.PutUint32(data, 0x12345678)
	_, err := Parse(data, dcfmt.Options{})
	require.ErrorIs(t, err, ErrMalformedContainer)

	// Magic is checked before length.
	_, err = Parse(data[:8], dcfmt.Options{})
	require.ErrorIs(t, err, ErrMalformedContainer)
}

func TestParseBadVersion(t *testing.T) {
	data := sample()
	binary.LittleEndian.PutUint32(data[4:], 2)
	_, err := Parse(data, dcfmt.Options{})
	require.ErrorIs(t, err, ErrMalformedContainer)
}

func TestParseNegativeCount(t *testing.T) {
	data := sample()
	binary.LittleEndian.PutUint32(data[0x14:], 0xffffffff)
	_, err := Parse(data, dcfmt.Options{})
	require.ErrorIs(t, err, ErrMalformedContainer)
}

func TestParseTruncated(t *testing.T) {
	data := sample()
	_, err := Parse(data[:HeaderSize+EntrySize], dcfmt.Options{})
	require.ErrorIs(t, err, ErrTruncatedData)

	_, err = Parse(data[:0x10], dcfmt.Options{})
	require.ErrorIs(t, err, ErrTruncatedData)
}

func TestParseField10(t *testing.T) {
	data := sample()
	binary.LittleEndian.PutUint32(data[0x10:], 3)

	f, err := Parse(data, dcfmt.Options{})
	require.NoError(t, err)
	require.Len(t, f.Diags, 1)
	require.Equal(t, dcfmt.DiagInvalid, f.Diags[0].Kind)

	_, err = Parse(data, dcfmt.Options{Mode: dcfmt.ModeStrict})
	require.ErrorIs(t, err, ErrMalformedContainer)
}

func TestLambdaValidation(t *testing.T) {
	data := sample()
	f, err := Parse(data, dcfmt.Options{})
	require.NoError(t, err)
	e := f.Entries[4]

	// Constant table before code.
	binary.LittleEndian.PutUint64(data[e.Ptr+8:], 0)
	_, err = f.Lambda(e)
	require.ErrorIs(t, err, ErrMalformedContainer)

	// Code size not a whole number of instructions.
	code := binary.LittleEndian.Uint64(data[e.Ptr:])
	binary.LittleEndian.PutUint64(data[e.Ptr+8:], code+3)
	_, err = f.Lambda(e)
	require.ErrorIs(t, err, ErrMalformedContainer)

	// Constant table past the end of the file.
	binary.LittleEndian.PutUint64(data[e.Ptr+8:], uint64(len(data))+4)
	_, err = f.Lambda(e)
	require.ErrorIs(t, err, ErrTruncatedData)
}

func TestViewOutsideFile(t *testing.T) {
	f, err := Parse(sample(), dcfmt.Options{})
	require.NoError(t, err)
	bad := Entry{Index: 99, Ptr: uint64(len(f.Data))}
	_, err = f.Bool(bad)
	require.ErrorIs(t, err, ErrTruncatedData)
	_, err = f.Hash(bad)
	require.ErrorIs(t, err, ErrTruncatedData)
	_, err = f.Lambda(bad)
	require.ErrorIs(t, err, ErrTruncatedData)
}

func TestClassifierOverrides(t *testing.T) {
	c := Classifier{Names: typeNames, Overrides: map[uint64]Kind{typeOther: KindLambda}}
	require.Equal(t, KindLambda, c.Kind(typeOther))
	require.Equal(t, KindUnknown, c.Kind(0xdead))
	require.Equal(t, KindUnknown, Classifier{}.Kind(typeBool))
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindBool, KindInt32, KindFloat32, KindHash, KindLambda, KindStateScript} {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		require.Equal(t, k, got)
	}
	_, ok := ParseKind("mystery")
	require.False(t, ok)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.bin")
	require.NoError(t, os.WriteFile(path, sample(), 0644))
	f, err := Open(path, dcfmt.Options{})
	require.NoError(t, err)
	require.Equal(t, len(sample()), f.Size())

	_, err = Open(filepath.Join(t.TempDir(), "nope.bin"), dcfmt.Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
