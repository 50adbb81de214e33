package sid

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupEmpty(t *testing.T) {
	tbl, err := Parse(Encode(nil))
	require.NoError(t, err)
	require.Equal(t, 0, tbl.Len())

	_, ok := tbl.Lookup(0)
	require.False(t, ok)
	_, ok = tbl.Lookup(^uint64(0))
	require.False(t, ok)
}

func TestLookupSingle(t *testing.T) {
	tbl := FromMap(map[uint64]string{0x1234: "player-start"})

	name, ok := tbl.Lookup(0x1234)
	require.True(t, ok)
	require.Equal(t, "player-start", name)

	for _, h := range []uint64{0, 0x1233, 0x1235, ^uint64(0)} {
		_, ok := tbl.Lookup(h)
		assert.False(t, ok, "hash 0x%x", h)
	}
}

func TestLookupMany(t *testing.T) {
	names := map[uint64]string{}
	for i := uint64(1); i <= 257; i++ {
		names[i*0x9e3779b97f4a7c15] = fmt.Sprintf("sym-%03d", i)
	}
	tbl := FromMap(names)
	require.Equal(t, len(names), tbl.Len())

	for h, want := range names {
		got, ok := tbl.Lookup(h)
		require.True(t, ok, "hash 0x%x", h)
		require.Equal(t, want, got)
		_, ok = tbl.Lookup(h + 1)
		require.False(t, ok, "neighbour of 0x%x", h)
	}
}

func TestResolveFallsBackToHex(t *testing.T) {
	tbl := FromMap(map[uint64]string{5: "five"})
	require.Equal(t, "five", tbl.Resolve(5))
	require.Equal(t, "#00000000DEADBEEF", tbl.Resolve(0xdeadbeef))

	var nilTable *Table
	require.Equal(t, "#0000000000000005", nilTable.Resolve(5))
	require.False(t, nilTable.Exists(5))
}

func TestParseTruncated(t *testing.T) {
	_, err := Parse([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrTruncatedData)

	blob := Encode(map[uint64]string{1: "a", 2: "b"})
	binary.LittleEndian.PutUint64(blob, 1000)
	_, err = Parse(blob)
	require.ErrorIs(t, err, ErrTruncatedData)
}

func TestLookupBadOffset(t *testing.T) {
	blob := Encode(map[uint64]string{7: "seven"})
	binary.LittleEndian.PutUint32(blob[headerSize+8:], uint32(len(blob)+10))
	tbl, err := Parse(blob)
	require.NoError(t, err)
	_, ok := tbl.Lookup(7)
	require.False(t, ok)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidbase.bin")
	require.NoError(t, os.WriteFile(path, Encode(map[uint64]string{42: "answer"}), 0644))

	tbl, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "answer", tbl.Resolve(42))

	_, err = Load(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConcurrentLookup(t *testing.T) {
	tbl := FromMap(map[uint64]string{1: "one", 2: "two", 3: "three"})
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 1000; j++ {
				if tbl.Resolve(2) != "two" {
					t.Error("bad resolve")
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
