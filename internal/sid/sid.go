// Package sid resolves 64-bit StringId64 hashes to names using a pre-sorted
// hash table file.
//
// Table layout:
//
//	+0x00: count   uint64
//	+0x08: entries [count]{hash uint64, offset uint32, pad uint32}
//	then:  string pool, null-terminated names addressed by offset from file start
//
// Entries must be sorted ascending by hash. This is trusted, not verified.
// A loaded Table is immutable and safe for concurrent use.
package sid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
)

// EntrySize is the on-disk size of one table record.
const EntrySize = 16

const headerSize = 8

var ErrTruncatedData = errors.New("sid: truncated data")

// Entry is one sorted table record.
type Entry struct {
	Hash   uint64
	Offset uint32
}

// Table is a loaded resolver table.
type Table struct {
	entries []Entry
	data    []byte
}

// Load reads a resolver table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sid: open: %w", err)
	}
	return Parse(data)
}

// Parse builds a Table over data. The slice is retained.
func Parse(data []byte) (*Table, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d for header", ErrTruncatedData, len(data), headerSize)
	}
	count := binary.LittleEndian.Uint64(data)
	avail := uint64(len(data)-headerSize) / EntrySize
	if count > avail {
		return nil, fmt.Errorf("%w: header declares %d entries, file holds %d", ErrTruncatedData, count, avail)
	}

	entries := make([]Entry, count)
	for i := range entries {
		off := headerSize + i*EntrySize
		entries[i] = Entry{
			Hash:   binary.LittleEndian.Uint64(data[off:]),
			Offset: binary.LittleEndian.Uint32(data[off+8:]),
		}
	}
	return &Table{entries: entries, data: data}, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the name for hash. ok is false when the hash is absent or
// its string offset does not address a terminated string in the pool.
func (t *Table) Lookup(hash uint64) (name string, ok bool) {
	if t == nil || len(t.entries) == 0 {
		return "", false
	}
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Hash >= hash
	})
	if i == len(t.entries) || t.entries[i].Hash != hash {
		return "", false
	}
	off := int(t.entries[i].Offset)
	if off >= len(t.data) {
		return "", false
	}
	end := bytes.IndexByte(t.data[off:], 0)
	if end < 0 {
		return "", false
	}
	return string(t.data[off : off+end]), true
}

// Exists reports whether hash resolves.
func (t *Table) Exists(hash uint64) bool {
	_, ok := t.Lookup(hash)
	return ok
}

// Resolve returns the name for hash, or its hex form when unknown.
func (t *Table) Resolve(hash uint64) string {
	if name, ok := t.Lookup(hash); ok {
		return name
	}
	return Format(hash)
}

// Format renders a hash the way unresolved ids are shown in listings.
func Format(hash uint64) string {
	return fmt.Sprintf("#%016X", hash)
}
