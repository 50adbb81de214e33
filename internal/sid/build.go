package sid

import (
	"encoding/binary"
	"sort"
)

// Encode produces a table blob for names, sorted ascending by hash.
func Encode(names map[uint64]string) []byte {
	hashes := make([]uint64, 0, len(names))
	for h := range names {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	poolStart := headerSize + len(hashes)*EntrySize
	out := make([]byte, poolStart)
	binary.LittleEndian.PutUint64(out, uint64(len(hashes)))
	for i, h := range hashes {
		off := headerSize + i*EntrySize
		binary.LittleEndian.PutUint64(out[off:], h)
		binary.LittleEndian.PutUint32(out[off+8:], uint32(len(out)))
		out = append(out, names[h]...)
		out = append(out, 0)
	}
	return out
}

// FromMap builds an in-memory Table from names.
func FromMap(names map[uint64]string) *Table {
	t, err := Parse(Encode(names))
	if err != nil {
		// Encode always produces a well-formed blob.
		panic(err)
	}
	return t
}
