package dc

import (
	"encoding/binary"
	"math"
)

// Builder assembles a container image. It is used to produce fixtures and
// hand-written test containers.
type Builder struct {
	entries []builderEntry
}

type builderEntry struct {
	name, typ uint64
	payload   func(base uint64) []byte
}

// Add appends an entry whose object bytes are payload.
func (b *Builder) Add(name, typ uint64, payload []byte) {
	b.entries = append(b.entries, builderEntry{name: name, typ: typ, payload: func(uint64) []byte { return payload }})
}

// AddBool appends a boolean entry.
func (b *Builder) AddBool(name, typ uint64, v bool) {
	var p byte
	if v {
		p = 1
	}
	b.Add(name, typ, []byte{p})
}

// AddInt32 appends an int32 entry.
func (b *Builder) AddInt32(name, typ uint64, v int32) {
	b.Add(name, typ, binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

// AddFloat32 appends a float entry.
func (b *Builder) AddFloat32(name, typ uint64, v float32) {
	b.Add(name, typ, binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)))
}

// AddHash appends a StringId64 entry (also used for state scripts).
func (b *Builder) AddHash(name, typ uint64, v uint64) {
	b.Add(name, typ, binary.LittleEndian.AppendUint64(nil, v))
}

// AddLambda appends a script-lambda whose code is followed directly by its
// constant table.
func (b *Builder) AddLambda(name, typ uint64, code []byte, consts []uint64) {
	b.entries = append(b.entries, builderEntry{name: name, typ: typ, payload: func(base uint64) []byte {
		codeOff := base + 16
		symOff := codeOff + uint64(len(code))
		out := binary.LittleEndian.AppendUint64(nil, codeOff)
		out = binary.LittleEndian.AppendUint64(out, symOff)
		out = append(out, code...)
		for _, c := range consts {
			out = binary.LittleEndian.AppendUint64(out, c)
		}
		return out
	}})
}

// Bytes lays out header, entry table and objects.
func (b *Builder) Bytes() []byte {
	objBase := uint64(HeaderSize + len(b.entries)*EntrySize)

	out := make([]byte, objBase)
	binary.LittleEndian.PutUint32(out[0x00:], Magic)
	binary.LittleEndian.PutUint32(out[0x04:], Version)
	binary.LittleEndian.PutUint32(out[0x0c:], 0)
	binary.LittleEndian.PutUint32(out[0x10:], 1)
	binary.LittleEndian.PutUint32(out[0x14:], uint32(len(b.entries)))
	binary.LittleEndian.PutUint64(out[0x18:], HeaderSize)

	for i, e := range b.entries {
		ptr := uint64(len(out))
		out = append(out, e.payload(ptr)...)
		for len(out)%8 != 0 {
			out = append(out, 0)
		}
		rec := HeaderSize + i*EntrySize
		binary.LittleEndian.PutUint64(out[rec:], e.name)
		binary.LittleEndian.PutUint64(out[rec+8:], e.typ)
		binary.LittleEndian.PutUint64(out[rec+16:], ptr)
	}
	binary.LittleEndian.PutUint32(out[0x08:], uint32(len(out)))
	return out
}
