package disasm

import (
	"encoding/binary"
	"fmt"
	"math"

	"dcdis/internal/sid"
)

// NumRegisters is the size of the register file.
const NumRegisters = 128

// ArgBase is the first register of the outgoing call argument window.
const ArgBase = 49

// ConstantSize is the width of one constant table slot.
const ConstantSize = 8

// Resolver turns a StringId64 into display text.
type Resolver interface {
	Resolve(hash uint64) string
}

func resolve(r Resolver, h uint64) string {
	if r == nil {
		return sid.Format(h)
	}
	return r.Resolve(h)
}

// SymbolKind is the type recorded for a constant table load.
type SymbolKind int

const (
	SymUnknown SymbolKind = iota
	SymInt
	SymFloat
	SymPointer
	SymHash
)

func (k SymbolKind) String() string {
	switch k {
	case SymInt:
		return "int"
	case SymFloat:
		return "float"
	case SymPointer:
		return "pointer"
	case SymHash:
		return "hash"
	default:
		return "unknown"
	}
}

// SymbolTableEntry is a snapshot of one constant table load. The log is
// append-only; repeated loads of one index append repeated entries.
type SymbolTableEntry struct {
	Location int        `json:"location"`
	Index    int        `json:"index"`
	Kind     SymbolKind `json:"kind"`
	Int      int64      `json:"int,omitempty"`
	Float    float32    `json:"float,omitempty"`
	Pointer  uint64     `json:"pointer,omitempty"`
	Hash     uint64     `json:"hash,omitempty"`
}

// Jump is a recorded branch.
type Jump struct {
	Location int `json:"location"`
	Target   int `json:"target"`
}

// StackFrame is the interpreter state for one function. It is owned by a
// single Disassemble call.
type StackFrame struct {
	Registers     [NumRegisters]Value
	Symbols       []SymbolTableEntry
	Labels        []int // jump targets in first-recorded order
	BackwardJumps []Jump

	data        []byte
	constOffset uint64
	labelIdx    map[int]int
	names       Resolver
}

func newStackFrame(data []byte, constOffset uint64, names Resolver) *StackFrame {
	f := &StackFrame{
		data:        data,
		constOffset: constOffset,
		labelIdx:    make(map[int]int),
		names:       names,
	}
	for i := range f.Registers {
		f.Registers[i] = None{}
	}
	return f
}

// ConstOffset is the container offset of the constant table.
func (f *StackFrame) ConstOffset() uint64 { return f.constOffset }

// IsLabel reports whether loc is a recorded jump target.
func (f *StackFrame) IsLabel(loc int) bool {
	_, ok := f.labelIdx[loc]
	return ok
}

// LabelIndex returns the label id of loc, recording it if new.
func (f *StackFrame) LabelIndex(loc int) int {
	if i, ok := f.labelIdx[loc]; ok {
		return i
	}
	i := len(f.Labels)
	f.Labels = append(f.Labels, loc)
	f.labelIdx[loc] = i
	return i
}

// Label returns the label id of loc, or -1.
func (f *StackFrame) Label(loc int) int {
	if i, ok := f.labelIdx[loc]; ok {
		return i
	}
	return -1
}

// constant reads the raw 8-byte slot idx of the constant table.
func (f *StackFrame) constant(idx uint8) (uint64, error) {
	off := f.constOffset + uint64(idx)*ConstantSize
	if off > uint64(len(f.data)) || uint64(len(f.data))-off < ConstantSize {
		return 0, fmt.Errorf("%w: ST[%d] at 0x%x, container ends at 0x%x",
			ErrSymbolTableIndexOutOfRange, idx, off, len(f.data))
	}
	return binary.LittleEndian.Uint64(f.data[off:]), nil
}

// constantFloat reads the float stored in the low half of slot idx.
func (f *StackFrame) constantFloat(idx uint8) (float32, error) {
	raw, err := f.constant(idx)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(raw)), nil
}

func (f *StackFrame) record(e SymbolTableEntry) {
	f.Symbols = append(f.Symbols, e)
}

// describe renders register r with its current value.
func (f *StackFrame) describe(r uint8) string {
	v := f.Registers[r]
	if _, ok := v.(None); ok || v == nil {
		return fmt.Sprintf("r%d", r)
	}
	return fmt.Sprintf("r%d <%s>", r, valueText(v, f.names))
}
