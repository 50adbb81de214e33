package dc

import (
	"fmt"

	"dcdis/internal/dcfmt"
)

// Kind identifies the typed view of an entry.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindInt32
	KindFloat32
	KindHash
	KindLambda
	KindStateScript
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindInt32:
		return "int32"
	case KindFloat32:
		return "float"
	case KindHash:
		return "sid"
	case KindLambda:
		return "script-lambda"
	case KindStateScript:
		return "state-script"
	default:
		return "unknown"
	}
}

// ParseKind maps a type name to its view kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "boolean", "bool":
		return KindBool, true
	case "int32", "int":
		return KindInt32, true
	case "float", "float32":
		return KindFloat32, true
	case "sid", "symbol":
		return KindHash, true
	case "script-lambda", "lambda":
		return KindLambda, true
	case "state-script":
		return KindStateScript, true
	}
	return KindUnknown, false
}

// NameLookup resolves a hash to its name.
type NameLookup interface {
	Lookup(hash uint64) (string, bool)
}

// Classifier decides the view kind of an entry from its type hash.
// Overrides win over names resolved through Names.
type Classifier struct {
	Names     NameLookup
	Overrides map[uint64]Kind
}

// Kind returns the view kind for typeHash.
func (c Classifier) Kind(typeHash uint64) Kind {
	if k, ok := c.Overrides[typeHash]; ok {
		return k
	}
	if c.Names == nil {
		return KindUnknown
	}
	name, ok := c.Names.Lookup(typeHash)
	if !ok {
		return KindUnknown
	}
	k, _ := ParseKind(name)
	return k
}

// instructionWidth is the size of one encoded VM instruction.
const instructionWidth = 4

// Lambda is a view of a script-lambda object.
// Layout at the entry pointer:
//
//	+0x00: code    uint64 (offset of the first instruction)
//	+0x08: symbols uint64 (offset of the constant table, ends the code)
type Lambda struct {
	Offset      uint64 `json:"offset"`
	InstrOffset uint64 `json:"instr_offset"`
	ConstOffset uint64 `json:"const_offset"`
}

// NumInstructions is the pointer distance between code and constant table.
func (l Lambda) NumInstructions() int {
	return int((l.ConstOffset - l.InstrOffset) / instructionWidth)
}

// Bool reads a boolean entry.
func (f *File) Bool(e Entry) (bool, error) {
	s := dcfmt.NewStreamAt(f.Data, int(min(e.Ptr, uint64(len(f.Data)))))
	b, err := s.ReadByte()
	if err != nil {
		return false, f.truncated(e, err)
	}
	return b != 0, nil
}

// Int32 reads an int32 entry.
func (f *File) Int32(e Entry) (int32, error) {
	s := dcfmt.NewStreamAt(f.Data, int(min(e.Ptr, uint64(len(f.Data)))))
	v, err := s.ReadInt32()
	if err != nil {
		return 0, f.truncated(e, err)
	}
	return v, nil
}

// Float32 reads a float entry.
func (f *File) Float32(e Entry) (float32, error) {
	s := dcfmt.NewStreamAt(f.Data, int(min(e.Ptr, uint64(len(f.Data)))))
	v, err := s.ReadFloat32()
	if err != nil {
		return 0, f.truncated(e, err)
	}
	return v, nil
}

// Hash reads a StringId64 entry.
func (f *File) Hash(e Entry) (uint64, error) {
	v, err := dcfmt.NewStream(f.Data).Uint64At(e.Ptr)
	if err != nil {
		return 0, f.truncated(e, err)
	}
	return v, nil
}

// StateScriptID reads the id stored at the head of a state-script object.
func (f *File) StateScriptID(e Entry) (uint64, error) {
	return f.Hash(e)
}

// Lambda reads a script-lambda entry and validates its code range.
func (f *File) Lambda(e Entry) (Lambda, error) {
	s := dcfmt.NewStream(f.Data)
	code, err := s.Uint64At(e.Ptr)
	if err != nil {
		return Lambda{}, f.truncated(e, err)
	}
	syms, err := s.Uint64At(e.Ptr + 8)
	if err != nil {
		return Lambda{}, f.truncated(e, err)
	}
	l := Lambda{Offset: e.Ptr, InstrOffset: code, ConstOffset: syms}
	switch {
	case syms < code:
		return l, fmt.Errorf("%w: entry %d: constant table 0x%x precedes code 0x%x", ErrMalformedContainer, e.Index, syms, code)
	case syms > uint64(len(f.Data)):
		return l, fmt.Errorf("%w: entry %d: constant table 0x%x outside file", ErrTruncatedData, e.Index, syms)
	case (syms-code)%instructionWidth != 0:
		return l, fmt.Errorf("%w: entry %d: code size 0x%x not a multiple of %d", ErrMalformedContainer, e.Index, syms-code, instructionWidth)
	}
	return l, nil
}

func (f *File) truncated(e Entry, err error) error {
	return fmt.Errorf("%w: entry %d at 0x%x: %v", ErrTruncatedData, e.Index, e.Ptr, err)
}
