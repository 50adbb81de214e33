package disasm

import "fmt"

// Opcode is the first byte of an encoded instruction.
type Opcode uint8

const (
	Return Opcode = iota
	IAdd
	ISub
	IMul
	IDiv
	FAdd
	FSub
	FMul
	FDiv
	LoadStaticInt
	LoadStaticFloat
	LoadStaticPointer
	LoadU16Imm
	LoadU32
	LoadFloat
	LoadPointer
	LoadI64
	LoadU64
	StoreInt
	StoreFloat
	StorePointer
	LookupInt
	LookupFloat
	LookupPointer
	MoveInt
	MoveFloat
	MovePointer
	CastInteger
	CastFloat
	Call
	CallFf
	IEqual
	IGreaterThan
	IGreaterThanEqual
	ILessThan
	ILessThanEqual
	FEqual
	FGreaterThan
	FGreaterThanEqual
	FLessThan
	FLessThanEqual
	IMod
	FMod
	IAbs
	FAbs
	Branch
	BranchIf
	BranchIfNot
	OpLogNot
	OpBitAnd
	OpBitNot
	OpBitOr
	OpBitXor
	OpBitNor
	OpLogAnd
	OpLogOr
	INeg
	FNeg

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	Return:            "Return",
	IAdd:              "IAdd",
	ISub:              "ISub",
	IMul:              "IMul",
	IDiv:              "IDiv",
	FAdd:              "FAdd",
	FSub:              "FSub",
	FMul:              "FMul",
	FDiv:              "FDiv",
	LoadStaticInt:     "LoadStaticInt",
	LoadStaticFloat:   "LoadStaticFloat",
	LoadStaticPointer: "LoadStaticPointer",
	LoadU16Imm:        "LoadU16Imm",
	LoadU32:           "LoadU32",
	LoadFloat:         "LoadFloat",
	LoadPointer:       "LoadPointer",
	LoadI64:           "LoadI64",
	LoadU64:           "LoadU64",
	StoreInt:          "StoreInt",
	StoreFloat:        "StoreFloat",
	StorePointer:      "StorePointer",
	LookupInt:         "LookupInt",
	LookupFloat:       "LookupFloat",
	LookupPointer:     "LookupPointer",
	MoveInt:           "MoveInt",
	MoveFloat:         "MoveFloat",
	MovePointer:       "MovePointer",
	CastInteger:       "CastInteger",
	CastFloat:         "CastFloat",
	Call:              "Call",
	CallFf:            "CallFf",
	IEqual:            "IEqual",
	IGreaterThan:      "IGreaterThan",
	IGreaterThanEqual: "IGreaterThanEqual",
	ILessThan:         "ILessThan",
	ILessThanEqual:    "ILessThanEqual",
	FEqual:            "FEqual",
	FGreaterThan:      "FGreaterThan",
	FGreaterThanEqual: "FGreaterThanEqual",
	FLessThan:         "FLessThan",
	FLessThanEqual:    "FLessThanEqual",
	IMod:              "IMod",
	FMod:              "FMod",
	IAbs:              "IAbs",
	FAbs:              "FAbs",
	Branch:            "Branch",
	BranchIf:          "BranchIf",
	BranchIfNot:       "BranchIfNot",
	OpLogNot:          "OpLogNot",
	OpBitAnd:          "OpBitAnd",
	OpBitNot:          "OpBitNot",
	OpBitOr:           "OpBitOr",
	OpBitXor:          "OpBitXor",
	OpBitNor:          "OpBitNor",
	OpLogAnd:          "OpLogAnd",
	OpLogOr:           "OpLogOr",
	INeg:              "INeg",
	FNeg:              "FNeg",
}

// Known reports whether op is a defined opcode.
func (op Opcode) Known() bool { return op < numOpcodes }

func (op Opcode) String() string {
	if op.Known() {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(0x%02x)", uint8(op))
}

// IsBranch reports whether op transfers control to an encoded target.
func (op Opcode) IsBranch() bool {
	return op == Branch || op == BranchIf || op == BranchIfNot
}

// IsConditional reports whether op has a fall-through successor.
func (op Opcode) IsConditional() bool {
	return op == BranchIf || op == BranchIfNot
}

// IsCall reports whether op is a script or foreign call.
func (op Opcode) IsCall() bool {
	return op == Call || op == CallFf
}

