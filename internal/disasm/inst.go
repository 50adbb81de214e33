package disasm

import "encoding/binary"

// InstructionSize is the width of one encoded instruction.
const InstructionSize = 4

// Instruction is one decoded word: opcode, destination, operand1, operand2,
// in memory order.
type Instruction struct {
	Opcode Opcode `json:"opcode"`
	Dest   uint8  `json:"dest"`
	Op1    uint8  `json:"op1"`
	Op2    uint8  `json:"op2"`
}

// Decode decodes the first InstructionSize bytes of b.
func Decode(b []byte) Instruction {
	_ = b[InstructionSize-1]
	return Instruction{Opcode: Opcode(b[0]), Dest: b[1], Op1: b[2], Op2: b[3]}
}

// Encode returns the instruction bytes.
func (in Instruction) Encode() [InstructionSize]byte {
	return [InstructionSize]byte{byte(in.Opcode), in.Dest, in.Op1, in.Op2}
}

// Word returns the instruction as a little-endian word.
func (in Instruction) Word() uint32 {
	b := in.Encode()
	return binary.LittleEndian.Uint32(b[:])
}

// Target is the absolute line index encoded by branch instructions:
// destination byte | operand2 << 8.
func (in Instruction) Target() int {
	return int(in.Dest) | int(in.Op2)<<8
}

// Imm16 is the immediate encoded by LoadU16Imm: operand1 | operand2 << 8.
func (in Instruction) Imm16() uint16 {
	return uint16(in.Op1) | uint16(in.Op2)<<8
}

// Assemble encodes a sequence of instructions.
func Assemble(insts ...Instruction) []byte {
	out := make([]byte, 0, len(insts)*InstructionSize)
	for _, in := range insts {
		b := in.Encode()
		out = append(out, b[:]...)
	}
	return out
}

// Op builds an instruction from its four fields.
func Op(op Opcode, dest, op1, op2 uint8) Instruction {
	return Instruction{Opcode: op, Dest: dest, Op1: op1, Op2: op2}
}

// Jmp builds a branch instruction to target. cond is the condition register
// and is ignored for Branch.
func Jmp(op Opcode, cond uint8, target int) Instruction {
	return Instruction{Opcode: op, Dest: uint8(target), Op1: cond, Op2: uint8(target >> 8)}
}
