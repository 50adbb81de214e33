package disasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// handler executes one instruction against the frame and returns the operand
// text and the comment. A non-nil error is a recoverable fault; the returned
// text is still used.
type handler func(f *StackFrame, in Instruction, ln *Line) (operands, comment string, err error)

// regField marks which instruction fields hold register indices.
type regField uint8

const (
	regDest regField = 1 << iota
	regOp1
	regOp2
)

type opInfo struct {
	regs regField
	exec handler
}

var opTable = buildOpTable()

func buildOpTable() [256]*opInfo {
	var t [256]*opInfo
	set := func(op Opcode, regs regField, h handler) { t[op] = &opInfo{regs: regs, exec: h} }
	rrr := regDest | regOp1 | regOp2
	rr := regDest | regOp1

	set(Return, regDest, execReturn)

	set(IAdd, rrr, execIAdd)
	set(ISub, rrr, intBinary("-", func(a, b int64) int64 { return a - b }, false))
	set(IMul, rrr, intBinary("*", func(a, b int64) int64 { return a * b }, false))
	set(IDiv, rrr, intBinary("/", func(a, b int64) int64 { return a / b }, true))
	set(FAdd, rrr, floatBinary("+", func(a, b float32) float32 { return a + b }, false))
	set(FSub, rrr, floatBinary("-", func(a, b float32) float32 { return a - b }, false))
	set(FMul, rrr, floatBinary("*", func(a, b float32) float32 { return a * b }, false))
	set(FDiv, rrr, floatBinary("/", func(a, b float32) float32 { return a / b }, true))

	set(LoadStaticInt, regDest, execLoadStaticInt)
	set(LoadStaticFloat, regDest, execLoadStaticFloat)
	set(LoadStaticPointer, regDest, execLoadStaticPointer)
	set(LoadU16Imm, regDest, execLoadU16Imm)

	set(LoadU32, rr, loadMemory(Int32(0)))
	set(LoadFloat, rr, loadMemory(Float32(0)))
	set(LoadPointer, rr, loadMemory(Pointer{}))
	set(LoadI64, rr, loadMemory(Int64(0)))
	set(LoadU64, rr, loadMemory(UInt64(0)))
	set(StoreInt, rr, execStore)
	set(StoreFloat, rr, execStore)
	set(StorePointer, rr, execStore)

	set(LookupInt, regDest, execLookupInt)
	set(LookupFloat, regDest, execLookupFloat)
	set(LookupPointer, regDest, execLookupPointer)

	set(MoveInt, rr, execMoveInt)
	set(MoveFloat, rr, execMoveFloat)
	set(MovePointer, rr, execMovePointer)
	set(CastInteger, rr, execCastInteger)
	set(CastFloat, rr, execCastFloat)

	set(Call, rr, execCall)
	set(CallFf, rr, execCall)

	set(IEqual, rrr, intCompare("==", func(a, b int64) bool { return a == b }))
	set(IGreaterThan, rrr, intCompare(">", func(a, b int64) bool { return a > b }))
	set(IGreaterThanEqual, rrr, intCompare(">=", func(a, b int64) bool { return a >= b }))
	set(ILessThan, rrr, intCompare("<", func(a, b int64) bool { return a < b }))
	set(ILessThanEqual, rrr, intCompare("<=", func(a, b int64) bool { return a <= b }))
	set(FEqual, rrr, floatCompare("==", func(a, b float32) bool { return a == b }))
	set(FGreaterThan, rrr, floatCompare(">", func(a, b float32) bool { return a > b }))
	set(FGreaterThanEqual, rrr, floatCompare(">=", func(a, b float32) bool { return a >= b }))
	set(FLessThan, rrr, floatCompare("<", func(a, b float32) bool { return a < b }))
	set(FLessThanEqual, rrr, floatCompare("<=", func(a, b float32) bool { return a <= b }))

	set(IMod, rrr, execIMod)
	set(FMod, rrr, execFMod)
	set(IAbs, rr, execIAbs)
	set(FAbs, rr, execFAbs)
	set(INeg, rr, execINeg)
	set(FNeg, rr, execFNeg)

	set(Branch, 0, execBranch)
	set(BranchIf, regOp1, execBranch)
	set(BranchIfNot, regOp1, execBranch)

	set(OpLogNot, rr, execLogNot)
	set(OpBitNot, rr, execBitNot)
	set(OpBitAnd, rrr, intBinary("&", func(a, b int64) int64 { return a & b }, false))
	set(OpBitOr, rrr, intBinary("|", func(a, b int64) int64 { return a | b }, false))
	set(OpBitXor, rrr, intBinary("^", func(a, b int64) int64 { return a ^ b }, false))
	set(OpBitNor, rrr, intBinary("nor", func(a, b int64) int64 { return ^(a | b) }, false))
	set(OpLogAnd, rrr, logBinary("&&", func(a, b bool) bool { return a && b }))
	set(OpLogOr, rrr, logBinary("||", func(a, b bool) bool { return a || b }))
	return t
}

// badRegister returns the first register operand outside the register file.
func (info *opInfo) badRegister(in Instruction) (uint8, bool) {
	check := []struct {
		f regField
		r uint8
	}{{regDest, in.Dest}, {regOp1, in.Op1}, {regOp2, in.Op2}}
	for _, c := range check {
		if info.regs&c.f != 0 && int(c.r) >= NumRegisters {
			return c.r, true
		}
	}
	return 0, false
}

func regs3(in Instruction) string {
	return fmt.Sprintf("r%d, r%d, r%d", in.Dest, in.Op1, in.Op2)
}

func regs2(in Instruction) string {
	return fmt.Sprintf("r%d, r%d", in.Dest, in.Op1)
}

const divZeroNote = " (divide by 0)"

func execReturn(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	return fmt.Sprintf("r%d", in.Dest), "Return " + f.describe(in.Dest), nil
}

// execIAdd adds integers, or derives a pointer when operand1 holds one.
func execIAdd(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	lhs, rhs := f.describe(in.Op1), f.describe(in.Op2)
	a := f.Registers[in.Op1]
	if p, ok := a.(Pointer); ok {
		f.Registers[in.Dest] = Pointer{Base: p.Base, Offset: p.Base + uint64(intOf(p))}
	} else {
		f.Registers[in.Dest] = Int64(intOf(a) + intOf(f.Registers[in.Op2]))
	}
	return regs3(in), fmt.Sprintf("%s = %s + %s", f.describe(in.Dest), lhs, rhs), nil
}

func intBinary(sym string, fn func(a, b int64) int64, maskZero bool) handler {
	return func(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
		lhs, rhs := f.describe(in.Op1), f.describe(in.Op2)
		a, b := intOf(f.Registers[in.Op1]), intOf(f.Registers[in.Op2])
		note := ""
		if maskZero && b == 0 {
			b, note = 1, divZeroNote
		}
		f.Registers[in.Dest] = Int64(fn(a, b))
		return regs3(in), fmt.Sprintf("%s = %s %s %s%s", f.describe(in.Dest), lhs, sym, rhs, note), nil
	}
}

func floatBinary(sym string, fn func(a, b float32) float32, maskZero bool) handler {
	return func(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
		lhs, rhs := f.describe(in.Op1), f.describe(in.Op2)
		a, b := floatOf(f.Registers[in.Op1]), floatOf(f.Registers[in.Op2])
		note := ""
		if maskZero && b == 0 {
			b, note = 1, divZeroNote
		}
		f.Registers[in.Dest] = Float32(fn(a, b))
		return regs3(in), fmt.Sprintf("%s = %s %s %s%s", f.describe(in.Dest), lhs, sym, rhs, note), nil
	}
}

func logBinary(sym string, fn func(a, b bool) bool) handler {
	return func(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
		lhs, rhs := f.describe(in.Op1), f.describe(in.Op2)
		res := fn(truthy(f.Registers[in.Op1]), truthy(f.Registers[in.Op2]))
		f.Registers[in.Dest] = Bool(res)
		return regs3(in), fmt.Sprintf("r%d = %s %s %s -> <%s>", in.Dest, lhs, sym, rhs, formatBool(res)), nil
	}
}

func truthy(v Value) bool {
	if fv, ok := v.(Float32); ok {
		return fv != 0
	}
	return intOf(v) != 0
}

func intCompare(sym string, fn func(a, b int64) bool) handler {
	return func(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
		a, b := intOf(f.Registers[in.Op1]), intOf(f.Registers[in.Op2])
		res := fn(a, b)
		f.Registers[in.Dest] = Bool(res)
		return regs3(in), fmt.Sprintf("r%d = r%d [%d] %s r%d [%d] -> <%s>",
			in.Dest, in.Op1, a, sym, in.Op2, b, formatBool(res)), nil
	}
}

func floatCompare(sym string, fn func(a, b float32) bool) handler {
	return func(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
		a, b := floatOf(f.Registers[in.Op1]), floatOf(f.Registers[in.Op2])
		res := fn(a, b)
		f.Registers[in.Dest] = Bool(res)
		return regs3(in), fmt.Sprintf("r%d = r%d [%s] %s r%d [%s] -> <%s>",
			in.Dest, in.Op1, formatFloat(a), sym, in.Op2, formatFloat(b), formatBool(res)), nil
	}
}

func execIMod(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a, b := intOf(f.Registers[in.Op1]), intOf(f.Registers[in.Op2])
	note := ""
	if b == 0 {
		note = divZeroNote
	}
	res := Int32(a % nonZero(b))
	f.Registers[in.Dest] = res
	return regs3(in), fmt.Sprintf("r%d = r%d [%d] %% r%d [%d] -> <%d>%s",
		in.Dest, in.Op1, a, in.Op2, b, res, note), nil
}

func nonZero(b int64) int64 {
	if b == 0 {
		return 1
	}
	return b
}

func execFMod(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a, b := floatOf(f.Registers[in.Op1]), floatOf(f.Registers[in.Op2])
	note, div := "", b
	if b == 0 {
		note, div = divZeroNote, 1
	}
	res := float32(math.Mod(float64(a), float64(div)))
	f.Registers[in.Dest] = Float32(res)
	return regs3(in), fmt.Sprintf("r%d = r%d [%s] %% r%d [%s] -> <%s>%s",
		in.Dest, in.Op1, formatFloat(a), in.Op2, formatFloat(b), formatFloat(res), note), nil
}

func execIAbs(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a := intOf(f.Registers[in.Op1])
	res := a
	if res < 0 {
		res = -res
	}
	f.Registers[in.Dest] = Int64(res)
	return regs2(in), fmt.Sprintf("r%d = ABS(r%d) [%d] -> <%d>", in.Dest, in.Op1, a, res), nil
}

func execFAbs(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a := floatOf(f.Registers[in.Op1])
	res := float32(math.Abs(float64(a)))
	f.Registers[in.Dest] = Float32(res)
	return regs2(in), fmt.Sprintf("r%d = ABS(r%d) [%s] -> <%s>", in.Dest, in.Op1, formatFloat(a), formatFloat(res)), nil
}

func execINeg(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a := intOf(f.Registers[in.Op1])
	f.Registers[in.Dest] = Int64(-a)
	return regs2(in), fmt.Sprintf("r%d = -r%d [%d] -> <%d>", in.Dest, in.Op1, a, -a), nil
}

func execFNeg(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a := floatOf(f.Registers[in.Op1])
	f.Registers[in.Dest] = Float32(-a)
	return regs2(in), fmt.Sprintf("r%d = -r%d [%s] -> <%s>", in.Dest, in.Op1, formatFloat(a), formatFloat(-a)), nil
}

func execLogNot(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	src := f.describe(in.Op1)
	res := !truthy(f.Registers[in.Op1])
	f.Registers[in.Dest] = Bool(res)
	return regs2(in), fmt.Sprintf("r%d = !%s -> <%s>", in.Dest, src, formatBool(res)), nil
}

func execBitNot(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	src := f.describe(in.Op1)
	f.Registers[in.Dest] = Int64(^intOf(f.Registers[in.Op1]))
	return regs2(in), fmt.Sprintf("%s = ~%s", f.describe(in.Dest), src), nil
}

func constOperands(in Instruction) string {
	return fmt.Sprintf("r%d, %d", in.Dest, in.Op1)
}

func constFault(f *StackFrame, in Instruction, err error) (string, string, error) {
	f.Registers[in.Dest] = None{}
	return constOperands(in), fmt.Sprintf("r%d = ST[%d] -> <out of range>", in.Dest, in.Op1), err
}

func execLoadStaticInt(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	raw, err := f.constant(in.Op1)
	if err != nil {
		return constFault(f, in, err)
	}
	v := int64(raw)
	f.Registers[in.Dest] = Int64(v)
	f.record(SymbolTableEntry{Location: ln.Location, Index: int(in.Op1), Kind: SymInt, Int: v})
	return constOperands(in), fmt.Sprintf("%s = ST[%d] -> <%d>", f.describe(in.Dest), in.Op1, v), nil
}

func execLoadStaticFloat(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	v, err := f.constantFloat(in.Op1)
	if err != nil {
		return constFault(f, in, err)
	}
	f.Registers[in.Dest] = Float32(v)
	f.record(SymbolTableEntry{Location: ln.Location, Index: int(in.Op1), Kind: SymFloat, Float: v})
	return constOperands(in), fmt.Sprintf("%s = ST[%d] -> <%s>", f.describe(in.Dest), in.Op1, formatFloat(v)), nil
}

func execLoadStaticPointer(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	raw, err := f.constant(in.Op1)
	if err != nil {
		return constFault(f, in, err)
	}
	f.Registers[in.Dest] = Pointer{Base: raw}
	f.record(SymbolTableEntry{Location: ln.Location, Index: int(in.Op1), Kind: SymPointer, Pointer: raw})
	return constOperands(in), fmt.Sprintf("r%d = ST[%d] -> <0x%X>", in.Dest, in.Op1, raw), nil
}

func execLoadU16Imm(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	v := in.Imm16()
	f.Registers[in.Dest] = UInt16(v)
	return fmt.Sprintf("r%d, %d", in.Dest, v), fmt.Sprintf("r%d = %d", in.Dest, v), nil
}

// loadMemory models a load through a register. Memory is not dereferenced:
// the destination receives the zero value of the loaded type.
func loadMemory(zero Value) handler {
	return func(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
		src := memRef(f.Registers[in.Op1], in.Op1)
		f.Registers[in.Dest] = zero
		return fmt.Sprintf("r%d, [r%d]", in.Dest, in.Op1), fmt.Sprintf("r%d = [%s]", in.Dest, src), nil
	}
}

func memRef(v Value, r uint8) string {
	if p, ok := v.(Pointer); ok {
		return fmt.Sprintf("0x%X + 0x%X", p.Base, p.Offset)
	}
	return fmt.Sprintf("r%d", r)
}

func execStore(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	return fmt.Sprintf("[r%d], r%d", in.Dest, in.Op1),
		fmt.Sprintf("[%s] = %s", memRef(f.Registers[in.Dest], in.Dest), f.describe(in.Op1)), nil
}

func execLookupInt(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	raw, err := f.constant(in.Op1)
	if err != nil {
		return constFault(f, in, err)
	}
	f.Registers[in.Dest] = Hash(raw)
	f.record(SymbolTableEntry{Location: ln.Location, Index: int(in.Op1), Kind: SymHash, Hash: raw})
	return constOperands(in), fmt.Sprintf("r%d = ST[%d] -> <%s>", in.Dest, in.Op1, resolve(f.names, raw)), nil
}

func execLookupFloat(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	v, err := f.constantFloat(in.Op1)
	if err != nil {
		return constFault(f, in, err)
	}
	f.Registers[in.Dest] = Float32(v)
	f.record(SymbolTableEntry{Location: ln.Location, Index: int(in.Op1), Kind: SymFloat, Float: v})
	return constOperands(in), fmt.Sprintf("r%d = ST[%d] -> <%.2f>", in.Dest, in.Op1, v), nil
}

func execLookupPointer(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	raw, err := f.constant(in.Op1)
	if err != nil {
		return constFault(f, in, err)
	}
	f.Registers[in.Dest] = Pointer{Base: raw}
	f.record(SymbolTableEntry{Location: ln.Location, Index: int(in.Op1), Kind: SymPointer, Pointer: raw})
	return constOperands(in), fmt.Sprintf("r%d = ST[%d] -> <%s>", in.Dest, in.Op1, resolve(f.names, raw)), nil
}

func execMoveInt(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	v := intOf(f.Registers[in.Op1])
	f.Registers[in.Dest] = Int64(v)
	return regs2(in), fmt.Sprintf("r%d = r%d <%d>", in.Dest, in.Op1, v), nil
}

func execMoveFloat(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	v := floatOf(f.Registers[in.Op1])
	f.Registers[in.Dest] = Float32(v)
	return regs2(in), fmt.Sprintf("r%d = r%d <%s>", in.Dest, in.Op1, formatFloat(v)), nil
}

// execMovePointer copies pointers and hashes as they are; anything else is
// reinterpreted as an address.
func execMovePointer(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	src := f.Registers[in.Op1]
	switch src.(type) {
	case Pointer, Hash:
		f.Registers[in.Dest] = src
	default:
		f.Registers[in.Dest] = Pointer{Base: uintOf(src)}
	}
	return regs2(in), fmt.Sprintf("r%d = r%d <%s>", in.Dest, in.Op1, resolve(f.names, addrOf(src))), nil
}

func execCastInteger(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a := floatOf(f.Registers[in.Op1])
	res := int32(a)
	f.Registers[in.Dest] = Int32(res)
	return regs2(in), fmt.Sprintf("r%d = int(r%d) -> <%s> => <%d>", in.Dest, in.Op1, formatFloat(a), res), nil
}

func execCastFloat(f *StackFrame, in Instruction, _ *Line) (string, string, error) {
	a := intOf(f.Registers[in.Op1])
	res := float32(a)
	f.Registers[in.Dest] = Float32(res)
	return regs2(in), fmt.Sprintf("r%d = float(r%d) -> <%d> => <%s>", in.Dest, in.Op1, a, formatFloat(res)), nil
}

// execCall renders a call whose arguments sit in the window starting at
// ArgBase; operand2 is the argument count.
func execCall(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	ops := fmt.Sprintf("r%d, r%d, %d", in.Dest, in.Op1, in.Op2)
	if ArgBase+int(in.Op2) > NumRegisters {
		return ops, fmt.Sprintf("argument window r%d..r%d out of range", ArgBase, ArgBase+int(in.Op2)-1),
			fmt.Errorf("%w: %d arguments from r%d", ErrRegisterIndexOutOfRange, in.Op2, ArgBase)
	}
	callee := resolve(f.names, addrOf(f.Registers[in.Op1]))
	ln.Callee = callee

	args := make([]string, in.Op2)
	for i := range args {
		switch v := f.Registers[ArgBase+i].(type) {
		case Pointer:
			args[i] = fmt.Sprintf("0x%X", v.Addr())
		case Hash:
			args[i] = resolve(f.names, uint64(v))
		default:
			args[i] = strconv.FormatUint(uintOf(v), 10)
		}
	}
	f.Registers[in.Dest] = None{}
	return ops, fmt.Sprintf("r%d = %s(%s)", in.Dest, callee, strings.Join(args, ", ")), nil
}

// branchTo records the target of ln, its label and, for upward jumps, the
// backward-jump list used for loop discovery. The target is encoded in the
// instruction, so it is recorded even when the condition register is bad.
func branchTo(f *StackFrame, in Instruction, ln *Line) int {
	target := in.Target()
	ln.Target = target
	if target < ln.Location {
		f.BackwardJumps = append(f.BackwardJumps, Jump{Location: ln.Location, Target: target})
	}
	return f.LabelIndex(target)
}

func execBranch(f *StackFrame, in Instruction, ln *Line) (string, string, error) {
	target, label := in.Target(), branchTo(f, in, ln)
	switch in.Opcode {
	case BranchIf:
		return fmt.Sprintf("r%d, 0x%X", in.Op1, target), fmt.Sprintf("IF %s GOTO LABEL_%d", f.describe(in.Op1), label), nil
	case BranchIfNot:
		return fmt.Sprintf("r%d, 0x%X", in.Op1, target), fmt.Sprintf("IF NOT %s GOTO LABEL_%d", f.describe(in.Op1), label), nil
	}
	return fmt.Sprintf("0x%X", target), fmt.Sprintf("GOTO LABEL_%d", label), nil
}
