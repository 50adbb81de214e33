// Package disasm decodes DC script-lambda bytecode and annotates it by
// tracking register values through a single linear pass.
package disasm

import (
	"fmt"

	"dcdis/internal/dcfmt"
)

// Input locates one function inside a container buffer. Offsets are from the
// start of Data; the code runs from InstrOffset up to ConstOffset.
type Input struct {
	Name        string
	Data        []byte
	InstrOffset uint64
	ConstOffset uint64
}

// Options controls disassembly behavior.
type Options struct {
	dcfmt.Options
	Names Resolver // optional; hashes print as #%016X without it
}

// Line is one decoded and annotated instruction.
type Line struct {
	Location int         `json:"location"`
	Offset   uint64      `json:"offset"`
	Inst     Instruction `json:"inst"`
	Mnemonic string      `json:"mnemonic"`
	Operands string      `json:"operands,omitempty"`
	Text     string      `json:"text"`
	Comment  string      `json:"comment,omitempty"`
	Target   int         `json:"target"` // branch target line, -1 if none
	Label    int         `json:"label"`  // label id when this line is a jump target, else -1
	Callee   string      `json:"callee,omitempty"`
	Fault    *Fault      `json:"-"`
}

// HasTarget reports whether the line is a branch with a decoded target.
func (ln *Line) HasTarget() bool { return ln.Target >= 0 }

// Function is the decoded form of one lambda.
type Function struct {
	Name        string
	InstrOffset uint64
	ConstOffset uint64
	Lines       []*Line
	Frame       *StackFrame
	Faults      []*Fault
	Diags       dcfmt.Diags
}

// Len returns the number of decoded lines.
func (fn *Function) Len() int { return len(fn.Lines) }

// Line returns the line at loc, or nil.
func (fn *Function) Line(loc int) *Line {
	if loc < 0 || loc >= len(fn.Lines) {
		return nil
	}
	return fn.Lines[loc]
}

// Callees returns the distinct resolved callee names in first-call order.
func (fn *Function) Callees() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ln := range fn.Lines {
		if ln.Callee == "" || seen[ln.Callee] {
			continue
		}
		seen[ln.Callee] = true
		out = append(out, ln.Callee)
	}
	return out
}

// Disassemble decodes every instruction of in and visits each line once in
// address order. Recoverable faults are attached to their lines; in strict
// mode the first one is returned as the error together with the partial
// function.
func Disassemble(in Input, opts Options) (*Function, error) {
	size := uint64(len(in.Data))
	if in.InstrOffset > in.ConstOffset || in.ConstOffset > size {
		return nil, fmt.Errorf("%w: %s: code [0x%x, 0x%x) outside container of 0x%x bytes",
			ErrMalformedFunction, in.Name, in.InstrOffset, in.ConstOffset, size)
	}
	if (in.ConstOffset-in.InstrOffset)%InstructionSize != 0 {
		return nil, fmt.Errorf("%w: %s: code size 0x%x not a multiple of %d",
			ErrMalformedFunction, in.Name, in.ConstOffset-in.InstrOffset, InstructionSize)
	}

	fn := &Function{
		Name:        in.Name,
		InstrOffset: in.InstrOffset,
		ConstOffset: in.ConstOffset,
		Frame:       newStackFrame(in.Data, in.ConstOffset, opts.Names),
	}

	n := int((in.ConstOffset - in.InstrOffset) / InstructionSize)
	if maxSteps := opts.EffectiveMaxSteps(); n > maxSteps {
		fn.Diags.Addf(in.InstrOffset, dcfmt.DiagTruncated,
			"%s: %d instructions, decoding capped at %d", in.Name, n, maxSteps)
		n = maxSteps
	}

	fn.Lines = make([]*Line, n)
	for i := range fn.Lines {
		off := in.InstrOffset + uint64(i)*InstructionSize
		fn.Lines[i] = &Line{
			Location: i,
			Offset:   off,
			Inst:     Decode(in.Data[off:]),
			Target:   -1,
			Label:    -1,
		}
	}

	for _, ln := range fn.Lines {
		step(fn.Frame, ln)
		if ln.Fault == nil {
			continue
		}
		fn.Faults = append(fn.Faults, ln.Fault)
		if !ln.Inst.Opcode.Known() {
			fn.Diags.Addf(ln.Offset, dcfmt.DiagUnknownOp,
				"%s: line %04X holds unknown opcode 0x%02X", fn.Name, ln.Location, uint8(ln.Inst.Opcode))
		}
		if opts.Mode == dcfmt.ModeStrict {
			return fn, ln.Fault
		}
	}

	for _, ln := range fn.Lines {
		ln.Label = fn.Frame.Label(ln.Location)
		if ln.HasTarget() && ln.Target >= n {
			fn.Diags.Addf(ln.Offset, dcfmt.DiagOutOfRange,
				"%s: line %04X branches to %04X past the last line %04X", fn.Name, ln.Location, ln.Target, n-1)
		}
	}
	return fn, nil
}

// step executes one line against the frame and renders its text.
func step(f *StackFrame, ln *Line) {
	in := ln.Inst
	info := opTable[in.Opcode]

	switch {
	case info == nil:
		ln.Mnemonic = ".word"
		ln.Operands = fmt.Sprintf("0x%08X", in.Word())
		ln.Comment = fmt.Sprintf("unknown opcode 0x%02X", uint8(in.Opcode))
		ln.Fault = &Fault{Location: ln.Location, Op: in.Opcode,
			Err: fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, uint8(in.Opcode))}
	default:
		ln.Mnemonic = in.Opcode.String()
		if r, bad := info.badRegister(in); bad {
			ln.Operands = fmt.Sprintf("%d, %d, %d", in.Dest, in.Op1, in.Op2)
			ln.Comment = fmt.Sprintf("register r%d out of range", r)
			if in.Opcode.IsBranch() {
				label := branchTo(f, in, ln)
				ln.Operands = fmt.Sprintf("r%d, 0x%X", in.Op1, ln.Target)
				ln.Comment += fmt.Sprintf(", GOTO LABEL_%d", label)
			}
			ln.Fault = &Fault{Location: ln.Location, Op: in.Opcode,
				Err: fmt.Errorf("%w: r%d (file has %d)", ErrRegisterIndexOutOfRange, r, NumRegisters)}
			break
		}
		ops, comment, err := info.exec(f, in, ln)
		ln.Operands, ln.Comment = ops, comment
		if err != nil {
			ln.Fault = &Fault{Location: ln.Location, Op: in.Opcode, Err: err}
		}
	}
	ln.Text = lineText(ln)
}

func lineText(ln *Line) string {
	b := ln.Inst.Encode()
	return fmt.Sprintf("%04X   0x%06X   %02X %02X %02X %02X    %-20s%s",
		ln.Location, ln.Offset, b[0], b[1], b[2], b[3], ln.Mnemonic, ln.Operands)
}
