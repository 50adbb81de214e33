package disasm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode              = errors.New("disasm: unknown opcode")
	ErrRegisterIndexOutOfRange    = errors.New("disasm: register index out of range")
	ErrSymbolTableIndexOutOfRange = errors.New("disasm: symbol table index out of range")
	ErrMalformedFunction          = errors.New("disasm: malformed function")
)

// Fault is a recoverable decode error tied to one line.
type Fault struct {
	Location int
	Op       Opcode
	Err      error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("line %04X (%s): %v", f.Location, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }
