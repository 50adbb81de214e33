package disasm

import (
	"fmt"
	"math"
	"strconv"
)

// Value is the tracked content of one register. Exactly one concrete type
// per variant: None, Int64, UInt64, Int32, UInt16, Float32, Bool, Pointer, Hash.
type Value interface {
	isValue()
}

type (
	None    struct{}
	Int64   int64
	UInt64  uint64
	Int32   int32
	UInt16  uint16
	Float32 float32
	Bool    bool
	Hash    uint64
)

// Pointer is an address inside the container plus a displacement.
type Pointer struct {
	Base   uint64
	Offset uint64
}

// Addr returns the effective address.
func (p Pointer) Addr() uint64 { return p.Base + p.Offset }

func (None) isValue()    {}
func (Int64) isValue()   {}
func (UInt64) isValue()  {}
func (Int32) isValue()   {}
func (UInt16) isValue()  {}
func (Float32) isValue() {}
func (Bool) isValue()    {}
func (Hash) isValue()    {}
func (Pointer) isValue() {}

// intOf is the integer view used by integer arithmetic and comparisons.
// A pointer's integer value is its displacement.
func intOf(v Value) int64 {
	switch v := v.(type) {
	case Int64:
		return int64(v)
	case UInt64:
		return int64(v)
	case Int32:
		return int64(v)
	case UInt16:
		return int64(v)
	case Float32:
		return int64(v)
	case Bool:
		if v {
			return 1
		}
		return 0
	case Hash:
		return int64(v)
	case Pointer:
		return int64(v.Offset)
	}
	return 0
}

// floatOf is the float view used by float arithmetic and comparisons.
func floatOf(v Value) float32 {
	switch v := v.(type) {
	case Float32:
		return float32(v)
	case nil, None, Pointer, Hash:
		return 0
	}
	return float32(intOf(v))
}

// uintOf renders non-pointer, non-hash call arguments.
func uintOf(v Value) uint64 {
	if f, ok := v.(Float32); ok {
		return uint64(math.Float32bits(float32(f)))
	}
	return uint64(intOf(v))
}

// addrOf is the address a value designates when used as a callee or pointer.
func addrOf(v Value) uint64 {
	switch v := v.(type) {
	case Pointer:
		return v.Addr()
	case Hash:
		return uint64(v)
	}
	return uintOf(v)
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// valueText renders v for comments. Hashes resolve through names.
func valueText(v Value, names Resolver) string {
	switch v := v.(type) {
	case Int64:
		return strconv.FormatInt(int64(v), 10)
	case UInt64:
		return strconv.FormatUint(uint64(v), 10)
	case Int32:
		return strconv.FormatInt(int64(v), 10)
	case UInt16:
		return strconv.FormatUint(uint64(v), 10)
	case Float32:
		return formatFloat(float32(v))
	case Bool:
		return formatBool(bool(v))
	case Hash:
		return resolve(names, uint64(v))
	case Pointer:
		if v.Offset == 0 {
			return fmt.Sprintf("0x%X", v.Base)
		}
		return fmt.Sprintf("0x%X+0x%X", v.Base, v.Offset)
	}
	return ""
}

// TypeName names the variant of v.
func TypeName(v Value) string {
	switch v.(type) {
	case Int64:
		return "i64"
	case UInt64:
		return "u64"
	case Int32:
		return "i32"
	case UInt16:
		return "u16"
	case Float32:
		return "f32"
	case Bool:
		return "bool"
	case Hash:
		return "sid"
	case Pointer:
		return "ptr"
	}
	return "none"
}
