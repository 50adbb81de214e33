// Package dcfmt provides shared types and diagnostics for DC container parsing.
package dcfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated   DiagKind = "truncated"
	DiagInvalid     DiagKind = "invalid"
	DiagUnknownOp   DiagKind = "unknown_opcode"
	DiagOutOfRange  DiagKind = "out_of_range"
	DiagDominance   DiagKind = "dominance"
	DiagUnreachable DiagKind = "unreachable"
)

// Diag records a non-fatal issue encountered during parsing or analysis.
type Diag struct {
	Offset uint64   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Mode controls error handling behavior.
type Mode int

const (
	ModeBestEffort Mode = iota // record faults, keep decoding
	ModeStrict                 // first fault returns error
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "best-effort"
}

// Options controls parsing behavior across packages.
type Options struct {
	Mode     Mode
	MaxSteps int // per-function instruction cap; 0 = use default
}

// DefaultMaxSteps is the default per-function instruction cap.
const DefaultMaxSteps = 1_000_000

func (o Options) EffectiveMaxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}
