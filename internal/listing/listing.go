// Package listing renders a whole DC container as an annotated text listing:
// a header, one line per scalar entry and a full disassembly per lambda.
package listing

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"dcdis/internal/dc"
	"dcdis/internal/disasm"
	"dcdis/internal/sid"
)

// Paint decorates one span of listing text.
type Paint func(a ...any) string

// Style maps listing elements to paints. Nil fields print plain text.
type Style struct {
	Header  Paint
	Comment Paint
	Opcode  Paint
	Text    Paint // instruction comments
	Hash    Paint
	Label   Paint
}

// Options controls the listing.
type Options struct {
	Names      disasm.Resolver
	Classifier dc.Classifier
	Disasm     disasm.Options
	Style      Style
	// Functions holds already decoded lambdas keyed by entry index. Missing
	// lambdas are decoded on demand.
	Functions map[int]*disasm.Function
}

const (
	banner     = "--------------------------------------------------"
	indentBody = 2
	indentHead = 20
	indentLine = 14
)

type writer struct {
	w    *bufio.Writer
	f    *dc.File
	opts Options
}

func paint(p Paint, s string) string {
	if p == nil {
		return s
	}
	return p(s)
}

func (lw *writer) span(p Paint, indent int, s string) {
	lw.w.WriteString(strings.Repeat(" ", indent))
	lw.w.WriteString(paint(p, s))
}

func (lw *writer) resolve(h uint64) string {
	if lw.opts.Names == nil {
		return sid.Format(h)
	}
	return lw.opts.Names.Resolve(h)
}

// Write renders f. Entries that cannot be read are reported inline and the
// listing continues with the next entry; only write failures are returned.
func Write(w io.Writer, f *dc.File, opts Options) error {
	lw := &writer{w: bufio.NewWriter(w), f: f, opts: opts}
	st := opts.Style

	lw.header()
	for _, e := range f.Entries {
		kind := opts.Classifier.Kind(e.TypeHash)
		switch kind {
		case dc.KindBool:
			v, err := f.Bool(e)
			lw.scalar("BOOL", e, fmt.Sprint(v), err)
		case dc.KindInt32:
			v, err := f.Int32(e)
			lw.scalar("Integer", e, fmt.Sprint(v), err)
		case dc.KindFloat32:
			v, err := f.Float32(e)
			lw.scalar("Float", e, fmt.Sprintf("%f", v), err)
		case dc.KindHash:
			v, err := f.Hash(e)
			lw.id("Hash", v, err)
		case dc.KindStateScript:
			v, err := f.StateScriptID(e)
			lw.id("State Script ID", v, err)
		case dc.KindLambda:
			lw.lambda(e)
		default:
			lw.span(st.Comment, indentHead, "UNKNOWN SYMBOL TYPE: ")
			lw.span(st.Opcode, 0, fmt.Sprintf("0x%06X\n", e.Ptr))
		}
	}
	return lw.w.Flush()
}

func (lw *writer) header() {
	st := lw.opts.Style
	name, id := "UNKNOWN SCRIPT", "UNKNOWN SCRIPT ID"
	for _, e := range lw.f.Entries {
		if lw.opts.Classifier.Kind(e.TypeHash) != dc.KindStateScript {
			continue
		}
		if h, err := lw.f.StateScriptID(e); err == nil {
			name, id = lw.resolve(h), sid.Format(h)
			break
		}
	}
	lw.span(st.Header, indentHead, "Listing for script: "+name+"\n")
	lw.span(st.Header, indentHead, "Script ID: "+id+"\n")
	lw.span(st.Header, indentHead, fmt.Sprintf("Filesize: %d bytes\n\n", lw.f.Size()))
	lw.span(st.Comment, indentHead, "START OF DISASSEMBLY\n")
	lw.span(st.Comment, indentHead, banner+"\n")
}

func (lw *writer) errorLine(err error) {
	lw.span(lw.opts.Style.Comment, indentHead, "ERROR: "+err.Error()+"\n")
}

func (lw *writer) scalar(label string, e dc.Entry, value string, err error) {
	if err != nil {
		lw.errorLine(err)
		return
	}
	lw.span(lw.opts.Style.Opcode, indentBody, fmt.Sprintf("%s: 0x%06X <%s>\n", label, e.Ptr, value))
}

func (lw *writer) id(label string, h uint64, err error) {
	if err != nil {
		lw.errorLine(err)
		return
	}
	lw.span(lw.opts.Style.Opcode, indentBody, label+": ")
	lw.span(lw.opts.Style.Hash, 0, lw.resolve(h)+"\n")
}

func (lw *writer) lambda(e dc.Entry) {
	st := lw.opts.Style
	lw.span(st.Comment, indentHead, "BEGIN LAMBDA ")
	lw.span(st.Hash, 0, "<"+lw.resolve(e.NameHash)+">")
	lw.span(st.Comment, 0, " AT ")
	lw.span(st.Opcode, 0, fmt.Sprintf("[0x%06X]\n", e.Ptr))

	fn := lw.opts.Functions[e.Index]
	if fn == nil {
		l, err := lw.f.Lambda(e)
		if err != nil {
			lw.errorLine(err)
			return
		}
		fn, err = disasm.Disassemble(disasm.Input{
			Name:        lw.resolve(e.NameHash),
			Data:        lw.f.Data,
			InstrOffset: l.InstrOffset,
			ConstOffset: l.ConstOffset,
		}, lw.opts.Disasm)
		if fn == nil {
			lw.errorLine(err)
			return
		}
	}

	lw.span(st.Comment, indentHead, fmt.Sprintf("INSTRUCTION POINTER: 0x%06X\n", fn.InstrOffset))
	lw.span(st.Comment, indentHead, fmt.Sprintf("SYMBOL TABLE POINTER: 0x%06X\n", fn.ConstOffset))
	lw.function(fn)
}

func (lw *writer) function(fn *disasm.Function) {
	st := lw.opts.Style
	for _, ln := range fn.Lines {
		if ln.Label >= 0 {
			lw.span(st.Label, 12, fmt.Sprintf("LABEL_%d:\n", ln.Label))
		}
		lw.span(st.Opcode, indentLine, ln.Text)
		if ln.Comment != "" {
			lw.span(st.Text, 0, "    ; "+ln.Comment)
		}
		lw.w.WriteByte('\n')
	}
}
