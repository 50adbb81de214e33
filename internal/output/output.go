// Package output writes dcdis analysis results to files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dcdis/internal/cfg"
	"dcdis/internal/disasm"
)

// SafeName turns a script name into a file name: path separators and
// characters that are awkward in file names become underscores.
func SafeName(name string) string {
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.' || r == '_' || r == '#':
			return r
		}
		return '_'
	}, name)
}

// WriteText writes text to dir/name, creating parent directories.
func WriteText(dir, name, text string) error {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(text), 0644)
}

// WriteASM writes the listing of fn to asm/<name>.txt.
func WriteASM(dir, name string, fn *disasm.Function) error {
	return WriteText(dir, filepath.Join("asm", name+".txt"), disasm.Format(fn))
}

// WriteCFGText writes the node/edge dump of g to cfg/<name>.txt.
func WriteCFGText(dir, name string, g *cfg.Graph) error {
	var sb strings.Builder
	if err := cfg.WriteText(&sb, g); err != nil {
		return err
	}
	return WriteText(dir, filepath.Join("cfg", name+".txt"), sb.String())
}

// WriteDOT writes a DOT document to dir/rel. Empty documents are skipped.
func WriteDOT(dir, rel, dot string) error {
	if dot == "" {
		return nil
	}
	return WriteText(dir, rel, dot)
}

// JSONL writes one JSON document per line.
type JSONL struct {
	f    *os.File
	enc  *json.Encoder
	name string
}

// CreateJSONL creates dir/name for line-delimited records.
func CreateJSONL(dir, name string) (*JSONL, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("output: create %s: %w", name, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONL{f: f, enc: enc, name: name}, nil
}

// Write appends one record.
func (j *JSONL) Write(v any) error {
	if err := j.enc.Encode(v); err != nil {
		return fmt.Errorf("output: write %s: %w", j.name, err)
	}
	return nil
}

// Close closes the underlying file.
func (j *JSONL) Close() error { return j.f.Close() }
