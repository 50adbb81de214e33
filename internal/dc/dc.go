// Package dc parses DC script containers and exposes typed views of their
// entries.
package dc

import (
	"errors"
	"fmt"
	"os"

	"dcdis/internal/dcfmt"
)

// Magic is the container tag read as a little-endian uint32 at offset 0.
const Magic = 0x44433030

// Version is the only supported container version.
const Version = 1

// Fixed record sizes.
const (
	HeaderSize = 0x20
	EntrySize  = 0x18
)

var (
	ErrMalformedContainer = errors.New("dc: malformed container")
	ErrTruncatedData      = errors.New("dc: truncated data")
)

// Header is the fixed container header.
// Layout:
//
//	+0x00: magic        uint32 (0x44433030)
//	+0x04: version      uint32 (always 1)
//	+0x08: textSize     uint32
//	+0x0c: stringsOff   uint32
//	+0x10: field10      uint32 (always 1)
//	+0x14: numEntries   int32
//	+0x18: entries      uint64 (offset of the entry array)
type Header struct {
	Magic         uint32 `json:"magic"`
	Version       uint32 `json:"version"`
	TextSize      uint32 `json:"text_size"`
	StringsOffset uint32 `json:"strings_offset"`
	Field10       uint32 `json:"field_10"`
	NumEntries    int32  `json:"num_entries"`
	EntriesPtr    uint64 `json:"entries_ptr"`
}

// Entry is one record of the entry table.
// Layout:
//
//	+0x00: name   uint64 (StringId64)
//	+0x08: type   uint64 (StringId64 of the type, e.g. "script-lambda")
//	+0x10: ptr    uint64 (offset of the object inside the container)
type Entry struct {
	Index    int    `json:"index"`
	NameHash uint64 `json:"name_hash"`
	TypeHash uint64 `json:"type_hash"`
	Ptr      uint64 `json:"ptr"`
}

// File is a parsed container. All views address Data; nothing is copied.
type File struct {
	Header  Header
	Entries []Entry
	Data    []byte
	Diags   []dcfmt.Diag
}

// Open reads and parses the container at path.
func Open(path string, opts dcfmt.Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dc: open: %w", err)
	}
	return Parse(data, opts)
}

// Parse validates the header and reads the entry table.
// Pointers in the container are offsets from the start of data.
func Parse(data []byte, opts dcfmt.Options) (*File, error) {
	var diags dcfmt.Diags
	s := dcfmt.NewStream(data)

	if len(data) < HeaderSize {
		// Magic and version are checked first even on a short file.
		if len(data) >= 8 {
			if err := checkMagic(data); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncatedData, len(data), HeaderSize)
	}
	if err := checkMagic(data); err != nil {
		return nil, err
	}

	var h Header
	h.Magic, _ = s.ReadUint32()
	h.Version, _ = s.ReadUint32()
	h.TextSize, _ = s.ReadUint32()
	h.StringsOffset, _ = s.ReadUint32()
	h.Field10, _ = s.ReadUint32()
	h.NumEntries, _ = s.ReadInt32()
	h.EntriesPtr, _ = s.ReadUint64()

	if h.NumEntries < 0 {
		return nil, fmt.Errorf("%w: negative entry count %d", ErrMalformedContainer, h.NumEntries)
	}
	if h.Field10 != 1 {
		if opts.Mode == dcfmt.ModeStrict {
			return nil, fmt.Errorf("%w: field_10 = %d, want 1", ErrMalformedContainer, h.Field10)
		}
		diags.Addf(0x10, dcfmt.DiagInvalid, "field_10 = %d, want 1", h.Field10)
	}
	if h.EntriesPtr != HeaderSize {
		diags.Addf(0x18, dcfmt.DiagInvalid, "entry pointer 0x%x, reading table at 0x%x", h.EntriesPtr, HeaderSize)
	}
	if uint64(h.TextSize) > uint64(len(data)) {
		diags.Addf(0x08, dcfmt.DiagTruncated, "text size 0x%x exceeds file size 0x%x", h.TextSize, len(data))
	}

	need := uint64(HeaderSize) + uint64(h.NumEntries)*EntrySize
	if need > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d entries need 0x%x bytes, file has 0x%x", ErrTruncatedData, h.NumEntries, need, len(data))
	}

	entries := make([]Entry, h.NumEntries)
	for i := range entries {
		e := &entries[i]
		e.Index = i
		e.NameHash, _ = s.ReadUint64()
		e.TypeHash, _ = s.ReadUint64()
		e.Ptr, _ = s.ReadUint64()
		if e.Ptr >= uint64(len(data)) {
			diags.Addf(uint64(HeaderSize+i*EntrySize+0x10), dcfmt.DiagInvalid,
				"entry %d pointer 0x%x outside file", i, e.Ptr)
		}
	}

	return &File{
		Header:  h,
		Entries: entries,
		Data:    data,
		Diags:   diags.Items(),
	}, nil
}

func checkMagic(data []byte) error {
	s := dcfmt.NewStream(data)
	magic, _ := s.ReadUint32()
	version, _ := s.ReadUint32()
	if magic != Magic {
		return fmt.Errorf("%w: magic 0x%08x, want 0x%08x", ErrMalformedContainer, magic, uint32(Magic))
	}
	if version != Version {
		return fmt.Errorf("%w: version %d, want %d", ErrMalformedContainer, version, Version)
	}
	return nil
}

// Size returns the container size in bytes.
func (f *File) Size() int { return len(f.Data) }
