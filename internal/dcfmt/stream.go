// Little-endian bounded reader over a DC container buffer.
package dcfmt

import (
	"encoding/binary"
	"errors"
	"math"
)

var ErrStreamEOF = errors.New("stream: unexpected end of data")

// Stream reads fixed-width little-endian values from a byte buffer.
// Every read is bounds-checked; nothing is read past end.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	if offset < 0 {
		offset = 0
	}
	return &Stream{data: data, pos: offset, end: len(data)}
}

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadUint64 reads a little-endian uint64.
func (s *Stream) ReadUint64() (uint64, error) {
	if s.pos+8 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint64(s.data[s.pos:])
	s.pos += 8
	return v, nil
}

// ReadInt32 reads a little-endian int32.
func (s *Stream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

// ReadFloat32 reads a little-endian IEEE-754 float32.
func (s *Stream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	return math.Float32frombits(v), err
}

// Uint64At reads a little-endian uint64 at an absolute offset without
// moving the stream position.
func (s *Stream) Uint64At(off uint64) (uint64, error) {
	if off > uint64(s.end) || uint64(s.end)-off < 8 {
		return 0, ErrStreamEOF
	}
	return binary.LittleEndian.Uint64(s.data[off:]), nil
}
