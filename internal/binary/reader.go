// Package binary implements the low-level byte plumbing shared by every
// format structure in this library: cursor-style readers and writers over
// io.ReaderAt/io.WriterAt with the variable-width offset and length fields
// the superblock dictates, plus the two checksums HDF5 uses (Jenkins
// lookup3 for metadata, Fletcher-32 for the checksum filter).
//
// All multi-byte metadata fields in an HDF5 file are little-endian; only
// dataset element values may carry other byte orders, and those are
// handled by the dtype package.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrBadFieldSize is returned when an offset or length field width is not
// one of the sizes the format allows.
var ErrBadFieldSize = errors.New("offset/length size must be 2, 4, or 8 bytes")

// Geometry carries the file-wide field widths declared by the superblock.
type Geometry struct {
	OffsetSize int // width of file addresses: 2, 4, or 8
	LengthSize int // width of length fields: 2, 4, or 8
}

// DefaultGeometry is the geometry assumed before the superblock has been
// parsed, and the one this library writes: 8-byte offsets and lengths.
func DefaultGeometry() Geometry {
	return Geometry{OffsetSize: 8, LengthSize: 8}
}

// Valid reports whether both field widths are acceptable.
func (g Geometry) Valid() bool {
	ok := func(n int) bool { return n == 2 || n == 4 || n == 8 }
	return ok(g.OffsetSize) && ok(g.LengthSize)
}

// Reader is a positioned cursor over an io.ReaderAt. Readers are cheap
// values: At returns an independent cursor sharing the same underlying
// source, which is how callers descend into nested structures without
// disturbing each other.
type Reader struct {
	src io.ReaderAt
	geo Geometry
	pos int64
}

// NewReader returns a reader positioned at offset 0.
func NewReader(src io.ReaderAt, geo Geometry) *Reader {
	return &Reader{src: src, geo: geo}
}

// At returns a new reader over the same source positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{src: r.src, geo: r.geo, pos: offset}
}

// WithGeometry returns a new reader with the given field widths, keeping
// the current position. Used once the superblock has been parsed.
func (r *Reader) WithGeometry(geo Geometry) *Reader {
	return &Reader{src: r.src, geo: geo, pos: r.pos}
}

// Pos returns the current position.
func (r *Reader) Pos() int64 { return r.pos }

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// Align advances the cursor to the next multiple of n, if not already there.
func (r *Reader) Align(n int64) {
	if n > 1 {
		if rem := r.pos % n; rem != 0 {
			r.pos += n - rem
		}
	}
}

// ReadBytes reads exactly n bytes and advances the cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// Peek reads n bytes without moving the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// ReadUintN reads a little-endian unsigned integer of n bytes, any n in 1..8.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(buf), nil
}

// ReadOffset reads a file address using the configured offset width.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUintN(r.geo.OffsetSize)
}

// ReadLength reads a length using the configured length width.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadUintN(r.geo.LengthSize)
}

// ReadFixedString reads n bytes and returns the string up to the first NUL.
func (r *Reader) ReadFixedString(n int) (string, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return CutString(buf), nil
}

// IsUndefinedOffset reports whether addr is the all-ones "undefined
// address" sentinel at the configured offset width.
func (r *Reader) IsUndefinedOffset(addr uint64) bool {
	return addr == Undefined(r.geo.OffsetSize)
}

// IsUndefinedLength reports whether length is the all-ones sentinel at the
// configured length width.
func (r *Reader) IsUndefinedLength(length uint64) bool {
	return length == Undefined(r.geo.LengthSize)
}

// OffsetSize returns the configured file address width.
func (r *Reader) OffsetSize() int { return r.geo.OffsetSize }

// LengthSize returns the configured length width.
func (r *Reader) LengthSize() int { return r.geo.LengthSize }

// Geometry returns the configured field widths.
func (r *Reader) Geometry() Geometry { return r.geo }

// DecodeUint decodes a little-endian unsigned integer of len(buf) bytes,
// len(buf) between 0 and 8.
func DecodeUint(buf []byte) uint64 {
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// Undefined returns the all-ones sentinel for a field of the given width.
func Undefined(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return 1<<(size*8) - 1
}

// CutString returns the prefix of buf up to the first NUL byte.
func CutString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
