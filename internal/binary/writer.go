package binary

import (
	"encoding/binary"
	"io"
)

// Writer is the writing counterpart of Reader: a positioned cursor over an
// io.WriterAt with the same variable-width field handling.
type Writer struct {
	dst io.WriterAt
	geo Geometry
	pos int64
}

// NewWriter returns a writer positioned at offset 0.
func NewWriter(dst io.WriterAt, geo Geometry) *Writer {
	return &Writer{dst: dst, geo: geo}
}

// At returns a new writer over the same destination positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{dst: w.dst, geo: w.geo, pos: offset}
}

// Pos returns the current position.
func (w *Writer) Pos() int64 { return w.pos }

// Skip advances the cursor by n bytes without writing.
func (w *Writer) Skip(n int64) { w.pos += n }

// WriteBytes writes data at the current position and advances the cursor.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.dst.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

func (w *Writer) WriteUint16(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return w.WriteBytes(buf[:])
}

func (w *Writer) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return w.WriteBytes(buf[:])
}

func (w *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return w.WriteBytes(buf[:])
}

// WriteUintN writes a little-endian unsigned integer of n bytes, any n in 1..8.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	EncodeUint(buf, v)
	return w.WriteBytes(buf)
}

// WriteOffset writes a file address using the configured offset width.
func (w *Writer) WriteOffset(v uint64) error {
	return w.WriteUintN(v, w.geo.OffsetSize)
}

// WriteLength writes a length using the configured length width.
func (w *Writer) WriteLength(v uint64) error {
	return w.WriteUintN(v, w.geo.LengthSize)
}

// WriteUndefinedOffset writes the all-ones undefined address sentinel.
func (w *Writer) WriteUndefinedOffset() error {
	return w.WriteOffset(Undefined(w.geo.OffsetSize))
}

// WriteUndefinedLength writes the all-ones undefined length sentinel.
func (w *Writer) WriteUndefinedLength() error {
	return w.WriteLength(Undefined(w.geo.LengthSize))
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WriteFixedString writes s into a field of exactly n bytes, NUL-padded.
// The string is truncated if longer than n.
func (w *Writer) WriteFixedString(s string, n int) error {
	buf := make([]byte, n)
	copy(buf, s)
	return w.WriteBytes(buf)
}

// Pad writes zero bytes up to the next multiple of n.
func (w *Writer) Pad(n int64) error {
	if n <= 1 {
		return nil
	}
	rem := w.pos % n
	if rem == 0 {
		return nil
	}
	return w.WriteZeros(int(n - rem))
}

// OffsetSize returns the configured file address width.
func (w *Writer) OffsetSize() int { return w.geo.OffsetSize }

// LengthSize returns the configured length width.
func (w *Writer) LengthSize() int { return w.geo.LengthSize }

// Geometry returns the configured field widths.
func (w *Writer) Geometry() Geometry { return w.geo }

// EncodeUint encodes v little-endian into all of buf.
func EncodeUint(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
}

// Buffer is a growable in-memory io.WriterAt. Checksummed structures are
// staged in a Buffer so the lookup3 checksum can be computed over the
// final bytes before anything reaches the file.
type Buffer struct {
	buf []byte
}

// NewBuffer returns an empty buffer and a Writer over it.
func NewBuffer(geo Geometry) (*Buffer, *Writer) {
	b := &Buffer{}
	return b, NewWriter(b, geo)
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if need := int(off) + len(p); need > len(b.buf) {
		grown := make([]byte, need)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// Bytes returns the written bytes.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the buffer length.
func (b *Buffer) Len() int { return len(b.buf) }

// SectionWriter adapts an io.WriteSeeker into an io.WriterAt, which lets
// an *os.File opened for writing back a Writer.
type SectionWriter struct {
	ws io.WriteSeeker
}

// NewSectionWriter wraps ws.
func NewSectionWriter(ws io.WriteSeeker) *SectionWriter {
	return &SectionWriter{ws: ws}
}

// WriteAt implements io.WriterAt.
func (s *SectionWriter) WriteAt(p []byte, off int64) (int, error) {
	if _, err := s.ws.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return s.ws.Write(p)
}
