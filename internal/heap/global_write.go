package heap

import (
	"github.com/h5kit/hdf5/internal/binary"
)

// GlobalHeapWriter batches objects into a single new collection.
// Indices are handed out 1-based in insertion order; Write sizes the
// collection, asks the allocator for space and flushes it in one piece.
type GlobalHeapWriter struct {
	w       *binary.Writer
	alloc   func(size int64) uint64
	objects [][]byte
}

// NewGlobalHeapWriter returns a writer that allocates file space
// through alloc when Write is called.
func NewGlobalHeapWriter(w *binary.Writer, alloc func(size int64) uint64) *GlobalHeapWriter {
	return &GlobalHeapWriter{w: w, alloc: alloc}
}

// AddObject stores data under the next free index and returns it.
// Index 0 is the end marker, so the first object gets index 1.
func (ghw *GlobalHeapWriter) AddObject(data []byte) uint16 {
	ghw.objects = append(ghw.objects, data)
	return uint16(len(ghw.objects))
}

// AddString stores s with a trailing NUL.
func (ghw *GlobalHeapWriter) AddString(s string) uint16 {
	data := make([]byte, len(s)+1)
	copy(data, s)
	return ghw.AddObject(data)
}

// Write allocates and writes the collection, returning its address and
// the heap ID for every index handed out. With no objects it writes
// nothing and returns address 0.
func (ghw *GlobalHeapWriter) Write() (uint64, map[uint16]GlobalHeapID, error) {
	if len(ghw.objects) == 0 {
		return 0, nil, nil
	}

	size := ghw.collectionSize()
	addr := ghw.alloc(int64(size))

	buf, sw := binary.NewBuffer(ghw.w.Geometry())
	if err := sw.WriteBytes([]byte(globalSignature)); err != nil {
		return 0, nil, err
	}
	if err := sw.WriteUint8(1); err != nil {
		return 0, nil, err
	}
	if err := sw.WriteZeros(3); err != nil {
		return 0, nil, err
	}
	if err := sw.WriteLength(uint64(size)); err != nil {
		return 0, nil, err
	}

	ids := make(map[uint16]GlobalHeapID, len(ghw.objects))
	for i, obj := range ghw.objects {
		index := uint16(i + 1)
		if err := sw.WriteUint16(index); err != nil {
			return 0, nil, err
		}
		if err := sw.WriteUint16(1); err != nil { // reference count
			return 0, nil, err
		}
		if err := sw.WriteZeros(4); err != nil {
			return 0, nil, err
		}
		if err := sw.WriteLength(uint64(len(obj))); err != nil {
			return 0, nil, err
		}
		if err := sw.WriteBytes(obj); err != nil {
			return 0, nil, err
		}
		if err := sw.WriteZeros(pad8(len(obj))); err != nil {
			return 0, nil, err
		}
		ids[index] = GlobalHeapID{CollectionAddress: addr, ObjectIndex: uint32(index)}
	}

	// End marker, then pad out to the declared collection size.
	if err := sw.WriteUint16(0); err != nil {
		return 0, nil, err
	}
	if err := sw.WriteZeros(size - buf.Len()); err != nil {
		return 0, nil, err
	}

	if err := ghw.w.At(int64(addr)).WriteBytes(buf.Bytes()); err != nil {
		return 0, nil, err
	}
	return addr, ids, nil
}

// collectionSize is the full on-disk size: header, object entries with
// data padded to 8 bytes, the end marker, and trailing padding to an
// 8-byte multiple.
func (ghw *GlobalHeapWriter) collectionSize() int {
	lengthSize := ghw.w.LengthSize()
	size := 8 + lengthSize
	for _, obj := range ghw.objects {
		size += 8 + lengthSize + len(obj) + pad8(len(obj))
	}
	size += 2
	return size + pad8(size)
}

// WriteGlobalHeapID writes id the way variable-length elements store
// it: collection address then 4-byte object index.
func WriteGlobalHeapID(w *binary.Writer, id GlobalHeapID) error {
	if err := w.WriteOffset(id.CollectionAddress); err != nil {
		return err
	}
	return w.WriteUint32(id.ObjectIndex)
}

// GlobalHeapIDSize is the stored size of a heap ID.
func GlobalHeapIDSize(offsetSize int) int {
	return offsetSize + 4
}
