package btree

import (
	"errors"
	"fmt"
	"sort"

	"github.com/h5kit/hdf5/internal/binary"
)

// defaultNodeK is the 1/2-rank of written chunk nodes, matching the
// library default used when no B-tree K message is present. A leaf
// holds up to 2K entries and is allocated at full capacity so it can
// be rewritten in place as chunks are added.
const defaultNodeK = 32

// WriteChunkIndex writes the chunk entries as a single version 1 leaf
// node and returns its address. Entries may arrive in any order; the
// node stores them row-major. The trailing bound key is the last
// chunk's offset advanced by one chunk in every dimension.
func WriteChunkIndex(w *binary.Writer, alloc func(size int64) uint64, entries []ChunkEntry, chunkDims []uint32, elementSize uint32) (uint64, error) {
	if len(entries) == 0 {
		return 0, errors.New("chunk B-tree: no entries to write")
	}
	ndims := len(chunkDims)
	for _, e := range entries {
		if len(e.Offset) != ndims {
			return 0, fmt.Errorf("chunk B-tree: entry rank %d does not match chunk rank %d", len(e.Offset), ndims)
		}
	}

	sorted := make([]ChunkEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Offset, sorted[j].Offset
		for d := range a {
			if a[d] != b[d] {
				return a[d] < b[d]
			}
		}
		return false
	})

	capacity := 2 * defaultNodeK
	if len(sorted) > capacity {
		capacity = len(sorted)
	}
	keySize := 8 + (ndims+1)*8
	nodeSize := 8 + 2*w.OffsetSize() + (capacity+1)*keySize + capacity*w.OffsetSize()
	address := alloc(int64(nodeSize))

	buf, sw := binary.NewBuffer(w.Geometry())
	if err := sw.WriteBytes([]byte(signatureV1)); err != nil {
		return 0, err
	}
	if err := sw.WriteUint8(nodeTypeChunk); err != nil {
		return 0, err
	}
	if err := sw.WriteUint8(0); err != nil { // leaf
		return 0, err
	}
	if err := sw.WriteUint16(uint16(len(sorted))); err != nil {
		return 0, err
	}
	if err := sw.WriteUndefinedOffset(); err != nil {
		return 0, err
	}
	if err := sw.WriteUndefinedOffset(); err != nil {
		return 0, err
	}

	for _, e := range sorted {
		if err := writeChunkKey(sw, e.Size, e.FilterMask, e.Offset, 0); err != nil {
			return 0, err
		}
		if err := sw.WriteOffset(e.Address); err != nil {
			return 0, err
		}
	}

	last := sorted[len(sorted)-1]
	bound := make([]uint64, ndims)
	for d := range bound {
		bound[d] = last.Offset[d] + uint64(chunkDims[d])
	}
	if err := writeChunkKey(sw, 0, 0, bound, uint64(elementSize)); err != nil {
		return 0, err
	}

	if err := sw.WriteZeros(nodeSize - buf.Len()); err != nil {
		return 0, err
	}
	if err := w.At(int64(address)).WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	return address, nil
}

func writeChunkKey(w *binary.Writer, size, mask uint32, offsets []uint64, trailing uint64) error {
	if err := w.WriteUint32(size); err != nil {
		return err
	}
	if err := w.WriteUint32(mask); err != nil {
		return err
	}
	for _, o := range offsets {
		if err := w.WriteUint64(o); err != nil {
			return err
		}
	}
	return w.WriteUint64(trailing)
}
