package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// Serialize writes the layout message in the format its Version names.
// Compact and contiguous layouts always use version 3; chunked layouts
// use version 3 for the v1 B-tree index and version 4 for the rest.
func (m *DataLayout) Serialize(w *binary.Writer) error {
	switch m.Class {
	case LayoutCompact:
		if err := writeLayoutHead(w, 3, m.Class); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(m.CompactData))); err != nil {
			return err
		}
		return w.WriteBytes(m.CompactData)

	case LayoutContiguous:
		if err := writeLayoutHead(w, 3, m.Class); err != nil {
			return err
		}
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)

	case LayoutChunked:
		if m.ChunkIndexType == ChunkIndexBTreeV1 {
			return m.serializeChunkedV3(w)
		}
		return m.serializeChunkedV4(w)

	default:
		return fmt.Errorf("cannot serialize layout class %d", m.Class)
	}
}

func writeLayoutHead(w *binary.Writer, version uint8, class LayoutClass) error {
	if err := w.WriteUint8(version); err != nil {
		return err
	}
	return w.WriteUint8(uint8(class))
}

func (m *DataLayout) serializeChunkedV3(w *binary.Writer) error {
	if err := writeLayoutHead(w, 3, LayoutChunked); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(m.ChunkDims))); err != nil {
		return err
	}
	if err := w.WriteOffset(m.ChunkIndexAddr); err != nil {
		return err
	}
	for _, dim := range m.ChunkDims {
		if err := w.WriteUint32(uint32(dim)); err != nil {
			return err
		}
	}
	return nil
}

func (m *DataLayout) serializeChunkedV4(w *binary.Writer) error {
	if err := writeLayoutHead(w, 4, LayoutChunked); err != nil {
		return err
	}
	if err := w.WriteUint8(m.Flags); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(m.ChunkDims))); err != nil {
		return err
	}

	dimSize := chunkDimEncodingSize(m.ChunkDims)
	if err := w.WriteUint8(uint8(dimSize)); err != nil {
		return err
	}
	for _, dim := range m.ChunkDims {
		if err := w.WriteUintN(dim, dimSize); err != nil {
			return err
		}
	}

	if err := w.WriteUint8(uint8(m.ChunkIndexType)); err != nil {
		return err
	}

	switch m.ChunkIndexType {
	case ChunkIndexSingle:
		if m.Flags&chunkSingleIndexWithFilter != 0 {
			if err := w.WriteLength(m.SingleChunkSize); err != nil {
				return err
			}
			if err := w.WriteUint32(m.SingleFilterMask); err != nil {
				return err
			}
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		if err := w.WriteUint8(m.PageBits); err != nil {
			return err
		}
	case ChunkIndexExtensibleArray:
		for _, b := range []uint8{m.MaxBits, m.IndexElements, m.MinPointers, m.MinElements, m.PageBits} {
			if err := w.WriteUint8(b); err != nil {
				return err
			}
		}
	case ChunkIndexBTreeV2:
		if err := w.WriteUint32(m.NodeSize); err != nil {
			return err
		}
		if err := w.WriteUint8(m.SplitPercent); err != nil {
			return err
		}
		if err := w.WriteUint8(m.MergePercent); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot serialize chunk index type %d", m.ChunkIndexType)
	}

	return w.WriteOffset(m.ChunkIndexAddr)
}

// SerializedSize returns the encoded size of the layout message.
func (m *DataLayout) SerializedSize(w *binary.Writer) int {
	switch m.Class {
	case LayoutCompact:
		return 4 + len(m.CompactData)

	case LayoutContiguous:
		return 2 + w.OffsetSize() + w.LengthSize()

	case LayoutChunked:
		if m.ChunkIndexType == ChunkIndexBTreeV1 {
			return 3 + w.OffsetSize() + 4*len(m.ChunkDims)
		}

		size := 5 + chunkDimEncodingSize(m.ChunkDims)*len(m.ChunkDims) + 1
		switch m.ChunkIndexType {
		case ChunkIndexSingle:
			if m.Flags&chunkSingleIndexWithFilter != 0 {
				size += w.LengthSize() + 4
			}
		case ChunkIndexFixedArray:
			size++
		case ChunkIndexExtensibleArray:
			size += 5
		case ChunkIndexBTreeV2:
			size += 6
		}
		return size + w.OffsetSize()
	}

	return 0
}

// chunkDimEncodingSize picks the narrowest width that holds every chunk
// dimension.
func chunkDimEncodingSize(dims []uint64) int {
	var max uint64
	for _, d := range dims {
		if d > max {
			max = d
		}
	}
	switch {
	case max <= 0xFF:
		return 1
	case max <= 0xFFFF:
		return 2
	case max <= 0xFFFFFFFF:
		return 4
	default:
		return 8
	}
}

// NewCompactLayout builds a layout storing data in the object header.
func NewCompactLayout(data []byte) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutCompact, CompactData: data}
}

// NewContiguousLayout builds a layout pointing at one data block.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{
		Version: 3,
		Class:   LayoutContiguous,
		Address: address,
		Size:    size,
	}
}

// NewChunkedLayout builds a version 4 chunked layout. dims is the chunk
// shape in elements; the element size is appended as the final on-disk
// dimension. The index address may be undefined until the index is
// written.
func NewChunkedLayout(dims []uint64, elementSize uint32, indexType ChunkIndexType, indexAddr uint64) *DataLayout {
	return &DataLayout{
		Version:        4,
		Class:          LayoutChunked,
		ChunkDims:      append(append([]uint64(nil), dims...), uint64(elementSize)),
		ChunkIndexType: indexType,
		ChunkIndexAddr: indexAddr,
		PageBits:       10,
	}
}

// NewBTreeChunkedLayout builds a version 3 chunked layout indexed by a
// version 1 B-tree, the form used for datasets that can grow.
func NewBTreeChunkedLayout(dims []uint64, elementSize uint32, btreeAddr uint64) *DataLayout {
	return &DataLayout{
		Version:        3,
		Class:          LayoutChunked,
		ChunkDims:      append(append([]uint64(nil), dims...), uint64(elementSize)),
		ChunkIndexType: ChunkIndexBTreeV1,
		ChunkIndexAddr: btreeAddr,
	}
}
