package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// LayoutClass is the storage strategy of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0 // data inside the object header
	LayoutContiguous LayoutClass = 1 // one contiguous block
	LayoutChunked    LayoutClass = 2 // indexed chunks
	LayoutVirtual    LayoutClass = 3 // virtual dataset, not supported
)

// ChunkIndexType is the chunk index named by a chunked layout. The
// values above zero match the on-disk encoding of version 4 layout
// messages; version 3 layouts always use the version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0
	ChunkIndexSingle          ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

// Version 4 chunked layout flags.
const (
	chunkDontFilterPartialChunks uint8 = 0x01
	chunkSingleIndexWithFilter   uint8 = 0x02
)

// DataLayout is the data layout message (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Compact storage.
	CompactData []byte

	// Contiguous storage.
	Address uint64
	Size    uint64

	// Chunked storage. ChunkDims carries the dataset rank plus one
	// trailing entry holding the element size, mirroring the on-disk
	// dimensionality field.
	ChunkDims      []uint64
	ChunkIndexAddr uint64
	ChunkIndexType ChunkIndexType
	Flags          uint8 // version 4 only

	// Single chunk index with filters applied.
	SingleChunkSize  uint64
	SingleFilterMask uint32

	// Fixed array index, and the data block page size of the
	// extensible array index.
	PageBits uint8

	// Extensible array index creation parameters.
	MaxBits       uint8
	IndexElements uint8
	MinPointers   uint8
	MinElements   uint8

	// Version 2 B-tree index creation parameters.
	NodeSize     uint32
	SplitPercent uint8
	MergePercent uint8
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// IsCompact reports whether data lives in the object header.
func (m *DataLayout) IsCompact() bool { return m.Class == LayoutCompact }

// IsContiguous reports whether data lives in one block.
func (m *DataLayout) IsContiguous() bool { return m.Class == LayoutContiguous }

// IsChunked reports whether data lives in indexed chunks.
func (m *DataLayout) IsChunked() bool { return m.Class == LayoutChunked }

// ElementSize returns the element size a chunked layout stores as its
// final dimension, or 0 for other classes.
func (m *DataLayout) ElementSize() uint32 {
	if m.Class != LayoutChunked || len(m.ChunkDims) == 0 {
		return 0
	}
	return uint32(m.ChunkDims[len(m.ChunkDims)-1])
}

// DataDims returns the chunk shape without the trailing element size.
func (m *DataLayout) DataDims() []uint64 {
	if m.Class != LayoutChunked || len(m.ChunkDims) == 0 {
		return nil
	}
	return m.ChunkDims[:len(m.ChunkDims)-1]
}

func parseDataLayout(data []byte, r *binary.Reader) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("data layout message too short")
	}

	layout := &DataLayout{Version: data[0]}

	switch layout.Version {
	case 1, 2:
		return parseDataLayoutV1V2(data, r, layout)
	case 3:
		return parseDataLayoutV3(data, r, layout)
	case 4:
		return parseDataLayoutV4(data, r, layout)
	default:
		return nil, fmt.Errorf("unsupported data layout version: %d", layout.Version)
	}
}

// Versions 1 and 2 lead with the dimensionality and reserve the address
// for the start of the properties.
func parseDataLayoutV1V2(data []byte, r *binary.Reader, layout *DataLayout) (*DataLayout, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("data layout message truncated")
	}

	ndims := int(data[1])
	layout.Class = LayoutClass(data[2])
	offset := 8 // dimensionality, class, 5 reserved bytes

	if layout.Class != LayoutCompact {
		offsetSize := r.OffsetSize()
		if offset+offsetSize > len(data) {
			return nil, fmt.Errorf("data layout address truncated")
		}
		addr := binary.DecodeUint(data[offset : offset+offsetSize])
		offset += offsetSize
		if layout.Class == LayoutChunked {
			layout.ChunkIndexAddr = addr
			layout.ChunkIndexType = ChunkIndexBTreeV1
		} else {
			layout.Address = addr
		}
	}

	layout.ChunkDims = make([]uint64, 0, ndims)
	for i := 0; i < ndims; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("data layout dimensions truncated")
		}
		layout.ChunkDims = append(layout.ChunkDims, binary.DecodeUint(data[offset:offset+4]))
		offset += 4
	}

	switch layout.Class {
	case LayoutCompact:
		if offset+4 > len(data) {
			return nil, fmt.Errorf("compact data size truncated")
		}
		size := int(binary.DecodeUint(data[offset : offset+4]))
		offset += 4
		if offset+size > len(data) {
			return nil, fmt.Errorf("compact data truncated")
		}
		layout.CompactData = append([]byte(nil), data[offset:offset+size]...)
	case LayoutContiguous:
		// Size is implied by the dataspace and element size.
		layout.ChunkDims = nil
	}

	return layout, nil
}

// Version 3 stores only the fields each class needs. Chunked storage
// always indexes through a version 1 B-tree whose address precedes the
// chunk dimensions.
func parseDataLayoutV3(data []byte, r *binary.Reader, layout *DataLayout) (*DataLayout, error) {
	layout.Class = LayoutClass(data[1])
	offset := 2

	switch layout.Class {
	case LayoutCompact:
		if offset+2 > len(data) {
			return nil, fmt.Errorf("compact data size truncated")
		}
		size := int(binary.DecodeUint(data[offset : offset+2]))
		offset += 2
		if offset+size > len(data) {
			return nil, fmt.Errorf("compact data truncated")
		}
		layout.CompactData = append([]byte(nil), data[offset:offset+size]...)

	case LayoutContiguous:
		offsetSize := r.OffsetSize()
		lengthSize := r.LengthSize()
		if offset+offsetSize+lengthSize > len(data) {
			return nil, fmt.Errorf("contiguous layout truncated")
		}
		layout.Address = binary.DecodeUint(data[offset : offset+offsetSize])
		offset += offsetSize
		layout.Size = binary.DecodeUint(data[offset : offset+lengthSize])

	case LayoutChunked:
		if offset >= len(data) {
			return nil, fmt.Errorf("chunked layout truncated")
		}
		ndims := int(data[offset])
		offset++

		offsetSize := r.OffsetSize()
		if offset+offsetSize > len(data) {
			return nil, fmt.Errorf("chunk index address truncated")
		}
		layout.ChunkIndexAddr = binary.DecodeUint(data[offset : offset+offsetSize])
		layout.ChunkIndexType = ChunkIndexBTreeV1
		offset += offsetSize

		layout.ChunkDims = make([]uint64, 0, ndims)
		for i := 0; i < ndims; i++ {
			if offset+4 > len(data) {
				return nil, fmt.Errorf("chunk dimensions truncated")
			}
			layout.ChunkDims = append(layout.ChunkDims, binary.DecodeUint(data[offset:offset+4]))
			offset += 4
		}

	default:
		return nil, fmt.Errorf("unsupported layout class: %d", layout.Class)
	}

	return layout, nil
}

// Version 4 keeps the compact and contiguous encodings of version 3 but
// reworks chunked storage: variable-width dimensions, an explicit chunk
// index type, and index-specific creation parameters before the address.
func parseDataLayoutV4(data []byte, r *binary.Reader, layout *DataLayout) (*DataLayout, error) {
	layout.Class = LayoutClass(data[1])
	if layout.Class != LayoutChunked {
		return parseDataLayoutV3(data, r, layout)
	}

	if len(data) < 5 {
		return nil, fmt.Errorf("chunked layout truncated")
	}
	layout.Flags = data[2]
	ndims := int(data[3])
	dimSize := int(data[4])
	offset := 5

	if dimSize < 1 || dimSize > 8 {
		return nil, fmt.Errorf("invalid chunk dimension encoding size: %d", dimSize)
	}

	layout.ChunkDims = make([]uint64, 0, ndims)
	for i := 0; i < ndims; i++ {
		if offset+dimSize > len(data) {
			return nil, fmt.Errorf("chunk dimensions truncated")
		}
		layout.ChunkDims = append(layout.ChunkDims, binary.DecodeUint(data[offset:offset+dimSize]))
		offset += dimSize
	}

	if offset >= len(data) {
		return nil, fmt.Errorf("chunk index type truncated")
	}
	layout.ChunkIndexType = ChunkIndexType(data[offset])
	offset++

	switch layout.ChunkIndexType {
	case ChunkIndexSingle:
		if layout.Flags&chunkSingleIndexWithFilter != 0 {
			lengthSize := r.LengthSize()
			if offset+lengthSize+4 > len(data) {
				return nil, fmt.Errorf("single chunk info truncated")
			}
			layout.SingleChunkSize = binary.DecodeUint(data[offset : offset+lengthSize])
			offset += lengthSize
			layout.SingleFilterMask = uint32(binary.DecodeUint(data[offset : offset+4]))
			offset += 4
		}

	case ChunkIndexImplicit:
		// No parameters.

	case ChunkIndexFixedArray:
		if offset >= len(data) {
			return nil, fmt.Errorf("fixed array info truncated")
		}
		layout.PageBits = data[offset]
		offset++

	case ChunkIndexExtensibleArray:
		if offset+5 > len(data) {
			return nil, fmt.Errorf("extensible array info truncated")
		}
		layout.MaxBits = data[offset]
		layout.IndexElements = data[offset+1]
		layout.MinPointers = data[offset+2]
		layout.MinElements = data[offset+3]
		layout.PageBits = data[offset+4]
		offset += 5

	case ChunkIndexBTreeV2:
		if offset+6 > len(data) {
			return nil, fmt.Errorf("b-tree v2 info truncated")
		}
		layout.NodeSize = uint32(binary.DecodeUint(data[offset : offset+4]))
		layout.SplitPercent = data[offset+4]
		layout.MergePercent = data[offset+5]
		offset += 6

	default:
		return nil, fmt.Errorf("unsupported chunk index type: %d", layout.ChunkIndexType)
	}

	offsetSize := r.OffsetSize()
	if offset+offsetSize > len(data) {
		return nil, fmt.Errorf("chunk index address truncated")
	}
	layout.ChunkIndexAddr = binary.DecodeUint(data[offset : offset+offsetSize])

	return layout, nil
}
