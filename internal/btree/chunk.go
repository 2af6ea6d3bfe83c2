package btree

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// ChunkEntry is one allocated chunk as recorded in an index. Offset
// holds the chunk's starting coordinates in element space, so an entry
// at [20 30] with chunk shape [10 10] covers elements [20:30, 30:40].
type ChunkEntry struct {
	Offset     []uint64
	FilterMask uint32
	Size       uint32
	Address    uint64
}

// ReadChunkIndex reads a version 1 chunk B-tree rooted at address.
// Entries come back in tree order, which is row-major over the chunk
// offsets. ndims is the dataset rank; keys carry one extra trailing
// dimension that is dropped here.
func ReadChunkIndex(r *binary.Reader, address uint64, ndims int) ([]ChunkEntry, error) {
	return readChunkNode(r, address, ndims)
}

func readChunkNode(r *binary.Reader, address uint64, ndims int) ([]ChunkEntry, error) {
	c, level, used, err := readV1Node(r, address, nodeTypeChunk)
	if err != nil {
		return nil, err
	}

	// Keys and children interleave as k0 c0 k1 c1 ... kn, one key more
	// than children. The trailing key is only an upper bound.
	var entries []ChunkEntry
	for i := uint16(0); i <= used; i++ {
		size, err := c.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("chunk B-tree key at 0x%x: %w", address, err)
		}
		mask, err := c.ReadUint32()
		if err != nil {
			return nil, err
		}
		offsets := make([]uint64, ndims+1)
		for d := range offsets {
			if offsets[d], err = c.ReadUint64(); err != nil {
				return nil, err
			}
		}
		if i == used {
			break
		}

		child, err := c.ReadOffset()
		if err != nil {
			return nil, err
		}
		if level > 0 {
			sub, err := readChunkNode(r, child, ndims)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
			continue
		}
		if r.IsUndefinedOffset(child) || size == 0 {
			continue
		}
		entries = append(entries, ChunkEntry{
			Offset:     offsets[:ndims],
			FilterMask: mask,
			Size:       size,
			Address:    child,
		})
	}
	return entries, nil
}
