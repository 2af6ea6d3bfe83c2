package layout

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/btree"
)

// Extensible array chunk index, read-only. Only elements living in the
// index block are handled; arrays that have spilled into super or data
// blocks are reported as unsupported.
const (
	eaSignatureHeader = "EAHD"
	eaSignatureIndex  = "EAIB"
)

// readExtensibleArray reads the extensible array rooted at addr and
// returns the allocated cells in row-major order.
func readExtensibleArray(r *binary.Reader, addr uint64, g *Grid) ([]btree.ChunkEntry, error) {
	c := r.At(int64(addr))
	sig, err := c.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("layout: extensible array header at 0x%x: %w", addr, err)
	}
	if string(sig) != eaSignatureHeader {
		return nil, fmt.Errorf("layout: invalid signature %q at 0x%x, want %q", sig, addr, eaSignatureHeader)
	}

	version, _ := c.ReadUint8()
	if version != 0 {
		return nil, fmt.Errorf("layout: unsupported extensible array version %d", version)
	}
	if _, err := c.ReadUint8(); err != nil { // client ID
		return nil, err
	}
	elemSize, _ := c.ReadUint8()
	if _, err := c.ReadUint8(); err != nil { // max element bits
		return nil, err
	}
	idxBlockBits, _ := c.ReadUint8()
	for i := 0; i < 3; i++ { // data block min, super block min, page max bits
		if _, err := c.ReadUint8(); err != nil {
			return nil, err
		}
	}
	for i := 0; i < 4; i++ { // secondary/data block counts and sizes
		if _, err := c.ReadLength(); err != nil {
			return nil, err
		}
	}
	if _, err := c.ReadLength(); err != nil { // max index set
		return nil, err
	}
	numElements, err := c.ReadLength()
	if err != nil {
		return nil, err
	}
	idxBlockAddr, err := c.ReadOffset()
	if err != nil {
		return nil, err
	}
	if numElements == 0 || r.IsUndefinedOffset(idxBlockAddr) {
		return nil, nil
	}

	idxCapacity := uint64(1) << idxBlockBits
	if numElements > idxCapacity {
		return nil, fmt.Errorf("layout: extensible array with %d elements exceeds its %d-element index block; secondary blocks not supported", numElements, idxCapacity)
	}
	return readExtArrayIndexBlock(r, idxBlockAddr, int(elemSize), numElements, g)
}

func readExtArrayIndexBlock(r *binary.Reader, addr uint64, elemSize int, numElements uint64, g *Grid) ([]btree.ChunkEntry, error) {
	c := r.At(int64(addr))
	sig, err := c.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("layout: extensible array index block at 0x%x: %w", addr, err)
	}
	if string(sig) != eaSignatureIndex {
		return nil, fmt.Errorf("layout: invalid signature %q at 0x%x, want %q", sig, addr, eaSignatureIndex)
	}
	if _, err := c.ReadUint8(); err != nil { // version
		return nil, err
	}
	if _, err := c.ReadUint8(); err != nil { // client ID
		return nil, err
	}
	if _, err := c.ReadOffset(); err != nil { // header address
		return nil, err
	}

	offsetSize := r.OffsetSize()
	filtered := elemSize > offsetSize
	sizeBytes := elemSize - offsetSize - 4

	var entries []btree.ChunkEntry
	for idx := uint64(0); idx < numElements; idx++ {
		address, err := c.ReadOffset()
		if err != nil {
			return nil, err
		}
		e := btree.ChunkEntry{
			Offset:  g.OffsetAt(idx),
			Size:    uint32(g.ChunkBytes()),
			Address: address,
		}
		if filtered {
			if sizeBytes <= 0 {
				return nil, fmt.Errorf("layout: extensible array element size %d too small for filtered entries", elemSize)
			}
			raw, err := c.ReadBytes(sizeBytes)
			if err != nil {
				return nil, err
			}
			e.Size = uint32(binary.DecodeUint(raw))
			if e.FilterMask, err = c.ReadUint32(); err != nil {
				return nil, err
			}
		}
		if address == 0 || r.IsUndefinedOffset(address) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
