package layout

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/btree"
)

// Fixed array chunk index: a header naming a dense data block with one
// slot per lattice cell. Client 0 slots hold just the chunk address;
// client 1 slots add the stored size and filter mask.
const (
	faSignatureHeader = "FAHD"
	faSignatureBlock  = "FADB"

	faClientUnfiltered = 0
	faClientFiltered   = 1

	// faSizeBytes is the width this writer uses for the stored-size
	// field of filtered slots.
	faSizeBytes = 4

	faMinPageBits = 10
)

// readFixedArray reads the fixed array rooted at addr and returns the
// allocated cells in row-major order.
func readFixedArray(r *binary.Reader, addr uint64, g *Grid) ([]btree.ChunkEntry, error) {
	hdrSize := 4 + 4 + r.LengthSize() + r.OffsetSize() + 4
	block, err := r.At(int64(addr)).ReadBytes(hdrSize)
	if err != nil {
		return nil, fmt.Errorf("layout: fixed array header at 0x%x: %w", addr, err)
	}
	if err := verifyBlock(block, faSignatureHeader, addr); err != nil {
		return nil, err
	}

	c := r.At(int64(addr) + 4)
	version, _ := c.ReadUint8()
	if version != 0 {
		return nil, fmt.Errorf("layout: unsupported fixed array version %d", version)
	}
	clientID, _ := c.ReadUint8()
	entrySize, _ := c.ReadUint8()
	pageBits, _ := c.ReadUint8()
	total, err := c.ReadLength()
	if err != nil {
		return nil, err
	}
	blockAddr, err := c.ReadOffset()
	if err != nil {
		return nil, err
	}
	if total > uint64(1)<<pageBits {
		return nil, fmt.Errorf("layout: paged fixed array data block not supported (%d entries, %d page bits)", total, pageBits)
	}
	if r.IsUndefinedOffset(blockAddr) {
		return nil, nil
	}

	dbSize := 4 + 2 + r.OffsetSize() + int(total)*int(entrySize) + 4
	db, err := r.At(int64(blockAddr)).ReadBytes(dbSize)
	if err != nil {
		return nil, fmt.Errorf("layout: fixed array data block at 0x%x: %w", blockAddr, err)
	}
	if err := verifyBlock(db, faSignatureBlock, blockAddr); err != nil {
		return nil, err
	}

	offsetSize := r.OffsetSize()
	slots := db[4+2+offsetSize : len(db)-4]
	var entries []btree.ChunkEntry
	for idx := uint64(0); idx < total; idx++ {
		slot := slots[idx*uint64(entrySize) : (idx+1)*uint64(entrySize)]
		address := binary.DecodeUint(slot[:offsetSize])
		if r.IsUndefinedOffset(address) {
			continue
		}

		e := btree.ChunkEntry{
			Offset:  g.OffsetAt(idx),
			Size:    uint32(g.ChunkBytes()),
			Address: address,
		}
		if clientID == faClientFiltered {
			sizeBytes := int(entrySize) - offsetSize - 4
			if sizeBytes <= 0 {
				return nil, fmt.Errorf("layout: fixed array entry size %d too small for filtered slots", entrySize)
			}
			e.Size = uint32(binary.DecodeUint(slot[offsetSize : offsetSize+sizeBytes]))
			e.FilterMask = uint32(binary.DecodeUint(slot[offsetSize+sizeBytes:]))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteFixedArray writes a fixed array indexing entries over the grid
// and returns the header address. Cells without an entry store the
// undefined address. The page size is chosen so the data block is
// never paged.
func WriteFixedArray(w *binary.Writer, alloc func(size int64) uint64, g *Grid, entries []btree.ChunkEntry, filtered bool) (uint64, error) {
	total := g.TotalChunks()
	if total == 0 {
		return 0, fmt.Errorf("layout: fixed array over an empty extent")
	}

	slots := make(map[uint64]btree.ChunkEntry, len(entries))
	for _, e := range entries {
		idx, err := g.LinearIndex(e.Offset)
		if err != nil {
			return 0, err
		}
		slots[idx] = e
	}

	pageBits := uint8(faMinPageBits)
	for uint64(1)<<pageBits < total {
		pageBits++
	}

	offsetSize := w.OffsetSize()
	entrySize := offsetSize
	if filtered {
		entrySize += faSizeBytes + 4
	}

	hdrSize := 4 + 4 + w.LengthSize() + offsetSize + 4
	dbSize := 4 + 2 + offsetSize + int(total)*entrySize + 4
	hdrAddr := alloc(int64(hdrSize))
	dbAddr := alloc(int64(dbSize))

	clientID := uint8(faClientUnfiltered)
	if filtered {
		clientID = faClientFiltered
	}

	// Header block.
	buf, sw := binary.NewBuffer(w.Geometry())
	if err := writeAll(sw,
		func() error { return sw.WriteBytes([]byte(faSignatureHeader)) },
		func() error { return sw.WriteUint8(0) },
		func() error { return sw.WriteUint8(clientID) },
		func() error { return sw.WriteUint8(uint8(entrySize)) },
		func() error { return sw.WriteUint8(pageBits) },
		func() error { return sw.WriteLength(total) },
		func() error { return sw.WriteOffset(dbAddr) },
	); err != nil {
		return 0, err
	}
	if err := sw.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return 0, err
	}
	if err := w.At(int64(hdrAddr)).WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}

	// Data block.
	buf, sw = binary.NewBuffer(w.Geometry())
	if err := writeAll(sw,
		func() error { return sw.WriteBytes([]byte(faSignatureBlock)) },
		func() error { return sw.WriteUint8(0) },
		func() error { return sw.WriteUint8(clientID) },
		func() error { return sw.WriteOffset(hdrAddr) },
	); err != nil {
		return 0, err
	}
	for idx := uint64(0); idx < total; idx++ {
		e, ok := slots[idx]
		if !ok {
			if err := sw.WriteUndefinedOffset(); err != nil {
				return 0, err
			}
			if filtered {
				if err := sw.WriteZeros(faSizeBytes + 4); err != nil {
					return 0, err
				}
			}
			continue
		}
		if err := sw.WriteOffset(e.Address); err != nil {
			return 0, err
		}
		if filtered {
			if err := sw.WriteUint32(e.Size); err != nil {
				return 0, err
			}
			if err := sw.WriteUint32(e.FilterMask); err != nil {
				return 0, err
			}
		}
	}
	if err := sw.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return 0, err
	}
	if err := w.At(int64(dbAddr)).WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	return hdrAddr, nil
}

func verifyBlock(block []byte, signature string, addr uint64) error {
	if string(block[:4]) != signature {
		return fmt.Errorf("layout: invalid signature %q at 0x%x, want %q", block[:4], addr, signature)
	}
	want := binary.DecodeUint(block[len(block)-4:])
	if got := binary.Lookup3Checksum(block[:len(block)-4]); uint64(got) != want {
		return fmt.Errorf("layout: %s block at 0x%x: checksum mismatch", signature, addr)
	}
	return nil
}

func writeAll(_ *binary.Writer, steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
