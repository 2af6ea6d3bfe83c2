package btree

import (
	"fmt"
	"math/bits"

	"github.com/h5kit/hdf5/internal/binary"
)

const (
	signatureBTHD = "BTHD"
	signatureBTIN = "BTIN"
	signatureBTLF = "BTLF"

	v2TypeChunk         uint8 = 10
	v2TypeChunkFiltered uint8 = 11

	// Signature, version, type. Every block also ends with a 4-byte
	// lookup3 checksum.
	v2NodePrefix = 6
)

// v2Tree carries the header fields and derived pointer widths needed
// to walk a version 2 tree.
type v2Tree struct {
	r          *binary.Reader
	chunkDims  []uint32
	recordSize int
	filtered   bool

	// nrecWidth is the byte width of child record counts. totalWidth[d]
	// is the width of the cumulative count stored in pointers to
	// depth-d subtrees; pointers to leaves store none.
	nrecWidth  int
	totalWidth []int
}

// ReadChunkIndexV2 reads a version 2 chunk B-tree rooted at address.
// Records store scaled chunk coordinates; entries come back in element
// coordinates so both tree generations look the same to callers.
// Unfiltered records carry no stored size or mask, so those entries
// have Size zero and the caller supplies the chunk byte size.
func ReadChunkIndexV2(r *binary.Reader, address uint64, chunkDims []uint32) ([]ChunkEntry, error) {
	span := 16 + r.OffsetSize() + 2 + r.LengthSize()
	raw, err := r.At(int64(address)).ReadBytes(span + 4)
	if err != nil {
		return nil, fmt.Errorf("v2 B-tree header at 0x%x: %w", address, err)
	}
	if string(raw[:4]) != signatureBTHD {
		return nil, fmt.Errorf("invalid v2 B-tree signature %q at 0x%x", raw[:4], address)
	}
	if err := verifyV2Checksum(raw, address); err != nil {
		return nil, err
	}
	if raw[4] != 0 {
		return nil, fmt.Errorf("unsupported v2 B-tree version %d", raw[4])
	}
	typ := raw[5]
	if typ != v2TypeChunk && typ != v2TypeChunkFiltered {
		return nil, fmt.Errorf("v2 B-tree type %d does not index chunks", typ)
	}

	nodeSize := int(binary.DecodeUint(raw[6:10]))
	recordSize := int(binary.DecodeUint(raw[10:12]))
	depth := int(binary.DecodeUint(raw[12:14]))
	i := 16 // past the split and merge percents
	rootAddr := binary.DecodeUint(raw[i : i+r.OffsetSize()])
	i += r.OffsetSize()
	rootRecords := int(binary.DecodeUint(raw[i : i+2]))
	i += 2
	totalRecords := binary.DecodeUint(raw[i : i+r.LengthSize()])

	if totalRecords == 0 {
		return nil, nil
	}
	if recordSize == 0 {
		return nil, fmt.Errorf("v2 B-tree at 0x%x: zero record size", address)
	}

	t := &v2Tree{
		r:          r,
		chunkDims:  chunkDims,
		recordSize: recordSize,
		filtered:   typ == v2TypeChunkFiltered,
	}
	if err := t.deriveWidths(nodeSize, depth); err != nil {
		return nil, err
	}
	return t.readNode(rootAddr, rootRecords, depth)
}

// deriveWidths computes how child pointers are encoded: record counts
// use the width of the leaf capacity, cumulative totals the width of
// the largest subtree a node at that depth can hold.
func (t *v2Tree) deriveWidths(nodeSize, depth int) error {
	leafMax := (nodeSize - (v2NodePrefix + 4)) / t.recordSize
	if leafMax <= 0 {
		return fmt.Errorf("v2 B-tree: node size %d cannot hold a record", nodeSize)
	}
	t.nrecWidth = encodedWidth(uint64(leafMax))
	t.totalWidth = make([]int, depth+1)

	cum := uint64(leafMax)
	for d := 1; d <= depth; d++ {
		ptr := t.r.OffsetSize() + t.nrecWidth + t.totalWidth[d-1]
		intMax := (nodeSize - (v2NodePrefix + 4) - ptr) / (t.recordSize + ptr)
		if intMax <= 0 {
			return fmt.Errorf("v2 B-tree: node size %d cannot hold an internal record", nodeSize)
		}
		cum = uint64(intMax+1)*cum + uint64(intMax)
		t.totalWidth[d] = encodedWidth(cum)
	}
	return nil
}

// encodedWidth is the byte count needed to store v.
func encodedWidth(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v)-1)/8 + 1
}

func (t *v2Tree) readNode(address uint64, numRecords, depth int) ([]ChunkEntry, error) {
	if depth == 0 {
		return t.readLeaf(address, numRecords)
	}
	return t.readInternal(address, numRecords, depth)
}

func (t *v2Tree) readLeaf(address uint64, numRecords int) ([]ChunkEntry, error) {
	span := v2NodePrefix + numRecords*t.recordSize
	raw, err := t.r.At(int64(address)).ReadBytes(span + 4)
	if err != nil {
		return nil, fmt.Errorf("v2 B-tree leaf at 0x%x: %w", address, err)
	}
	if string(raw[:4]) != signatureBTLF {
		return nil, fmt.Errorf("invalid v2 B-tree leaf signature %q at 0x%x", raw[:4], address)
	}
	if err := verifyV2Checksum(raw, address); err != nil {
		return nil, err
	}

	entries := make([]ChunkEntry, 0, numRecords)
	for i := 0; i < numRecords; i++ {
		rec := raw[v2NodePrefix+i*t.recordSize : v2NodePrefix+(i+1)*t.recordSize]
		entry, err := t.parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("v2 B-tree leaf at 0x%x: %w", address, err)
		}
		if t.r.IsUndefinedOffset(entry.Address) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (t *v2Tree) readInternal(address uint64, numRecords, depth int) ([]ChunkEntry, error) {
	ptrSize := t.r.OffsetSize() + t.nrecWidth + t.totalWidth[depth-1]
	span := v2NodePrefix + numRecords*t.recordSize + (numRecords+1)*ptrSize
	raw, err := t.r.At(int64(address)).ReadBytes(span + 4)
	if err != nil {
		return nil, fmt.Errorf("v2 B-tree internal node at 0x%x: %w", address, err)
	}
	if string(raw[:4]) != signatureBTIN {
		return nil, fmt.Errorf("invalid v2 B-tree internal node signature %q at 0x%x", raw[:4], address)
	}
	if err := verifyV2Checksum(raw, address); err != nil {
		return nil, err
	}

	records := raw[v2NodePrefix:]
	pointers := raw[v2NodePrefix+numRecords*t.recordSize:]

	// Internal records are real chunk records, not just separators.
	// Interleaving children and records keeps the row-major order.
	var entries []ChunkEntry
	for i := 0; i <= numRecords; i++ {
		p := pointers[i*ptrSize:]
		childAddr := binary.DecodeUint(p[:t.r.OffsetSize()])
		childRecords := int(binary.DecodeUint(p[t.r.OffsetSize() : t.r.OffsetSize()+t.nrecWidth]))

		sub, err := t.readNode(childAddr, childRecords, depth-1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)

		if i < numRecords {
			entry, err := t.parseRecord(records[i*t.recordSize : (i+1)*t.recordSize])
			if err != nil {
				return nil, fmt.Errorf("v2 B-tree internal node at 0x%x: %w", address, err)
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// parseRecord decodes one chunk record. Both record types start with
// the chunk address. Filtered records follow with a stored size whose
// width is whatever the record size leaves over, then the filter mask;
// both end with the scaled coordinates.
func (t *v2Tree) parseRecord(rec []byte) (ChunkEntry, error) {
	offsetSize := t.r.OffsetSize()
	ndims := len(t.chunkDims)
	entry := ChunkEntry{Offset: make([]uint64, ndims)}

	scaledAt := offsetSize
	if t.filtered {
		sizeWidth := t.recordSize - offsetSize - 4 - 8*ndims
		if sizeWidth < 1 || sizeWidth > 8 {
			return entry, fmt.Errorf("record size %d does not fit a filtered chunk record of rank %d", t.recordSize, ndims)
		}
		entry.Size = uint32(binary.DecodeUint(rec[offsetSize : offsetSize+sizeWidth]))
		entry.FilterMask = uint32(binary.DecodeUint(rec[offsetSize+sizeWidth : offsetSize+sizeWidth+4]))
		scaledAt = offsetSize + sizeWidth + 4
	} else if t.recordSize < offsetSize+8*ndims {
		return entry, fmt.Errorf("record size %d does not fit a chunk record of rank %d", t.recordSize, ndims)
	}

	entry.Address = binary.DecodeUint(rec[:offsetSize])
	for d := 0; d < ndims; d++ {
		o := scaledAt + d*8
		entry.Offset[d] = binary.DecodeUint(rec[o:o+8]) * uint64(t.chunkDims[d])
	}
	return entry, nil
}

func verifyV2Checksum(raw []byte, address uint64) error {
	span := len(raw) - 4
	stored := uint32(binary.DecodeUint(raw[span:]))
	if got := binary.Lookup3Checksum(raw[:span]); got != stored {
		return fmt.Errorf("v2 B-tree block at 0x%x: checksum mismatch (stored %#x, computed %#x)", address, stored, got)
	}
	return nil
}
