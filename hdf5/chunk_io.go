package hdf5

import (
	"errors"
	"fmt"

	"github.com/h5kit/hdf5/internal/btree"
	"github.com/h5kit/hdf5/internal/layout"
)

// ChunkInfo describes one allocated chunk as the chunk index records
// it: the chunk's starting offset, the filter mask applied when it was
// stored, its file address, and its stored size in bytes.
type ChunkInfo struct {
	Offset     []uint64
	FilterMask uint32
	Address    uint64
	Size       uint32
}

// WriteDirectChunk stores data verbatim as the chunk at offset. The
// filter pipeline is not applied; the caller supplies bytes already in
// stored form, and filterMask records which pipeline filters they
// skipped. DisableAllFilters marks fully raw bytes. The offset must be
// chunk-aligned and inside the dataspace extent. For datasets without
// filters data must be exactly one chunk in size.
func (d *Dataset) WriteDirectChunk(offset []uint64, data []byte, filterMask uint32) error {
	if !d.file.writable {
		return ErrReadOnly
	}
	if d.chunked == nil {
		return ErrNotChunked
	}
	if err := d.checkChunkOffset(offset); err != nil {
		return err
	}
	if d.chunked.Pipeline().Empty() {
		if want := d.chunked.Grid().ChunkBytes(); uint64(len(data)) != want {
			return fmt.Errorf("chunk size mismatch: have %d bytes, want %d", len(data), want)
		}
	}
	if err := d.ensureTable(); err != nil {
		return err
	}
	return d.storeChunk(offset, data, filterMask)
}

// ReadDirectChunk returns the stored bytes of the chunk at offset,
// without running the filter pipeline, along with the filter mask it
// was stored under.
func (d *Dataset) ReadDirectChunk(offset []uint64) (uint32, []byte, error) {
	entry, err := d.chunkEntryAt(offset)
	if err != nil {
		return 0, nil, err
	}
	data, err := d.chunked.ReadStored(entry)
	if err != nil {
		if errors.Is(err, layout.ErrUnallocated) {
			return 0, nil, ErrChunkNotAllocated
		}
		return 0, nil, err
	}
	return entry.FilterMask, data, nil
}

// ReadDirectChunkInto is ReadDirectChunk reading into out. It returns
// out truncated to the stored size, or ErrBufferTooSmall when the
// stored bytes do not fit.
func (d *Dataset) ReadDirectChunkInto(offset []uint64, out []byte) (uint32, []byte, error) {
	entry, err := d.chunkEntryAt(offset)
	if err != nil {
		return 0, nil, err
	}
	if uint64(len(out)) < uint64(entry.Size) {
		return 0, nil, fmt.Errorf("%w: have %d bytes, chunk stores %d", ErrBufferTooSmall, len(out), entry.Size)
	}
	data, err := d.chunked.ReadStored(entry)
	if err != nil {
		if errors.Is(err, layout.ErrUnallocated) {
			return 0, nil, ErrChunkNotAllocated
		}
		return 0, nil, err
	}
	copy(out, data)
	return entry.FilterMask, out[:len(data)], nil
}

// NumChunks returns the number of chunks with allocated storage.
func (d *Dataset) NumChunks() (int, error) {
	if d.chunked == nil {
		return 0, ErrNotChunked
	}
	entries, err := d.chunked.Entries()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !d.file.reader.IsUndefinedOffset(e.Address) {
			n++
		}
	}
	return n, nil
}

// ChunkInfo returns the index-th allocated chunk, counting in row-major
// order of chunk offsets. ErrChunkNotAllocated if index is out of
// range.
func (d *Dataset) ChunkInfo(index int) (*ChunkInfo, error) {
	if d.chunked == nil {
		return nil, ErrNotChunked
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: chunk %d", ErrChunkNotAllocated, index)
	}
	entries, err := d.chunked.Entries()
	if err != nil {
		return nil, err
	}
	n := 0
	for _, e := range entries {
		if d.file.reader.IsUndefinedOffset(e.Address) {
			continue
		}
		if n == index {
			return &ChunkInfo{
				Offset:     append([]uint64(nil), e.Offset...),
				FilterMask: e.FilterMask,
				Address:    e.Address,
				Size:       e.Size,
			}, nil
		}
		n++
	}
	return nil, fmt.Errorf("%w: chunk %d of %d", ErrChunkNotAllocated, index, n)
}

// ChunkInfoAt returns the allocated chunk starting at offset.
func (d *Dataset) ChunkInfoAt(offset []uint64) (*ChunkInfo, error) {
	entry, err := d.chunkEntryAt(offset)
	if err != nil {
		return nil, err
	}
	return &ChunkInfo{
		Offset:     append([]uint64(nil), entry.Offset...),
		FilterMask: entry.FilterMask,
		Address:    entry.Address,
		Size:       entry.Size,
	}, nil
}

func (d *Dataset) chunkEntryAt(offset []uint64) (entry btree.ChunkEntry, err error) {
	if d.chunked == nil {
		return entry, ErrNotChunked
	}
	if err := d.checkChunkOffset(offset); err != nil {
		return entry, err
	}
	entry, ok, err := d.chunked.Lookup(offset)
	if err != nil {
		return entry, err
	}
	if !ok || d.file.reader.IsUndefinedOffset(entry.Address) {
		return entry, fmt.Errorf("%w: chunk at %v", ErrChunkNotAllocated, offset)
	}
	return entry, nil
}

// checkChunkOffset validates rank, alignment, and bounds of a chunk
// offset.
func (d *Dataset) checkChunkOffset(offset []uint64) error {
	if err := d.chunked.Grid().Validate(offset); err != nil {
		if errors.Is(err, layout.ErrBadOffset) {
			return fmt.Errorf("%w: %v", ErrChunkOffset, offset)
		}
		return err
	}
	return nil
}
