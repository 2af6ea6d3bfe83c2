package layout

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/btree"
	"github.com/h5kit/hdf5/internal/filter"
	"github.com/h5kit/hdf5/internal/message"
)

// Chunked serves data stored as indexed chunks. Entries come from the
// write-session [Table] when one is attached, otherwise from whatever
// on-disk index the layout message names.
type Chunked struct {
	msg      *message.DataLayout
	space    *message.Dataspace
	dtype    *message.Datatype
	pipeline *filter.Pipeline
	reader   *binary.Reader
	grid     *Grid

	table *Table
	cache *Cache
	tag   uint64
}

// NewChunked builds the handler for a chunked layout message.
func NewChunked(
	msg *message.DataLayout,
	space *message.Dataspace,
	dtype *message.Datatype,
	pipelineMsg *message.FilterPipeline,
	reader *binary.Reader,
) (*Chunked, error) {
	pipeline, err := filter.NewPipeline(pipelineMsg)
	if err != nil {
		return nil, fmt.Errorf("layout: compiling filter pipeline: %w", err)
	}

	chunkDims := msg.DataDims()
	dims := space.Dimensions
	if len(chunkDims) > len(dims) {
		// Some writers record the trailing element-size slot without
		// bumping the dimensionality; trim to the dataset rank.
		chunkDims = chunkDims[:len(dims)]
	}
	narrow := make([]uint32, len(chunkDims))
	for d, c := range chunkDims {
		narrow[d] = uint32(c)
	}
	grid, err := NewGrid(dims, narrow, uint64(dtype.Size))
	if err != nil {
		return nil, err
	}

	return &Chunked{
		msg:      msg,
		space:    space,
		dtype:    dtype,
		pipeline: pipeline,
		reader:   reader,
		grid:     grid,
	}, nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// Grid returns the chunk lattice.
func (c *Chunked) Grid() *Grid { return c.grid }

// Pipeline returns the compiled filter pipeline, possibly empty.
func (c *Chunked) Pipeline() *filter.Pipeline { return c.pipeline }

// UseTable makes the table the entry source, overriding the on-disk
// index until the next flush rewrites it.
func (c *Chunked) UseTable(t *Table) { c.table = t }

// UseCache attaches a decoded-chunk cache. tag distinguishes this
// dataset's chunks, conventionally the object header address.
func (c *Chunked) UseCache(cache *Cache, tag uint64) {
	c.cache = cache
	c.tag = tag
}

// Entries returns the allocated chunks in row-major cell order.
func (c *Chunked) Entries() ([]btree.ChunkEntry, error) {
	if c.table != nil {
		return c.table.Entries(), nil
	}
	return c.readIndex()
}

// Lookup finds the entry for the chunk at offset.
func (c *Chunked) Lookup(offset []uint64) (btree.ChunkEntry, bool, error) {
	if c.table != nil {
		return c.table.Get(offset)
	}
	want, err := c.grid.LinearIndex(offset)
	if err != nil {
		return btree.ChunkEntry{}, false, err
	}
	entries, err := c.readIndex()
	if err != nil {
		return btree.ChunkEntry{}, false, err
	}
	for _, e := range entries {
		idx, err := c.grid.LinearIndex(e.Offset)
		if err != nil {
			continue
		}
		if idx == want {
			return e, true, nil
		}
	}
	return btree.ChunkEntry{}, false, nil
}

// ReadStored returns a chunk's bytes as stored, without running the
// filter pipeline.
func (c *Chunked) ReadStored(e btree.ChunkEntry) ([]byte, error) {
	if c.reader == nil || c.reader.IsUndefinedOffset(e.Address) {
		return nil, ErrUnallocated
	}
	data, err := c.reader.At(int64(e.Address)).ReadBytes(int(e.Size))
	if err != nil {
		return nil, fmt.Errorf("layout: chunk at 0x%x: %w", e.Address, err)
	}
	return data, nil
}

// Read assembles the whole extent. Cells without an allocated chunk
// keep the zero fill.
func (c *Chunked) Read() ([]byte, error) {
	out := make([]byte, c.grid.ExtentBytes())
	if len(out) == 0 {
		return out, nil
	}

	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := c.decoded(e)
		if err != nil {
			return nil, err
		}
		c.grid.CopyChunkIn(out, data, e.Offset)
	}
	return out, nil
}

// ReadSlice assembles the hyperslab [start, start+count), touching
// only the chunks that intersect it.
func (c *Chunked) ReadSlice(start, count []uint64) ([]byte, error) {
	if err := checkSlice(c.grid.Dims(), start, count); err != nil {
		return nil, err
	}

	n := c.grid.ElementSize()
	for _, cnt := range count {
		n *= cnt
	}
	out := make([]byte, n)

	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !c.overlaps(e.Offset, start, count) {
			continue
		}
		data, err := c.decoded(e)
		if err != nil {
			return nil, err
		}
		c.grid.CopyOverlap(out, data, e.Offset, start, count)
	}
	return out, nil
}

func (c *Chunked) overlaps(offset, start, count []uint64) bool {
	for d := range offset {
		end := offset[d] + uint64(c.grid.ChunkDims()[d])
		if end <= start[d] || offset[d] >= start[d]+count[d] {
			return false
		}
	}
	return true
}

// decoded returns a chunk's bytes after the filter pipeline, cached.
func (c *Chunked) decoded(e btree.ChunkEntry) ([]byte, error) {
	idx, err := c.grid.LinearIndex(e.Offset)
	if err != nil {
		return nil, err
	}
	if data, ok := c.cache.Get(c.tag, idx); ok {
		return data, nil
	}

	stored, err := c.ReadStored(e)
	if err != nil {
		return nil, err
	}
	data, err := c.pipeline.Decode(stored, e.FilterMask)
	if err != nil {
		return nil, fmt.Errorf("layout: decoding chunk at %v: %w", e.Offset, err)
	}
	c.cache.Add(c.tag, idx, data)
	return data, nil
}

// readIndex enumerates the on-disk chunk index. An undefined index
// address means no chunk has been allocated.
func (c *Chunked) readIndex() ([]btree.ChunkEntry, error) {
	addr := c.msg.ChunkIndexAddr
	if c.reader == nil || c.reader.IsUndefinedOffset(addr) || addr == 0 {
		return nil, nil
	}

	switch c.resolveIndexType() {
	case message.ChunkIndexBTreeV1:
		return btree.ReadChunkIndex(c.reader, addr, c.grid.Rank())

	case message.ChunkIndexBTreeV2:
		return btree.ReadChunkIndexV2(c.reader, addr, c.grid.ChunkDims())

	case message.ChunkIndexFixedArray:
		return readFixedArray(c.reader, addr, c.grid)

	case message.ChunkIndexExtensibleArray:
		return readExtensibleArray(c.reader, addr, c.grid)

	case message.ChunkIndexSingle:
		size := uint32(c.grid.ChunkBytes())
		mask := uint32(0)
		if c.msg.SingleChunkSize > 0 {
			size = uint32(c.msg.SingleChunkSize)
			mask = c.msg.SingleFilterMask
		}
		return []btree.ChunkEntry{{
			Offset:     zeros(c.grid.Rank()),
			FilterMask: mask,
			Size:       size,
			Address:    addr,
		}}, nil

	case message.ChunkIndexImplicit:
		return c.implicitEntries(addr), nil

	default:
		return nil, fmt.Errorf("layout: unsupported chunk index type %d", c.msg.ChunkIndexType)
	}
}

// resolveIndexType cross-checks the message's index type against the
// signature at the index address. The signature wins when they
// disagree, which tolerates files whose layout message encodes the
// index type off by one.
func (c *Chunked) resolveIndexType() message.ChunkIndexType {
	sig, err := c.reader.At(int64(c.msg.ChunkIndexAddr)).Peek(4)
	if err != nil {
		return c.msg.ChunkIndexType
	}
	switch string(sig) {
	case "TREE":
		return message.ChunkIndexBTreeV1
	case "BTHD":
		return message.ChunkIndexBTreeV2
	case "FAHD":
		return message.ChunkIndexFixedArray
	case "EAHD":
		return message.ChunkIndexExtensibleArray
	}
	if c.msg.ChunkIndexType == message.ChunkIndexImplicit {
		return message.ChunkIndexImplicit
	}
	// No index signature at the address: raw chunk bytes.
	return message.ChunkIndexSingle
}

// implicitEntries lays cells out contiguously from base, the implicit
// index's fixed placement. Filters do not apply to implicit storage.
func (c *Chunked) implicitEntries(base uint64) []btree.ChunkEntry {
	total := c.grid.TotalChunks()
	size := c.grid.ChunkBytes()
	entries := make([]btree.ChunkEntry, 0, total)
	for idx := uint64(0); idx < total; idx++ {
		entries = append(entries, btree.ChunkEntry{
			Offset:  c.grid.OffsetAt(idx),
			Size:    uint32(size),
			Address: base + idx*size,
		})
	}
	return entries
}
