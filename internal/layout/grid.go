package layout

import (
	"errors"
	"fmt"
)

// ErrBadOffset marks a chunk offset that is the wrong rank, not
// aligned to the chunk lattice, or outside the dataset extent.
var ErrBadOffset = errors.New("layout: bad chunk offset")

// Grid is the chunk lattice over a dataset extent. Chunks are numbered
// row-major; the linear index of a chunk is the position its entry
// takes in dense indexes like the fixed array.
type Grid struct {
	dims      []uint64
	chunkDims []uint32
	elemSize  uint64
	counts    []uint64 // chunks per dimension
	total     uint64
}

// NewGrid builds the lattice for a dataset extent, chunk shape, and
// element size. Every chunk dimension must be nonzero.
func NewGrid(dims []uint64, chunkDims []uint32, elemSize uint64) (*Grid, error) {
	if len(dims) != len(chunkDims) {
		return nil, fmt.Errorf("layout: extent rank %d does not match chunk rank %d", len(dims), len(chunkDims))
	}
	if len(dims) == 0 {
		return nil, errors.New("layout: chunked storage needs at least one dimension")
	}
	if elemSize == 0 {
		return nil, errors.New("layout: zero element size")
	}

	g := &Grid{
		dims:      append([]uint64(nil), dims...),
		chunkDims: append([]uint32(nil), chunkDims...),
		elemSize:  elemSize,
		counts:    make([]uint64, len(dims)),
		total:     1,
	}
	for d, c := range chunkDims {
		if c == 0 {
			return nil, fmt.Errorf("layout: zero chunk dimension %d", d)
		}
		g.counts[d] = (dims[d] + uint64(c) - 1) / uint64(c)
		g.total *= g.counts[d]
	}
	return g, nil
}

// Rank returns the number of dimensions.
func (g *Grid) Rank() int { return len(g.dims) }

// Dims returns the dataset extent.
func (g *Grid) Dims() []uint64 { return g.dims }

// ChunkDims returns the chunk shape.
func (g *Grid) ChunkDims() []uint32 { return g.chunkDims }

// ElementSize returns the element size in bytes.
func (g *Grid) ElementSize() uint64 { return g.elemSize }

// TotalChunks returns the number of lattice cells, allocated or not.
func (g *Grid) TotalChunks() uint64 { return g.total }

// ChunkBytes returns the byte size of one full chunk.
func (g *Grid) ChunkBytes() uint64 {
	n := g.elemSize
	for _, c := range g.chunkDims {
		n *= uint64(c)
	}
	return n
}

// ExtentBytes returns the byte size of the full dataset extent.
func (g *Grid) ExtentBytes() uint64 {
	n := g.elemSize
	for _, d := range g.dims {
		n *= d
	}
	return n
}

// Validate checks that offset names a lattice cell: right rank,
// aligned to the chunk shape, inside the extent.
func (g *Grid) Validate(offset []uint64) error {
	if len(offset) != len(g.dims) {
		return fmt.Errorf("%w: rank %d, want %d", ErrBadOffset, len(offset), len(g.dims))
	}
	for d, o := range offset {
		if o%uint64(g.chunkDims[d]) != 0 {
			return fmt.Errorf("%w: offset %d not a multiple of chunk dimension %d", ErrBadOffset, o, g.chunkDims[d])
		}
		if o >= g.dims[d] {
			return fmt.Errorf("%w: offset %d outside extent %d", ErrBadOffset, o, g.dims[d])
		}
	}
	return nil
}

// LinearIndex maps a chunk offset to its row-major cell number.
func (g *Grid) LinearIndex(offset []uint64) (uint64, error) {
	if err := g.Validate(offset); err != nil {
		return 0, err
	}
	var idx uint64
	for d, o := range offset {
		idx = idx*g.counts[d] + o/uint64(g.chunkDims[d])
	}
	return idx, nil
}

// OffsetAt maps a row-major cell number back to a chunk offset.
func (g *Grid) OffsetAt(idx uint64) []uint64 {
	offset := make([]uint64, len(g.dims))
	for d := len(g.dims) - 1; d >= 0; d-- {
		offset[d] = (idx % g.counts[d]) * uint64(g.chunkDims[d])
		idx /= g.counts[d]
	}
	return offset
}

// clipCount returns the shape of the chunk at offset clipped to the
// extent, which shrinks edge chunks.
func (g *Grid) clipCount(offset []uint64) []uint64 {
	count := make([]uint64, len(g.dims))
	for d := range count {
		count[d] = uint64(g.chunkDims[d])
		if offset[d]+count[d] > g.dims[d] {
			count[d] = g.dims[d] - offset[d]
		}
	}
	return count
}

// chunkDims64 returns the chunk shape widened for stride math.
func (g *Grid) chunkDims64() []uint64 {
	out := make([]uint64, len(g.chunkDims))
	for d, c := range g.chunkDims {
		out[d] = uint64(c)
	}
	return out
}

// CopyChunkIn copies a decoded full-size chunk into its place in a
// buffer covering the whole extent. Edge chunks are clipped.
func (g *Grid) CopyChunkIn(dst, chunk []byte, offset []uint64) {
	count := g.clipCount(offset)
	copyRegion(dst, chunk, g.dims, g.chunkDims64(), offset, zeros(len(offset)), count, g.elemSize)
}

// ExtractChunk fills chunk (a full-size chunk buffer) from a buffer
// covering the whole extent. Bytes past the extent keep their zero
// fill.
func (g *Grid) ExtractChunk(chunk, src []byte, offset []uint64) {
	count := g.clipCount(offset)
	copyRegion(chunk, src, g.chunkDims64(), g.dims, zeros(len(offset)), offset, count, g.elemSize)
}

// CopyOverlap copies the part of a decoded chunk that intersects the
// selection [start, start+count) into dst, a buffer shaped like the
// selection. A chunk that does not intersect is left alone.
func (g *Grid) CopyOverlap(dst, chunk []byte, offset, start, count []uint64) {
	ndims := len(g.dims)
	clipped := g.clipCount(offset)

	lo := make([]uint64, ndims) // overlap origin in dataset coordinates
	n := make([]uint64, ndims)  // overlap shape
	for d := 0; d < ndims; d++ {
		lo[d] = max64(start[d], offset[d])
		hi := min64(start[d]+count[d], offset[d]+clipped[d])
		if hi <= lo[d] {
			return
		}
		n[d] = hi - lo[d]
	}

	srcPos := make([]uint64, ndims)
	dstPos := make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		srcPos[d] = lo[d] - offset[d]
		dstPos[d] = lo[d] - start[d]
	}
	copyRegion(dst, chunk, count, g.chunkDims64(), dstPos, srcPos, n, g.elemSize)
}

// copyRegion copies a rectangular region between two row-major
// buffers. dstDims and srcDims are the buffer shapes in elements,
// dstPos and srcPos the region origin in each, count the region shape.
func copyRegion(dst, src []byte, dstDims, srcDims, dstPos, srcPos, count []uint64, elemSize uint64) {
	ndims := len(count)
	if ndims == 0 {
		copy(dst, src)
		return
	}

	dstStride := rowMajorStrides(dstDims, elemSize)
	srcStride := rowMajorStrides(srcDims, elemSize)

	var walk func(dim int, dstOff, srcOff uint64)
	walk = func(dim int, dstOff, srcOff uint64) {
		if dim == ndims-1 {
			row := count[dim] * elemSize
			d := dstOff + dstPos[dim]*dstStride[dim]
			s := srcOff + srcPos[dim]*srcStride[dim]
			if d+row <= uint64(len(dst)) && s+row <= uint64(len(src)) {
				copy(dst[d:d+row], src[s:s+row])
			}
			return
		}
		for i := uint64(0); i < count[dim]; i++ {
			walk(dim+1,
				dstOff+(dstPos[dim]+i)*dstStride[dim],
				srcOff+(srcPos[dim]+i)*srcStride[dim])
		}
	}
	walk(0, 0, 0)
}

func rowMajorStrides(dims []uint64, elemSize uint64) []uint64 {
	strides := make([]uint64, len(dims))
	strides[len(dims)-1] = elemSize
	for d := len(dims) - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * dims[d+1]
	}
	return strides
}

// extractHyperslab copies the selection [start, start+count) out of a
// buffer covering the whole extent.
func extractHyperslab(src []byte, dims, start, count []uint64, elemSize uint64) []byte {
	n := elemSize
	for _, c := range count {
		n *= c
	}
	dst := make([]byte, n)
	copyRegion(dst, src, count, dims, zeros(len(dims)), start, count, elemSize)
	return dst
}

// checkSlice validates a hyperslab selection against an extent.
func checkSlice(dims, start, count []uint64) error {
	if len(start) != len(dims) || len(count) != len(dims) {
		return fmt.Errorf("layout: selection rank %d/%d, extent rank %d", len(start), len(count), len(dims))
	}
	for d := range dims {
		if start[d]+count[d] > dims[d] {
			return fmt.Errorf("layout: selection [%d, %d) outside extent %d in dimension %d",
				start[d], start[d]+count[d], dims[d], d)
		}
	}
	return nil
}

func zeros(n int) []uint64 { return make([]uint64, n) }

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
