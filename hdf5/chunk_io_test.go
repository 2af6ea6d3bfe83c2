package hdf5

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i32le(vals ...int32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return buf
}

func TestDirectChunkUnfiltered(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	dt, err := TypeOf(int32(0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("raw", []uint64{8}, dt, WithChunks(4))
	require.NoError(t, err)

	require.NoError(t, ds.WriteDirectChunk([]uint64{0}, i32le(1, 2, 3, 4), 0))
	require.NoError(t, ds.WriteDirectChunk([]uint64{4}, i32le(5, 6, 7, 8), 0))

	// Served from the chunk table before any flush.
	mask, data, err := ds.ReadDirectChunk([]uint64{4})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), mask)
	assert.Equal(t, i32le(5, 6, 7, 8), data)

	vals, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, vals)
	require.NoError(t, f.Close())

	// Served from the fixed array index after reopen.
	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err = f.OpenDataset("/raw")
	require.NoError(t, err)
	mask, data, err = ds.ReadDirectChunk([]uint64{0})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), mask)
	assert.Equal(t, i32le(1, 2, 3, 4), data)

	vals, err = ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, vals)
}

func TestDirectChunkSizeMismatch(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	defer f.Close()
	dt, err := TypeOf(int32(0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("raw", []uint64{8}, dt, WithChunks(4))
	require.NoError(t, err)

	// Unfiltered chunks must be exactly one chunk of bytes.
	err = ds.WriteDirectChunk([]uint64{0}, i32le(1, 2), 0)
	assert.ErrorContains(t, err, "size mismatch")
}

func TestDirectChunkCompressedBytes(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]int32, 32)
	for i := range data {
		data[i] = int32(i % 3)
	}

	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("z", data, WithChunks(16), WithCompression(9))
	require.NoError(t, err)

	mask, stored, err := ds.ReadDirectChunk([]uint64{16})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), mask)
	assert.NotEqual(t, i32le(data[16:]...), stored)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err = f.OpenDataset("/z")
	require.NoError(t, err)
	mask2, stored2, err := ds.ReadDirectChunk([]uint64{16})
	require.NoError(t, err)
	assert.Equal(t, mask, mask2)
	assert.True(t, bytes.Equal(stored, stored2), "stored bytes must survive reopen unchanged")
}

func TestDirectChunkDisableAllFilters(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	dt, err := TypeOf(int32(0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("mixed", []uint64{8}, dt, WithChunks(4), WithCompression(9))
	require.NoError(t, err)

	raw := i32le(11, 22, 33, 44)
	require.NoError(t, ds.WriteDirectChunk([]uint64{0}, raw, DisableAllFilters))

	// The second chunk carries pre-compressed bytes with mask 0.
	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	_, err = zw.Write(i32le(5, 5, 5, 5))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, ds.WriteDirectChunk([]uint64{4}, zbuf.Bytes(), 0))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err = f.OpenDataset("/mixed")
	require.NoError(t, err)

	mask, data, err := ds.ReadDirectChunk([]uint64{0})
	require.NoError(t, err)
	assert.Equal(t, DisableAllFilters, mask)
	assert.Equal(t, raw, data)

	// The typed read path honors the mask: no inflate on the raw chunk.
	vals, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{11, 22, 33, 44, 5, 5, 5, 5}, vals)
}

func TestDirectChunkCopy(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]int64, 40)
	for i := range data {
		data[i] = int64(i * 2)
	}

	f, err := Create(path)
	require.NoError(t, err)
	src, err := f.Root().CreateDataset("src", data, WithChunks(10), WithCompression(6))
	require.NoError(t, err)
	dt, err := TypeOf(int64(0))
	require.NoError(t, err)
	dst, err := f.Root().CreateDatasetWithType("dst", []uint64{40}, dt, WithChunks(10), WithCompression(6))
	require.NoError(t, err)

	// Compressed bytes move between identical-geometry datasets without
	// a decode/encode round trip.
	for off := uint64(0); off < 40; off += 10 {
		mask, stored, err := src.ReadDirectChunk([]uint64{off})
		require.NoError(t, err)
		require.NoError(t, dst.WriteDirectChunk([]uint64{off}, stored, mask))
	}
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	dst, err = f.OpenDataset("/dst")
	require.NoError(t, err)
	got, err := dst.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadDirectChunkInto(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	defer f.Close()
	dt, err := TypeOf(int32(0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("d", []uint64{4}, dt, WithChunks(4))
	require.NoError(t, err)

	raw := i32le(9, 9, 9, 9)
	require.NoError(t, ds.WriteDirectChunk([]uint64{0}, raw, 0))

	buf := make([]byte, 64)
	mask, got, err := ds.ReadDirectChunkInto([]uint64{0}, buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), mask)
	assert.Equal(t, raw, got)
	assert.Same(t, &buf[0], &got[0])

	_, _, err = ds.ReadDirectChunkInto([]uint64{0}, make([]byte, 3))
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestChunkQueries(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	dt, err := TypeOf(int32(0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("q", []uint64{4, 4}, dt, WithChunks(2, 2))
	require.NoError(t, err)

	// Allocate two of four chunks, out of row-major order.
	require.NoError(t, ds.WriteDirectChunk([]uint64{2, 2}, i32le(4, 4, 4, 4), 0))
	require.NoError(t, ds.WriteDirectChunk([]uint64{0, 2}, i32le(2, 2, 2, 2), 0))

	check := func(ds *Dataset) {
		n, err := ds.NumChunks()
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		first, err := ds.ChunkInfo(0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 2}, first.Offset)
		assert.Equal(t, uint32(16), first.Size)
		assert.Equal(t, uint32(0), first.FilterMask)

		second, err := ds.ChunkInfo(1)
		require.NoError(t, err)
		assert.Equal(t, []uint64{2, 2}, second.Offset)

		at, err := ds.ChunkInfoAt([]uint64{2, 2})
		require.NoError(t, err)
		assert.Equal(t, second, at)

		_, err = ds.ChunkInfo(2)
		assert.ErrorIs(t, err, ErrChunkNotAllocated)
		_, err = ds.ChunkInfoAt([]uint64{0, 0})
		assert.ErrorIs(t, err, ErrChunkNotAllocated)
	}

	check(ds)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	ds, err = f.OpenDataset("/q")
	require.NoError(t, err)
	check(ds)
}

func TestDirectChunkErrors(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	contig, err := f.Root().CreateDataset("contig", []int32{1, 2, 3})
	require.NoError(t, err)
	dt, err := TypeOf(int32(0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("ch", []uint64{8}, dt, WithChunks(4))
	require.NoError(t, err)

	assert.ErrorIs(t, contig.WriteDirectChunk([]uint64{0}, i32le(0), 0), ErrNotChunked)
	_, _, err = contig.ReadDirectChunk([]uint64{0})
	assert.ErrorIs(t, err, ErrNotChunked)
	_, err = contig.NumChunks()
	assert.ErrorIs(t, err, ErrNotChunked)

	// Misaligned, out of bounds, wrong rank.
	assert.ErrorIs(t, ds.WriteDirectChunk([]uint64{2}, i32le(0, 0, 0, 0), 0), ErrChunkOffset)
	assert.ErrorIs(t, ds.WriteDirectChunk([]uint64{8}, i32le(0, 0, 0, 0), 0), ErrChunkOffset)
	assert.ErrorIs(t, ds.WriteDirectChunk([]uint64{0, 0}, i32le(0, 0, 0, 0), 0), ErrChunkOffset)

	_, _, err = ds.ReadDirectChunk([]uint64{4})
	assert.ErrorIs(t, err, ErrChunkNotAllocated)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	ds, err = f.OpenDataset("/ch")
	require.NoError(t, err)
	assert.ErrorIs(t, ds.WriteDirectChunk([]uint64{0}, i32le(0, 0, 0, 0), 0), ErrReadOnly)
}

func TestDirectChunkWriteAfterReopen(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]int32, 8)
	for i := range data {
		data[i] = int32(i)
	}

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("d", data, WithChunks(4), WithCompression(6))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// A reopened session accepts direct writes over the on-disk index.
	f, err = OpenReadWrite(path)
	require.NoError(t, err)
	ds, err := f.OpenDataset("/d")
	require.NoError(t, err)
	raw := i32le(40, 41, 42, 43)
	require.NoError(t, ds.WriteDirectChunk([]uint64{4}, raw, DisableAllFilters))

	mask, got, err := ds.ReadDirectChunk([]uint64{4})
	require.NoError(t, err)
	assert.Equal(t, DisableAllFilters, mask)
	assert.Equal(t, raw, got)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	ds, err = f.OpenDataset("/d")
	require.NoError(t, err)

	mask, got, err = ds.ReadDirectChunk([]uint64{4})
	require.NoError(t, err)
	assert.Equal(t, DisableAllFilters, mask)
	assert.Equal(t, raw, got)

	vals, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 40, 41, 42, 43}, vals)
}
