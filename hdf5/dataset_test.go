package hdf5

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContiguousRoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("ints", []int32{10, -20, 30, -40})
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("floats", []float64{1.25, -2.5, 3.75})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/ints")
	require.NoError(t, err)
	assert.Equal(t, []uint64{4}, ds.Shape())
	assert.False(t, ds.IsChunked())
	ints, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{10, -20, 30, -40}, ints)

	ds, err = f.OpenDataset("/floats")
	require.NoError(t, err)
	floats, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, -2.5, 3.75}, floats)
}

func TestNestedSliceRoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("matrix", [][]int16{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/matrix")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ds.Shape())
	assert.Equal(t, 2, ds.Rank())

	vals, err := ds.ReadInt16()
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2, 3, 4, 5, 6}, vals)
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("names", []string{"alpha", "be", "gamma"})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/names")
	require.NoError(t, err)
	names, err := ds.ReadString()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "be", "gamma"}, names)
}

func TestVarLenStringRoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	names := []string{"first", "", "a much longer third value"}

	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("vls", []uint64{3}, VarStringType())
	require.NoError(t, err)
	require.NoError(t, ds.Write(names))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err = f.OpenDataset("/vls")
	require.NoError(t, err)
	got, err := ds.ReadString()
	require.NoError(t, err)
	assert.Equal(t, names, got)
}

func TestChunkedRoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]int32, 100)
	for i := range data {
		data[i] = int32(i * i)
	}

	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("sq", data, WithChunks(16))
	require.NoError(t, err)
	require.True(t, ds.IsChunked())
	assert.Equal(t, []uint64{16}, ds.ChunkShape())

	// In-session read is served from the chunk table.
	got, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, data, got)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err = f.OpenDataset("/sq")
	require.NoError(t, err)
	got, err = ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestChunked2DEdgeChunks(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	// 5x5 extent over 2x2 chunks leaves partial chunks on both edges.
	data := make([][]float32, 5)
	for r := range data {
		data[r] = make([]float32, 5)
		for c := range data[r] {
			data[r][c] = float32(r*10 + c)
		}
	}

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("grid", data, WithChunks(2, 2))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/grid")
	require.NoError(t, err)
	vals, err := ds.ReadFloat32()
	require.NoError(t, err)
	require.Len(t, vals, 25)
	assert.Equal(t, float32(0), vals[0])
	assert.Equal(t, float32(23), vals[2*5+3])
	assert.Equal(t, float32(44), vals[24])
}

func TestDeflateRoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]int64, 256)
	for i := range data {
		data[i] = int64(i % 7)
	}

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("z", data, WithChunks(64), WithCompression(6), WithShuffle())
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/z")
	require.NoError(t, err)
	got, err := ds.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestZstdRoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]float64, 200)
	for i := range data {
		data[i] = float64(i) / 3
	}

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("zs", data, WithChunks(50), WithZstd(3))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/zs")
	require.NoError(t, err)
	got, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLZ4RoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]uint16, 300)
	for i := range data {
		data[i] = uint16(i % 11)
	}

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("l4", data, WithChunks(100), WithLZ4(0))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/l4")
	require.NoError(t, err)
	got, err := ds.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFletcher32RoundTrip(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := []int32{5, 4, 3, 2, 1, 0, -1, -2}

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("ck", data, WithChunks(4), WithFletcher32())
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/ck")
	require.NoError(t, err)
	got, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestResizableUsesBTree(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]int32, 30)
	for i := range data {
		data[i] = int32(i)
	}

	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("grow", data, WithChunks(8), WithMaxDims(0))
	require.NoError(t, err)
	assert.Equal(t, []uint64{^uint64(0)}, ds.MaxDims())
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err = f.OpenDataset("/grow")
	require.NoError(t, err)
	got, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadSlice(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	data := make([]int32, 64)
	for i := range data {
		data[i] = int32(i)
	}

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("lin", data, WithChunks(10))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/lin")
	require.NoError(t, err)

	var got []int32
	require.NoError(t, ds.ReadSliceInto([]uint64{5}, []uint64{7}, &got))
	assert.Equal(t, []int32{5, 6, 7, 8, 9, 10, 11}, got)
}

func TestCreateEmptyThenWrite(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	dt, err := TypeOf(int32(0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDatasetWithType("later", []uint64{6}, dt, WithChunks(3))
	require.NoError(t, err)

	// Unwritten chunks read as fill.
	zeros, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, make([]int32, 6), zeros)

	require.NoError(t, ds.Write([]int32{9, 8, 7, 6, 5, 4}))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err = f.OpenDataset("/later")
	require.NoError(t, err)
	got, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{9, 8, 7, 6, 5, 4}, got)
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("d", []int32{1, 2, 3})
	require.NoError(t, err)

	err = ds.Write([]int32{1, 2})
	assert.ErrorContains(t, err, "size mismatch")

	_, err = f.Root().CreateDataset("bad", []int32{1, 2}, WithCompression(9))
	assert.ErrorIs(t, err, ErrNotChunked)

	_, err = f.Root().CreateDataset("", []int32{1})
	assert.ErrorIs(t, err, ErrInvalidPath)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Root().CreateDataset("x", []int32{1})
	assert.ErrorIs(t, err, ErrReadOnly)
	ds, err = f.OpenDataset("/d")
	require.NoError(t, err)
	assert.ErrorIs(t, ds.Write([]int32{0, 0, 0}), ErrReadOnly)
}

func TestDatasetAttributes(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("sig", []float32{1, 2},
		WithAttribute("rate", int32(48000)),
		WithAttribute("channels", []int64{1, 2}),
		WithAttribute("label", "left"),
	)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/sig")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rate", "channels", "label"}, ds.Attrs())
	assert.True(t, ds.HasAttr("rate"))
	assert.False(t, ds.HasAttr("nope"))

	rate, err := ds.Attr("rate").ReadScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(48000), rate)

	chans, err := ds.Attr("channels").ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, chans)

	label, err := ds.Attr("label").ReadScalarString()
	require.NoError(t, err)
	assert.Equal(t, "left", label)
}

func TestOpenReadWriteAppends(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("first", []int32{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenReadWrite(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("second", []int32{4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	for name, want := range map[string][]int32{
		"/first":  {1, 2, 3},
		"/second": {4, 5, 6},
	} {
		ds, err := f.OpenDataset(name)
		require.NoError(t, err)
		got, err := ds.ReadInt32()
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}
