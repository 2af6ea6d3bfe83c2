package message

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h5kit/hdf5/internal/binary"
)

func testReader() *binary.Reader {
	return binary.NewReader(bytes.NewReader(nil), binary.DefaultGeometry())
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.EncodeUint(buf, v)
	return buf
}

func TestParseDataspaceScalar(t *testing.T) {
	ds, err := parseDataspace([]byte{2, 0, 0, 0}, testReader())
	require.NoError(t, err)

	assert.Equal(t, uint8(2), ds.Version)
	assert.Equal(t, 0, ds.Rank)
	assert.True(t, ds.IsScalar())
	assert.Equal(t, uint64(1), ds.NumElements())
}

func TestParseDataspaceSimple(t *testing.T) {
	data := append([]byte{2, 2, 0, 1}, le64(3)...)
	data = append(data, le64(4)...)

	ds, err := parseDataspace(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Rank)
	assert.Equal(t, []uint64{3, 4}, ds.Dimensions)
	assert.Nil(t, ds.MaxDims)
	assert.Equal(t, uint64(12), ds.NumElements())
	assert.False(t, ds.IsUnlimited())
}

func TestParseDataspaceMaxDims(t *testing.T) {
	data := append([]byte{2, 1, 1, 1}, le64(10)...)
	data = append(data, le64(Unlimited)...)

	ds, err := parseDataspace(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, []uint64{10}, ds.Dimensions)
	assert.Equal(t, []uint64{Unlimited}, ds.MaxDims)
	assert.True(t, ds.IsUnlimited())
}

func TestParseDataspaceVersion1(t *testing.T) {
	// Version 1 pads the header to 8 bytes and has no type field.
	data := append([]byte{1, 1, 0, 0, 0, 0, 0, 0}, le64(7)...)

	ds, err := parseDataspace(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, DataspaceSimple, ds.SpaceType)
	assert.Equal(t, []uint64{7}, ds.Dimensions)
}

func TestParseDataspaceNull(t *testing.T) {
	ds, err := parseDataspace([]byte{2, 0, 0, 2}, testReader())
	require.NoError(t, err)

	assert.True(t, ds.IsNull())
	assert.Equal(t, uint64(0), ds.NumElements())
}

func TestParseDataspaceTruncated(t *testing.T) {
	_, err := parseDataspace([]byte{2, 1, 0, 1, 9}, testReader())
	assert.Error(t, err)
}

func TestParseDatatypeFixedPoint(t *testing.T) {
	data := []byte{
		0x10, // version 1, class 0
		0x08, 0, 0,
	}
	data = append(data, le32(4)...)
	data = append(data, 0, 0, 32, 0)

	dt, err := parseDatatype(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, ClassFixedPoint, dt.Class)
	assert.Equal(t, uint32(4), dt.Size)
	assert.True(t, dt.Signed)
	assert.True(t, dt.IsInteger())
	assert.Equal(t, uint16(32), dt.BitPrecision)
	assert.Equal(t, OrderLE, dt.ByteOrder)
}

func TestParseDatatypeFloat(t *testing.T) {
	data := []byte{0x11, 0x20, 63, 0}
	data = append(data, le32(8)...)
	data = append(data, 0, 0, 64, 0, 52, 11, 0, 52, 255, 3, 0, 0)

	dt, err := parseDatatype(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, ClassFloatPoint, dt.Class)
	assert.Equal(t, uint32(8), dt.Size)
	assert.True(t, dt.IsFloat())
	assert.Len(t, dt.Properties, 12)
}

func TestParseDatatypeString(t *testing.T) {
	data := []byte{0x13, byte(PadNullTerm) | byte(CharsetUTF8)<<4, 0, 0}
	data = append(data, le32(16)...)

	dt, err := parseDatatype(data, testReader())
	require.NoError(t, err)

	assert.True(t, dt.IsString())
	assert.Equal(t, PadNullTerm, dt.StringPadding)
	assert.Equal(t, CharsetUTF8, dt.CharSet)
	assert.Equal(t, uint32(16), dt.Size)
}

func TestParseDatatypeTooShort(t *testing.T) {
	_, err := parseDatatype([]byte{0x10, 0, 0}, testReader())
	assert.Error(t, err)
}

func TestParseLayoutContiguous(t *testing.T) {
	data := append([]byte{3, 1}, le64(1024)...)
	data = append(data, le64(4096)...)

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.True(t, layout.IsContiguous())
	assert.Equal(t, uint64(1024), layout.Address)
	assert.Equal(t, uint64(4096), layout.Size)
}

func TestParseLayoutCompact(t *testing.T) {
	data := []byte{3, 0, 4, 0, 1, 2, 3, 4}

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.True(t, layout.IsCompact())
	assert.Equal(t, []byte{1, 2, 3, 4}, layout.CompactData)
}

func TestParseLayoutChunkedV3(t *testing.T) {
	// Rank 2 chunks of 10x20 float64: dimensionality 3 with the element
	// size as the final dimension, B-tree address before the dims.
	data := []byte{3, 2, 3}
	data = append(data, le64(0x2000)...)
	data = append(data, le32(10)...)
	data = append(data, le32(20)...)
	data = append(data, le32(8)...)

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.True(t, layout.IsChunked())
	assert.Equal(t, ChunkIndexBTreeV1, layout.ChunkIndexType)
	assert.Equal(t, uint64(0x2000), layout.ChunkIndexAddr)
	assert.Equal(t, []uint64{10, 20, 8}, layout.ChunkDims)
	assert.Equal(t, []uint64{10, 20}, layout.DataDims())
	assert.Equal(t, uint32(8), layout.ElementSize())
}

func TestParseLayoutChunkedV4FixedArray(t *testing.T) {
	data := []byte{
		4, 2,
		0,        // flags
		3,        // dimensionality
		1,        // dimension encoding size
		16, 4, 8, // dims: 16x4 chunks of 8-byte elements
		3,  // fixed array index
		10, // page bits
	}
	data = append(data, le64(0x4000)...)

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, ChunkIndexFixedArray, layout.ChunkIndexType)
	assert.Equal(t, uint8(10), layout.PageBits)
	assert.Equal(t, []uint64{16, 4, 8}, layout.ChunkDims)
	assert.Equal(t, uint64(0x4000), layout.ChunkIndexAddr)
}

func TestParseLayoutChunkedV4SingleFiltered(t *testing.T) {
	data := []byte{
		4, 2,
		chunkSingleIndexWithFilter,
		2,
		2,
		100, 0, 4, 0, // dims as 2-byte values
		1, // single chunk index
	}
	data = append(data, le64(512)...) // stored chunk size
	data = append(data, le32(0x00000002)...)
	data = append(data, le64(0x1800)...)

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, ChunkIndexSingle, layout.ChunkIndexType)
	assert.Equal(t, uint64(512), layout.SingleChunkSize)
	assert.Equal(t, uint32(2), layout.SingleFilterMask)
	assert.Equal(t, uint64(0x1800), layout.ChunkIndexAddr)
}

func TestParseLayoutChunkedV4ExtensibleArray(t *testing.T) {
	data := []byte{
		4, 2,
		0,
		2,
		1,
		50, 8,
		4,                // extensible array index
		32, 4, 4, 16, 10, // creation parameters
	}
	data = append(data, le64(0x3000)...)

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, ChunkIndexExtensibleArray, layout.ChunkIndexType)
	assert.Equal(t, uint8(32), layout.MaxBits)
	assert.Equal(t, uint8(4), layout.IndexElements)
	assert.Equal(t, uint8(4), layout.MinPointers)
	assert.Equal(t, uint8(16), layout.MinElements)
	assert.Equal(t, uint8(10), layout.PageBits)
}

func TestParseLayoutChunkedV4BTreeV2(t *testing.T) {
	data := []byte{4, 2, 0, 2, 1, 50, 8, 5}
	data = append(data, le32(2048)...)
	data = append(data, 100, 40)
	data = append(data, le64(0x5000)...)

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, ChunkIndexBTreeV2, layout.ChunkIndexType)
	assert.Equal(t, uint32(2048), layout.NodeSize)
	assert.Equal(t, uint8(100), layout.SplitPercent)
	assert.Equal(t, uint8(40), layout.MergePercent)
}

func TestParseLayoutV1Chunked(t *testing.T) {
	// Versions 1 and 2 lead with the dimensionality and five reserved
	// bytes; the B-tree address precedes the dimensions.
	data := []byte{1, 3, 2, 0, 0, 0, 0, 0}
	data = append(data, le64(0x600)...)
	data = append(data, le32(5)...)
	data = append(data, le32(6)...)
	data = append(data, le32(8)...)

	layout, err := parseDataLayout(data, testReader())
	require.NoError(t, err)

	assert.True(t, layout.IsChunked())
	assert.Equal(t, ChunkIndexBTreeV1, layout.ChunkIndexType)
	assert.Equal(t, uint64(0x600), layout.ChunkIndexAddr)
	assert.Equal(t, []uint64{5, 6, 8}, layout.ChunkDims)
}

func TestParseLayoutUnsupportedVersion(t *testing.T) {
	_, err := parseDataLayout([]byte{9, 1}, testReader())
	assert.Error(t, err)
}

func TestParseFilterPipelineV2(t *testing.T) {
	data := []byte{
		2, 2,
		2, 0, 0, 0, 1, 0, // shuffle, 1 value
		8, 0, 0, 0,
		1, 0, 0, 0, 1, 0, // deflate, 1 value
		9, 0, 0, 0,
	}

	fp, err := parseFilterPipeline(data, testReader())
	require.NoError(t, err)

	require.Len(t, fp.Filters, 2)
	assert.Equal(t, FilterShuffle, fp.Filters[0].ID)
	assert.Equal(t, []uint32{8}, fp.Filters[0].ClientData)
	assert.Equal(t, FilterDeflate, fp.Filters[1].ID)
	assert.Equal(t, []uint32{9}, fp.Filters[1].ClientData)
	assert.True(t, fp.HasCompression())
	assert.True(t, fp.HasFilter(FilterShuffle))
	assert.False(t, fp.HasFilter(FilterFletcher32))
}

func TestParseFilterPipelineV1Padding(t *testing.T) {
	// Version 1 reserves six bytes, pads names to eight, and pads an odd
	// client data count to an even one.
	data := []byte{
		1, 1, 0, 0, 0, 0, 0, 0,
		1, 0, // deflate
		8, 0, // name length
		0, 0, // flags
		1, 0, // one client value
		'd', 'e', 'f', 'l', 'a', 't', 'e', 0,
		6, 0, 0, 0,
		0, 0, 0, 0, // odd count padding
	}

	fp, err := parseFilterPipeline(data, testReader())
	require.NoError(t, err)

	require.Len(t, fp.Filters, 1)
	assert.Equal(t, FilterDeflate, fp.Filters[0].ID)
	assert.Equal(t, "deflate", fp.Filters[0].Name)
	assert.Equal(t, []uint32{6}, fp.Filters[0].ClientData)
}

func TestParseFilterPipelineCustomID(t *testing.T) {
	// Registered filters outside the reserved range carry a name even in
	// version 2.
	data := []byte{2, 1}
	data = append(data, byte(FilterZstd&0xff), byte(FilterZstd>>8))
	data = append(data, 4, 0) // name length
	data = append(data, 1, 0) // optional
	data = append(data, 1, 0)
	data = append(data, 'z', 's', 't', 'd')
	data = append(data, le32(3)...)

	fp, err := parseFilterPipeline(data, testReader())
	require.NoError(t, err)

	require.Len(t, fp.Filters, 1)
	assert.Equal(t, FilterZstd, fp.Filters[0].ID)
	assert.Equal(t, "zstd", fp.Filters[0].Name)
	assert.True(t, fp.Filters[0].IsOptional())
	assert.True(t, fp.HasCompression())
}

func TestParseFillValueV3Default(t *testing.T) {
	fv, err := parseFillValue([]byte{3, 0x0B}, testReader())
	require.NoError(t, err)

	assert.Equal(t, AllocIncremental, fv.SpaceAllocTime)
	assert.Equal(t, FillWriteIfSet, fv.FillWriteTime)
	assert.True(t, fv.IsDefined)
	assert.Nil(t, fv.Value)
}

func TestParseFillValueV3WithValue(t *testing.T) {
	data := []byte{3, 0x2B}
	data = append(data, le32(4)...)
	data = append(data, 0xDE, 0xAD, 0xBE, 0xEF)

	fv, err := parseFillValue(data, testReader())
	require.NoError(t, err)

	assert.True(t, fv.IsDefined)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, fv.Value)
}

func TestParseFillValueV2(t *testing.T) {
	fv, err := parseFillValue([]byte{2, 2, 0, 0}, testReader())
	require.NoError(t, err)

	assert.False(t, fv.IsDefined)
}

func TestParseLinkHard(t *testing.T) {
	name := "dataset"
	data := []byte{1, 0x00, byte(len(name))}
	data = append(data, name...)
	data = append(data, le64(0x1234)...)

	link, err := parseLink(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, name, link.Name)
	assert.True(t, link.IsHard())
	assert.Equal(t, uint64(0x1234), link.ObjectAddress)
}

func TestParseLinkSoft(t *testing.T) {
	name := "alias"
	target := "/data/real"
	data := []byte{1, 0x08, byte(LinkTypeSoft), byte(len(name))}
	data = append(data, name...)
	data = append(data, byte(len(target)), 0)
	data = append(data, target...)

	link, err := parseLink(data, testReader())
	require.NoError(t, err)

	assert.True(t, link.IsSoft())
	assert.Equal(t, target, link.SoftLinkValue)
}

func TestParseLinkCreationOrder(t *testing.T) {
	// Creation order precedes the name length.
	data := []byte{1, 0x04}
	data = append(data, le64(7)...)
	data = append(data, 1, 'x')
	data = append(data, le64(0x99)...)

	link, err := parseLink(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, uint64(7), link.CreationOrder)
	assert.Equal(t, "x", link.Name)
	assert.Equal(t, uint64(0x99), link.ObjectAddress)
}

func TestParseLinkInfoCompact(t *testing.T) {
	data := []byte{0, 0}
	data = append(data, le64(UndefinedAddress)...)
	data = append(data, le64(UndefinedAddress)...)

	li, err := parseLinkInfo(data, testReader())
	require.NoError(t, err)

	assert.False(t, li.IsDense())
}

func TestParseSymbolTable(t *testing.T) {
	data := append(le64(0x1000), le64(0x2000)...)

	st, err := parseSymbolTable(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, uint64(0x1000), st.BTreeAddress)
	assert.Equal(t, uint64(0x2000), st.LocalHeapAddress)
}

func TestParseContinuationMessage(t *testing.T) {
	data := append(le64(0x800), le64(256)...)

	cont, err := ParseContinuation(data, testReader())
	require.NoError(t, err)

	assert.Equal(t, uint64(0x800), cont.Offset)
	assert.Equal(t, uint64(256), cont.Length)
}

func TestParseUnknownType(t *testing.T) {
	msg, err := Parse(Type(0x99), []byte{1, 2, 3}, 0, testReader())
	require.NoError(t, err)

	unknown, ok := msg.(*Unknown)
	require.True(t, ok)
	assert.Equal(t, Type(0x99), unknown.Type())
	assert.Equal(t, []byte{1, 2, 3}, unknown.Data())
}

func TestParseDispatch(t *testing.T) {
	msg, err := Parse(TypeDataspace, []byte{2, 0, 0, 0}, 0, testReader())
	require.NoError(t, err)

	_, ok := msg.(*Dataspace)
	assert.True(t, ok)
}
