package object

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

func writeTestHeader(t *testing.T, msgs []message.Message, minChunk int) []byte {
	t.Helper()
	buf, w := binary.NewBuffer(binary.DefaultGeometry())
	require.NoError(t, WriteHeaderSized(w, msgs, minChunk))
	return buf.Bytes()
}

func readTestHeader(t *testing.T, raw []byte) *Header {
	t.Helper()
	r := binary.NewReader(bytes.NewReader(raw), binary.DefaultGeometry())
	h, err := ReadHeader(r, 0)
	require.NoError(t, err)
	return h
}

func TestFindMessages(t *testing.T) {
	ds := message.NewDataspace([]uint64{4}, nil)
	dt := message.NewFixedPointDatatype(4, true, message.OrderLE)
	h := &Header{Messages: []message.Message{ds, dt, message.NewHardLink("a", 1), message.NewHardLink("b", 2)}}

	assert.Equal(t, message.Message(ds), h.Find(message.TypeDataspace))
	assert.Nil(t, h.Find(message.TypeFilterPipeline))
	assert.Len(t, h.FindAll(message.TypeLink), 2)
	assert.Empty(t, h.FindAll(message.TypeAttribute))
}

func TestTypedAccessors(t *testing.T) {
	space := message.NewDataspace([]uint64{2, 3}, nil)
	dtype := message.NewFloatDatatype(8, message.OrderLE)
	layout := message.NewContiguousLayout(4096, 48)
	pipeline := message.NewFilterPipeline(message.NewDeflateFilter(6))
	attr := message.NewScalarAttribute("units", message.NewStringDatatype(2, message.PadNullTerm, message.CharsetASCII), []byte("mV"))

	h := &Header{Messages: []message.Message{space, dtype, message.NewFillValue(), pipeline, layout, attr}}

	assert.Equal(t, space, h.Dataspace())
	assert.Equal(t, dtype, h.Datatype())
	assert.Equal(t, layout, h.DataLayout())
	assert.Equal(t, pipeline, h.FilterPipeline())
	assert.NotNil(t, h.FillValue())
	require.Len(t, h.Attributes(), 1)
	assert.Equal(t, "units", h.Attributes()[0].Name)
	assert.Nil(t, h.SymbolTable())
	assert.Nil(t, h.LinkInfo())
}

func TestReadInvalidHeader(t *testing.T) {
	r := binary.NewReader(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0}), binary.DefaultGeometry())
	_, err := ReadHeader(r, 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestReadTruncatedHeader(t *testing.T) {
	r := binary.NewReader(bytes.NewReader([]byte{'O', 'H'}), binary.DefaultGeometry())
	_, err := ReadHeader(r, 0)
	assert.Error(t, err)
}

func TestGroupHeaderRoundTrip(t *testing.T) {
	links := []*message.Link{
		message.NewHardLink("temperature", 0x1000),
		message.NewSoftLink("alias", "/temperature"),
	}
	raw := writeTestHeader(t, NewGroupHeader(links), MinGroupChunkSize)

	h := readTestHeader(t, raw)
	assert.Equal(t, uint8(2), h.Version)
	require.NotNil(t, h.LinkInfo())
	assert.False(t, h.LinkInfo().IsDense())

	got := h.Links()
	require.Len(t, got, 2)
	assert.Equal(t, "temperature", got[0].Name)
	assert.Equal(t, uint64(0x1000), got[0].ObjectAddress)
	assert.Equal(t, "alias", got[1].Name)
	assert.Equal(t, "/temperature", got[1].SoftLinkValue)
}

func TestDatasetHeaderRoundTrip(t *testing.T) {
	space := message.NewDataspace([]uint64{100, 200}, nil)
	dtype := message.NewFixedPointDatatype(2, false, message.OrderLE)
	pipeline := message.NewFilterPipeline(message.NewShuffleFilter(2), message.NewDeflateFilter(9))
	layout := message.NewChunkedLayout([]uint64{10, 20}, 2, message.ChunkIndexFixedArray, 0x2000)

	raw := writeTestHeader(t, NewDatasetHeader(space, dtype, pipeline, layout), 0)
	h := readTestHeader(t, raw)

	require.NotNil(t, h.Dataspace())
	assert.Equal(t, []uint64{100, 200}, h.Dataspace().Dimensions)

	require.NotNil(t, h.Datatype())
	assert.Equal(t, uint32(2), h.Datatype().Size)
	assert.False(t, h.Datatype().Signed)

	require.NotNil(t, h.FillValue())
	assert.True(t, h.FillValue().IsDefined)
	assert.Empty(t, h.FillValue().Value)

	require.NotNil(t, h.FilterPipeline())
	require.Len(t, h.FilterPipeline().Filters, 2)
	assert.Equal(t, message.FilterShuffle, h.FilterPipeline().Filters[0].ID)
	assert.Equal(t, message.FilterDeflate, h.FilterPipeline().Filters[1].ID)

	layoutGot := h.DataLayout()
	require.NotNil(t, layoutGot)
	assert.True(t, layoutGot.IsChunked())
	assert.Equal(t, []uint64{10, 20}, layoutGot.DataDims())
	assert.Equal(t, uint32(2), layoutGot.ElementSize())
	assert.Equal(t, message.ChunkIndexFixedArray, layoutGot.ChunkIndexType)
	assert.Equal(t, uint64(0x2000), layoutGot.ChunkIndexAddr)
}

func TestUnfilteredDatasetHeaderOmitsPipeline(t *testing.T) {
	msgs := NewDatasetHeader(
		message.NewDataspace([]uint64{8}, nil),
		message.NewFloatDatatype(4, message.OrderLE),
		nil,
		message.NewContiguousLayout(512, 32),
	)
	h := readTestHeader(t, writeTestHeader(t, msgs, 0))
	assert.Nil(t, h.FilterPipeline())
	assert.NotNil(t, h.DataLayout())
}

func TestHeaderSizeMatchesWrite(t *testing.T) {
	_, w := binary.NewBuffer(binary.DefaultGeometry())
	msgs := NewGroupHeader([]*message.Link{message.NewHardLink("x", 42)})

	raw := writeTestHeader(t, msgs, MinGroupChunkSize)
	assert.Equal(t, HeaderSizeSized(w, msgs, MinGroupChunkSize), len(raw))

	raw = writeTestHeader(t, msgs, 0)
	assert.Equal(t, HeaderSize(w, msgs), len(raw))
}

func TestMinChunkPadding(t *testing.T) {
	msgs := NewEmptyGroupHeader()
	raw := writeTestHeader(t, msgs, MinGroupChunkSize)

	// Signature, version, flags, 1-byte size field, chunk, checksum.
	assert.Equal(t, 4+1+1+1+MinGroupChunkSize+4, len(raw))

	h := readTestHeader(t, raw)
	assert.NotNil(t, h.LinkInfo())
	assert.Len(t, h.Messages, 2)
}

func TestChecksumMismatch(t *testing.T) {
	raw := writeTestHeader(t, NewEmptyGroupHeader(), 0)
	raw[10] ^= 0x01
	r := binary.NewReader(bytes.NewReader(raw), binary.DefaultGeometry())
	_, err := ReadHeader(r, 0)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestReadV1Header(t *testing.T) {
	// Hand-built version 1 header: 16-byte prefix, one dataspace
	// message padded to 8 bytes.
	var raw bytes.Buffer
	raw.Write([]byte{1, 0, 1, 0}) // version, reserved, message count
	raw.Write([]byte{1, 0, 0, 0}) // reference count
	raw.Write([]byte{0x20, 0, 0, 0, 0, 0, 0, 0})

	dspace := []byte{2, 1, 0, 1, 16, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	raw.Write([]byte{0x01, 0, uint8(len(dspace)), 0, 0, 0, 0, 0})
	raw.Write(dspace)

	r := binary.NewReader(bytes.NewReader(raw.Bytes()), binary.DefaultGeometry())
	h, err := ReadHeader(r, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), h.Version)
	assert.Equal(t, uint32(1), h.RefCount)
	require.NotNil(t, h.Dataspace())
	assert.Equal(t, []uint64{16}, h.Dataspace().Dimensions)
}

func TestReadV2Continuation(t *testing.T) {
	geo := binary.DefaultGeometry()

	// Serialize the link destined for the continuation block.
	linkBuf, lw := binary.NewBuffer(geo)
	link := message.NewHardLink("spilled", 0x3000)
	require.NoError(t, message.Serialize(link, lw))

	// Continuation block: OCHK, one link message, checksum.
	contBuf, cw := binary.NewBuffer(geo)
	require.NoError(t, cw.WriteBytes([]byte(signatureOCHK)))
	require.NoError(t, cw.WriteUint8(uint8(message.TypeLink)))
	require.NoError(t, cw.WriteUint16(uint16(linkBuf.Len())))
	require.NoError(t, cw.WriteUint8(0))
	require.NoError(t, cw.WriteBytes(linkBuf.Bytes()))
	require.NoError(t, cw.WriteUint32(binary.Lookup3Checksum(contBuf.Bytes())))

	const contOffset = 0x80
	contLen := uint64(contBuf.Len())

	// Main header: one continuation message pointing at the block.
	chunkSize := 4 + geo.OffsetSize + geo.LengthSize
	mainBuf, mw := binary.NewBuffer(geo)
	require.NoError(t, mw.WriteBytes([]byte(SignatureV2)))
	require.NoError(t, mw.WriteUint8(2))
	require.NoError(t, mw.WriteUint8(0))
	require.NoError(t, mw.WriteUint8(uint8(chunkSize)))
	require.NoError(t, mw.WriteUint8(uint8(message.TypeObjectHeaderContinuation)))
	require.NoError(t, mw.WriteUint16(uint16(geo.OffsetSize+geo.LengthSize)))
	require.NoError(t, mw.WriteUint8(0))
	require.NoError(t, mw.WriteOffset(contOffset))
	require.NoError(t, mw.WriteLength(contLen))
	require.NoError(t, mw.WriteUint32(binary.Lookup3Checksum(mainBuf.Bytes())))

	file := make([]byte, contOffset+contBuf.Len())
	copy(file, mainBuf.Bytes())
	copy(file[contOffset:], contBuf.Bytes())

	r := binary.NewReader(bytes.NewReader(file), geo)
	h, err := ReadHeader(r, 0)
	require.NoError(t, err)
	require.Len(t, h.Links(), 1)
	assert.Equal(t, "spilled", h.Links()[0].Name)
	assert.Equal(t, uint64(0x3000), h.Links()[0].ObjectAddress)
}
