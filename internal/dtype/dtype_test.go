package dtype

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/message"
)

func TestGoType(t *testing.T) {
	tests := []struct {
		name string
		dt   *message.Datatype
		want reflect.Type
	}{
		{"int8", &message.Datatype{Class: message.ClassFixedPoint, Size: 1, Signed: true}, reflect.TypeOf(int8(0))},
		{"uint8", &message.Datatype{Class: message.ClassFixedPoint, Size: 1}, reflect.TypeOf(uint8(0))},
		{"int16", &message.Datatype{Class: message.ClassFixedPoint, Size: 2, Signed: true}, reflect.TypeOf(int16(0))},
		{"uint32", &message.Datatype{Class: message.ClassFixedPoint, Size: 4}, reflect.TypeOf(uint32(0))},
		{"int64", &message.Datatype{Class: message.ClassFixedPoint, Size: 8, Signed: true}, reflect.TypeOf(int64(0))},
		{"float32", &message.Datatype{Class: message.ClassFloatPoint, Size: 4}, reflect.TypeOf(float32(0))},
		{"float64", &message.Datatype{Class: message.ClassFloatPoint, Size: 8}, reflect.TypeOf(float64(0))},
		{"string", &message.Datatype{Class: message.ClassString, Size: 10}, reflect.TypeOf("")},
		{"vstring", &message.Datatype{Class: message.ClassVarLen, IsVarLenString: true}, reflect.TypeOf("")},
		{"bitfield", &message.Datatype{Class: message.ClassBitfield, Size: 2}, reflect.TypeOf(uint16(0))},
		{"compound", &message.Datatype{Class: message.ClassCompound, Size: 8}, reflect.TypeOf(map[string]any(nil))},
		{
			"enum",
			&message.Datatype{
				Class:    message.ClassEnum,
				Size:     2,
				BaseType: &message.Datatype{Class: message.ClassFixedPoint, Size: 2, Signed: true},
			},
			reflect.TypeOf(int16(0)),
		},
		{
			"array",
			&message.Datatype{
				Class:     message.ClassArray,
				Size:      20,
				ArrayDims: []uint32{5},
				BaseType:  &message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: true},
			},
			reflect.TypeOf([5]int32{}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoType(tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := GoType(nil)
	assert.Error(t, err)
	_, err = GoType(&message.Datatype{Class: message.ClassFixedPoint, Size: 3})
	assert.Error(t, err)
}

func TestFromValue(t *testing.T) {
	dt, err := FromValue([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, message.ClassFloatPoint, dt.Class)
	assert.Equal(t, uint32(8), dt.Size)

	dt, err = FromValue([]uint16{})
	require.NoError(t, err)
	assert.Equal(t, message.ClassFixedPoint, dt.Class)
	assert.Equal(t, uint32(2), dt.Size)
	assert.False(t, dt.Signed)

	dt, err = FromValue(int32(7))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), dt.Size)
	assert.True(t, dt.Signed)

	dt, err = FromValue("s")
	require.NoError(t, err)
	assert.Equal(t, message.ClassVarLen, dt.Class)
	assert.True(t, dt.IsVarLenString)

	_, err = FromValue(struct{}{})
	assert.Error(t, err)
	_, err = FromValue(nil)
	assert.Error(t, err)
}

func TestDecodeIntsDirect(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: true, ByteOrder: message.OrderLE}
	raw := []byte{1, 0, 0, 0, 0xFE, 0xFF, 0xFF, 0xFF, 3, 0, 0, 0}

	var out []int32
	require.NoError(t, Decode(dt, raw, 3, &out))
	assert.Equal(t, []int32{1, -2, 3}, out)
}

func TestDecodeIntsBigEndian(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassFixedPoint, Size: 2, Signed: true, ByteOrder: message.OrderBE}
	raw := []byte{0x00, 0x01, 0xFF, 0xFE}

	var out []int16
	require.NoError(t, Decode(dt, raw, 2, &out))
	assert.Equal(t, []int16{1, -2}, out)
}

func TestDecodeIntsWidening(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassFixedPoint, Size: 1, Signed: true, ByteOrder: message.OrderLE}

	// Destination element is wider than the stored type, so the slow
	// path converts with sign extension.
	var out []int64
	require.NoError(t, Decode(dt, []byte{0xFF, 0x7F}, 2, &out))
	assert.Equal(t, []int64{-1, 127}, out)
}

func TestDecodeFloats(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassFloatPoint, Size: 8, ByteOrder: message.OrderLE}
	raw := []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF8, 0x3F, // 1.5
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x40, // 2.5
	}

	var out []float64
	require.NoError(t, Decode(dt, raw, 2, &out))
	assert.Equal(t, []float64{1.5, 2.5}, out)

	f32 := &message.Datatype{Class: message.ClassFloatPoint, Size: 4, ByteOrder: message.OrderLE}
	got, err := DecodeSlice[float32](f32, []byte{0x00, 0x00, 0xC0, 0x3F}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5}, got)
}

func TestDecodeShortBuffer(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassFixedPoint, Size: 4, ByteOrder: message.OrderLE}
	var out []uint32
	err := Decode(dt, []byte{1, 2, 3}, 1, &out)
	assert.ErrorContains(t, err, "too short")
}

func TestDecodeBadDestination(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassFixedPoint, Size: 1}
	var out []uint8
	assert.Error(t, Decode(dt, nil, 0, out))

	var s string
	assert.Error(t, Decode(dt, nil, 0, &s))
}

func TestDecodeStrings(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassString, Size: 8, StringPadding: message.PadNullTerm}
	raw := append([]byte("hello\x00\x00\x00"), []byte("worlds!\x00")...)

	var out []string
	require.NoError(t, Decode(dt, raw, 2, &out))
	assert.Equal(t, []string{"hello", "worlds!"}, out)

	spaced := &message.Datatype{Class: message.ClassString, Size: 6, StringPadding: message.PadSpacePad}
	got, err := DecodeSlice[string](spaced, []byte("ab    "), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab"}, got)
}

func TestDecodeEnum(t *testing.T) {
	dt := &message.Datatype{
		Class:    message.ClassEnum,
		Size:     2,
		BaseType: &message.Datatype{Class: message.ClassFixedPoint, Size: 2, Signed: true, ByteOrder: message.OrderLE},
	}
	var out []int16
	require.NoError(t, Decode(dt, []byte{0x05, 0x00, 0xFB, 0xFF}, 2, &out))
	assert.Equal(t, []int16{5, -5}, out)
}

func TestDecodeOpaque(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassOpaque, Size: 3}
	raw := []byte{1, 2, 3, 4, 5, 6}

	var out [][]byte
	require.NoError(t, Decode(dt, raw, 2, &out))
	assert.Equal(t, [][]byte{{1, 2, 3}, {4, 5, 6}}, out)

	// Results own their bytes.
	raw[0] = 0xAA
	assert.Equal(t, byte(1), out[0][0])
}

func compoundXY(t *testing.T) *message.Datatype {
	t.Helper()
	return &message.Datatype{
		Class: message.ClassCompound,
		Size:  12,
		Members: []message.CompoundMember{
			{
				Name:       "x",
				ByteOffset: 0,
				Type:       &message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: true, ByteOrder: message.OrderLE},
			},
			{
				Name:       "y",
				ByteOffset: 4,
				Type:       &message.Datatype{Class: message.ClassFloatPoint, Size: 8, ByteOrder: message.OrderLE},
			},
		},
	}
}

func TestDecodeCompoundMap(t *testing.T) {
	raw := []byte{
		7, 0, 0, 0,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF8, 0x3F,
	}
	var out []map[string]any
	require.NoError(t, Decode(compoundXY(t), raw, 1, &out))
	require.Len(t, out, 1)
	assert.Equal(t, int32(7), out[0]["x"])
	assert.Equal(t, 1.5, out[0]["y"])
}

func TestDecodeCompoundStruct(t *testing.T) {
	raw := []byte{
		7, 0, 0, 0,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF8, 0x3F,
	}
	type point struct {
		X int32
		Y float64
	}
	var out []point
	require.NoError(t, Decode(compoundXY(t), raw, 1, &out))
	assert.Equal(t, []point{{X: 7, Y: 1.5}}, out)
}

func TestDecodeArray(t *testing.T) {
	dt := &message.Datatype{
		Class:     message.ClassArray,
		Size:      8,
		ArrayDims: []uint32{2},
		BaseType:  &message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: false, ByteOrder: message.OrderLE},
	}
	raw := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0}

	var out [][]uint32
	require.NoError(t, Decode(dt, raw, 2, &out))
	assert.Equal(t, [][]uint32{{1, 2}, {3, 4}}, out)
}

// buildGlobalHeap lays out a GCOL collection holding one string object
// and returns the file image plus the heap reference bytes an element
// would carry.
func buildGlobalHeap(t *testing.T, addr uint64, s string) (file []byte, ref []byte) {
	t.Helper()
	geo := binary.DefaultGeometry()

	buf, w := binary.NewBuffer(geo)
	require.NoError(t, w.WriteBytes([]byte("GCOL")))
	require.NoError(t, w.WriteUint8(1))
	require.NoError(t, w.WriteZeros(3))

	payload := append([]byte(s), 0)
	padded := (len(payload) + 7) &^ 7
	objectSpan := 2 + 2 + 4 + geo.LengthSize + padded
	collectionSize := 4 + 1 + 3 + geo.LengthSize + objectSpan
	require.NoError(t, w.WriteLength(uint64(collectionSize)))

	require.NoError(t, w.WriteUint16(1)) // object index
	require.NoError(t, w.WriteUint16(1)) // reference count
	require.NoError(t, w.WriteZeros(4))
	require.NoError(t, w.WriteLength(uint64(len(payload))))
	require.NoError(t, w.WriteBytes(payload))
	require.NoError(t, w.WriteZeros(padded-len(payload)))

	file = make([]byte, int(addr)+buf.Len())
	copy(file[addr:], buf.Bytes())

	refBuf, rw := binary.NewBuffer(geo)
	require.NoError(t, rw.WriteUint32(uint32(len(s))))
	require.NoError(t, rw.WriteOffset(addr))
	require.NoError(t, rw.WriteUint32(1))
	return file, refBuf.Bytes()
}

func TestDecodeVarLenString(t *testing.T) {
	file, ref := buildGlobalHeap(t, 0x200, "variable")
	r := binary.NewReader(bytes.NewReader(file), binary.DefaultGeometry())

	dt := &message.Datatype{Class: message.ClassVarLen, Size: 16, IsVarLenString: true}
	var out []string
	require.NoError(t, DecodeWith(dt, ref, 1, &out, r))
	assert.Equal(t, []string{"variable"}, out)
}

func TestDecodeVarLenNullReference(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassVarLen, Size: 16, IsVarLenString: true}
	ref := make([]byte, 16)

	var out []string
	require.NoError(t, DecodeWith(dt, ref, 1, &out, nil))
	assert.Equal(t, []string{""}, out)
}

func TestScalar(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: false, ByteOrder: message.OrderLE}
	v, err := Scalar[uint32](dt, []byte{0x2A, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
}

func TestEncodeInts(t *testing.T) {
	dt := message.NewFixedPointDatatype(4, true, message.OrderLE)
	raw, err := Encode(dt, []int32{1, -2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 0xFE, 0xFF, 0xFF, 0xFF, 3, 0, 0, 0}, raw)

	var back []int32
	require.NoError(t, Decode(dt, raw, 3, &back))
	assert.Equal(t, []int32{1, -2, 3}, back)
}

func TestEncodeIntsBigEndian(t *testing.T) {
	dt := message.NewFixedPointDatatype(2, false, message.OrderBE)
	raw, err := Encode(dt, []uint16{0x0102})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, raw)
}

func TestEncodeFloats(t *testing.T) {
	dt := message.NewFloatDatatype(8, message.OrderLE)
	raw, err := Encode(dt, []float64{1.5})
	require.NoError(t, err)

	back, err := DecodeSlice[float64](dt, raw, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, back)
}

func TestEncodeScalarAndPointer(t *testing.T) {
	dt := message.NewFixedPointDatatype(8, false, message.OrderLE)
	raw, err := EncodeScalar(dt, uint64(7))
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0, 0, 0, 0, 0}, raw)

	src := []uint64{7}
	viaPtr, err := Encode(dt, &src)
	require.NoError(t, err)
	assert.Equal(t, raw, viaPtr)
}

func TestEncodeStrings(t *testing.T) {
	dt := message.NewStringDatatype(6, message.PadNullTerm, message.CharsetASCII)
	raw, err := Encode(dt, []string{"ab", "toolong"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ab\x00\x00\x00\x00toolon"), raw)

	spaced := message.NewStringDatatype(4, message.PadSpacePad, message.CharsetASCII)
	raw, err = Encode(spaced, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []byte("x   "), raw)
}

func TestEncodeUnsupported(t *testing.T) {
	dt := &message.Datatype{Class: message.ClassCompound, Size: 8}
	_, err := Encode(dt, []int32{1})
	assert.Error(t, err)

	_, err = Encode(message.NewFixedPointDatatype(4, true, message.OrderLE), []string{"no"})
	assert.Error(t, err)
}

func TestFieldName(t *testing.T) {
	tests := map[string]string{
		"name":       "Name",
		"Name":       "Name",
		"my_field":   "My_field",
		"field-name": "Field_name",
		"123abc":     "123abc",
		"":           "Field",
	}
	for in, want := range tests {
		assert.Equal(t, want, fieldName(in), "input %q", in)
	}
}

func TestOrder(t *testing.T) {
	le := &message.Datatype{ByteOrder: message.OrderLE}
	be := &message.Datatype{ByteOrder: message.OrderBE}
	assert.Equal(t, "LittleEndian", Order(le).String())
	assert.Equal(t, "BigEndian", Order(be).String())
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric(&message.Datatype{Class: message.ClassFixedPoint}))
	assert.True(t, IsNumeric(&message.Datatype{Class: message.ClassFloatPoint}))
	assert.False(t, IsNumeric(&message.Datatype{Class: message.ClassString}))
}
