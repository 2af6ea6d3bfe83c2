package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/h5kit/hdf5/internal/message"
)

// Encode serializes a Go slice, array or scalar into the raw element
// bytes of the given datatype. Fixed-point, float and fixed string
// classes are supported; datasets of other classes take raw bytes
// through the direct chunk path instead.
func Encode(dt *message.Datatype, src any) ([]byte, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}
	sv := reflect.ValueOf(src)
	for sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			return nil, fmt.Errorf("nil source")
		}
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
		boxed := reflect.MakeSlice(reflect.SliceOf(sv.Type()), 1, 1)
		boxed.Index(0).Set(sv)
		sv = boxed
	}

	switch dt.Class {
	case message.ClassFixedPoint:
		return encodeInts(dt, sv)
	case message.ClassFloatPoint:
		return encodeFloats(dt, sv)
	case message.ClassString:
		return encodeStrings(dt, sv)
	default:
		return nil, fmt.Errorf("cannot encode datatype class %d", dt.Class)
	}
}

// EncodeScalar serializes a single value.
func EncodeScalar(dt *message.Datatype, v any) ([]byte, error) {
	return Encode(dt, v)
}

func encodeInts(dt *message.Datatype, src reflect.Value) ([]byte, error) {
	size := int(dt.Size)
	n := src.Len()

	if src.Kind() == reflect.Slice && directCopyOK(dt, src.Type().Elem()) {
		return append([]byte(nil), sliceBytes(src, size)...), nil
	}

	order := Order(dt)
	out := make([]byte, n*size)
	for i := 0; i < n; i++ {
		elem := src.Index(i)
		var u uint64
		switch elem.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			u = uint64(elem.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u = elem.Uint()
		default:
			return nil, fmt.Errorf("cannot encode %s as fixed-point", elem.Kind())
		}
		putUint(out[i*size:(i+1)*size], u, order)
	}
	return out, nil
}

func encodeFloats(dt *message.Datatype, src reflect.Value) ([]byte, error) {
	size := int(dt.Size)
	n := src.Len()

	if src.Kind() == reflect.Slice && directCopyOK(dt, src.Type().Elem()) {
		return append([]byte(nil), sliceBytes(src, size)...), nil
	}

	order := Order(dt)
	out := make([]byte, n*size)
	for i := 0; i < n; i++ {
		elem := src.Index(i)
		if k := elem.Kind(); k != reflect.Float32 && k != reflect.Float64 {
			return nil, fmt.Errorf("cannot encode %s as float", k)
		}
		b := out[i*size : (i+1)*size]
		switch size {
		case 4:
			order.PutUint32(b, math.Float32bits(float32(elem.Float())))
		case 8:
			order.PutUint64(b, math.Float64bits(elem.Float()))
		default:
			return nil, fmt.Errorf("unsupported float size %d", size)
		}
	}
	return out, nil
}

func encodeStrings(dt *message.Datatype, src reflect.Value) ([]byte, error) {
	size := int(dt.Size)
	n := src.Len()
	out := make([]byte, n*size)

	for i := 0; i < n; i++ {
		elem := src.Index(i)
		if elem.Kind() != reflect.String {
			return nil, fmt.Errorf("cannot encode %s as string", elem.Kind())
		}
		b := out[i*size : (i+1)*size]
		copied := copy(b, elem.String())
		if dt.StringPadding == message.PadSpacePad {
			for j := copied; j < size; j++ {
				b[j] = ' '
			}
		}
		// Null-terminated and null-padded forms keep the zero fill.
	}
	return out, nil
}

func putUint(b []byte, u uint64, order binary.ByteOrder) {
	switch len(b) {
	case 1:
		b[0] = byte(u)
	case 2:
		order.PutUint16(b, uint16(u))
	case 4:
		order.PutUint32(b, uint32(u))
	case 8:
		order.PutUint64(b, u)
	}
}

// sliceBytes reinterprets a slice's backing array as raw bytes.
func sliceBytes(src reflect.Value, size int) []byte {
	n := src.Len()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(src.Index(0).Addr().UnsafePointer()), n*size)
}

// DataSize is the byte count n elements occupy on disk.
func DataSize(dt *message.Datatype, n uint64) uint64 {
	return uint64(dt.Size) * n
}
