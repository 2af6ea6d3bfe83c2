package dtype

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/h5kit/hdf5/internal/message"
)

// GoType returns the Go type a dataset of the given datatype decodes to.
func GoType(dt *message.Datatype) (reflect.Type, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}

	switch dt.Class {
	case message.ClassFixedPoint:
		return intType(dt.Size, dt.Signed)
	case message.ClassEnum:
		if dt.BaseType != nil {
			return GoType(dt.BaseType)
		}
		return intType(dt.Size, true)
	case message.ClassBitfield:
		return intType(dt.Size, false)
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			return reflect.TypeOf(float32(0)), nil
		case 8:
			return reflect.TypeOf(float64(0)), nil
		}
		return nil, fmt.Errorf("unsupported float size %d", dt.Size)
	case message.ClassString:
		return reflect.TypeOf(""), nil
	case message.ClassVarLen:
		if dt.IsVarLenString {
			return reflect.TypeOf(""), nil
		}
		if dt.VarLenType != nil {
			elem, err := GoType(dt.VarLenType)
			if err != nil {
				return nil, err
			}
			return reflect.SliceOf(elem), nil
		}
		return reflect.TypeOf([]byte(nil)), nil
	case message.ClassCompound:
		return reflect.TypeOf(map[string]any(nil)), nil
	case message.ClassArray:
		if dt.BaseType == nil || len(dt.ArrayDims) == 0 {
			return nil, fmt.Errorf("array datatype missing base type or dimensions")
		}
		elem, err := GoType(dt.BaseType)
		if err != nil {
			return nil, err
		}
		t := elem
		for i := len(dt.ArrayDims) - 1; i >= 0; i-- {
			t = reflect.ArrayOf(int(dt.ArrayDims[i]), t)
		}
		return t, nil
	case message.ClassOpaque:
		return reflect.TypeOf([]byte(nil)), nil
	default:
		return nil, fmt.Errorf("unsupported datatype class %d", dt.Class)
	}
}

func intType(size uint32, signed bool) (reflect.Type, error) {
	switch size {
	case 1:
		if signed {
			return reflect.TypeOf(int8(0)), nil
		}
		return reflect.TypeOf(uint8(0)), nil
	case 2:
		if signed {
			return reflect.TypeOf(int16(0)), nil
		}
		return reflect.TypeOf(uint16(0)), nil
	case 4:
		if signed {
			return reflect.TypeOf(int32(0)), nil
		}
		return reflect.TypeOf(uint32(0)), nil
	case 8:
		if signed {
			return reflect.TypeOf(int64(0)), nil
		}
		return reflect.TypeOf(uint64(0)), nil
	}
	return nil, fmt.Errorf("unsupported integer size %d", size)
}

// FromGoType returns the datatype message a value of type t is stored
// under. Integers and floats map to their little-endian HDF5
// equivalents; strings map to variable-length UTF-8.
func FromGoType(t reflect.Type) (*message.Datatype, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int8:
		return message.NewFixedPointDatatype(1, true, message.OrderLE), nil
	case reflect.Int16:
		return message.NewFixedPointDatatype(2, true, message.OrderLE), nil
	case reflect.Int32:
		return message.NewFixedPointDatatype(4, true, message.OrderLE), nil
	case reflect.Int64, reflect.Int:
		return message.NewFixedPointDatatype(8, true, message.OrderLE), nil
	case reflect.Uint8:
		return message.NewFixedPointDatatype(1, false, message.OrderLE), nil
	case reflect.Uint16:
		return message.NewFixedPointDatatype(2, false, message.OrderLE), nil
	case reflect.Uint32:
		return message.NewFixedPointDatatype(4, false, message.OrderLE), nil
	case reflect.Uint64, reflect.Uint:
		return message.NewFixedPointDatatype(8, false, message.OrderLE), nil
	case reflect.Float32:
		return message.NewFloatDatatype(4, message.OrderLE), nil
	case reflect.Float64:
		return message.NewFloatDatatype(8, message.OrderLE), nil
	case reflect.String:
		return message.NewVarLenStringDatatype(message.CharsetUTF8), nil
	default:
		return nil, fmt.Errorf("no HDF5 datatype for Go type %v", t)
	}
}

// FromValue infers the datatype for a Go value. Slices and arrays map
// through their element type.
func FromValue(v any) (*message.Datatype, error) {
	if v == nil {
		return nil, fmt.Errorf("nil value")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return FromGoType(t)
}

// Order returns the byte order raw element bytes use. Enums follow
// their base type.
func Order(dt *message.Datatype) binary.ByteOrder {
	if dt.Class == message.ClassEnum && dt.BaseType != nil {
		return Order(dt.BaseType)
	}
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// IsNumeric reports whether the datatype holds integers or floats.
func IsNumeric(dt *message.Datatype) bool {
	return dt.Class == message.ClassFixedPoint || dt.Class == message.ClassFloatPoint
}

// fieldName turns an HDF5 member name into an exported Go identifier.
func fieldName(name string) string {
	if name == "" {
		return "Field"
	}
	runes := []rune(name)
	if runes[0] >= 'a' && runes[0] <= 'z' {
		runes[0] -= 'a' - 'A'
	}
	for i, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			runes[i] = '_'
		}
	}
	return string(runes)
}
