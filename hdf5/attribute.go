package hdf5

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/dtype"
	"github.com/h5kit/hdf5/internal/message"
)

// Attribute is a small named value attached to a dataset or group.
type Attribute struct {
	msg    *message.Attribute
	reader *binary.Reader // resolves global heap references
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.msg.Name }

// Shape returns the attribute value's dimensions, nil for scalars.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar() {
		return nil
	}
	return a.msg.Dataspace.Dimensions
}

// NumElements returns the total element count.
func (a *Attribute) NumElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// IsScalar reports whether the attribute holds a single value.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

// DtypeClass returns the datatype class.
func (a *Attribute) DtypeClass() message.DatatypeClass {
	if a.msg.Datatype == nil {
		return 0
	}
	return a.msg.Datatype.Class
}

// IsCompound reports whether the attribute has a compound datatype.
func (a *Attribute) IsCompound() bool {
	return a.msg.Datatype != nil && a.msg.Datatype.Class == message.ClassCompound
}

// IsArray reports whether the attribute has an array datatype.
func (a *Attribute) IsArray() bool {
	return a.msg.Datatype != nil && a.msg.Datatype.Class == message.ClassArray
}

// Read reads the attribute value into dest, a pointer to a compatible
// type.
func (a *Attribute) Read(dest any) error {
	if a.msg.Datatype == nil {
		return fmt.Errorf("attribute %q has no datatype", a.msg.Name)
	}
	if a.msg.Data == nil {
		return fmt.Errorf("attribute %q has no data", a.msg.Name)
	}
	return dtype.DecodeWith(a.msg.Datatype, a.msg.Data, a.NumElements(), dest, a.reader)
}

// ReadFloat64 reads the attribute as float64 values.
func (a *Attribute) ReadFloat64() ([]float64, error) {
	var result []float64
	err := a.Read(&result)
	return result, err
}

// ReadFloat32 reads the attribute as float32 values.
func (a *Attribute) ReadFloat32() ([]float32, error) {
	var result []float32
	err := a.Read(&result)
	return result, err
}

// ReadInt64 reads the attribute as int64 values.
func (a *Attribute) ReadInt64() ([]int64, error) {
	var result []int64
	err := a.Read(&result)
	return result, err
}

// ReadInt32 reads the attribute as int32 values.
func (a *Attribute) ReadInt32() ([]int32, error) {
	var result []int32
	err := a.Read(&result)
	return result, err
}

// ReadString reads the attribute as string values.
func (a *Attribute) ReadString() ([]string, error) {
	var result []string
	err := a.Read(&result)
	return result, err
}

// ReadScalarInt64 reads a scalar integer attribute.
func (a *Attribute) ReadScalarInt64() (int64, error) {
	vals, err := a.ReadInt64()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %q is empty", a.msg.Name)
	}
	return vals[0], nil
}

// ReadScalarFloat64 reads a scalar float attribute.
func (a *Attribute) ReadScalarFloat64() (float64, error) {
	vals, err := a.ReadFloat64()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %q is empty", a.msg.Name)
	}
	return vals[0], nil
}

// ReadScalarString reads a scalar string attribute.
func (a *Attribute) ReadScalarString() (string, error) {
	vals, err := a.ReadString()
	if err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return "", fmt.Errorf("attribute %q is empty", a.msg.Name)
	}
	return vals[0], nil
}

// ReadCompound reads a compound attribute as member-name keyed maps.
func (a *Attribute) ReadCompound() ([]map[string]any, error) {
	var result []any
	if err := a.Read(&result); err != nil {
		return nil, err
	}

	maps := make([]map[string]any, len(result))
	for i, v := range result {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is not a map: %T", i, v)
		}
		maps[i] = m
	}
	return maps, nil
}

// ReadScalarCompound reads a scalar compound attribute.
func (a *Attribute) ReadScalarCompound() (map[string]any, error) {
	vals, err := a.ReadCompound()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("attribute %q is empty", a.msg.Name)
	}
	return vals[0], nil
}

// Value reads the attribute auto-typed by its datatype class: int64,
// uint64, float64, string, compound map, or a slice of those for
// non-scalar dataspaces.
func (a *Attribute) Value() (any, error) {
	if a.msg.Datatype == nil {
		return nil, fmt.Errorf("attribute %q has no datatype", a.msg.Name)
	}

	isScalar := a.IsScalar()
	switch a.msg.Datatype.Class {
	case message.ClassFixedPoint:
		if a.msg.Datatype.Signed {
			return scalarOrSlice(isScalar, a.ReadInt64)
		}
		return scalarOrSlice(isScalar, func() ([]uint64, error) {
			var vals []uint64
			err := a.Read(&vals)
			return vals, err
		})

	case message.ClassFloatPoint:
		return scalarOrSlice(isScalar, a.ReadFloat64)

	case message.ClassString:
		return scalarOrSlice(isScalar, a.ReadString)

	case message.ClassVarLen:
		if a.msg.Datatype.IsVarLenString {
			return scalarOrSlice(isScalar, a.ReadString)
		}
		var result any
		err := a.Read(&result)
		return result, err

	case message.ClassCompound:
		return scalarOrSlice(isScalar, a.ReadCompound)

	case message.ClassEnum:
		return scalarOrSlice(isScalar, a.ReadInt64)

	default:
		var result any
		err := a.Read(&result)
		return result, err
	}
}

func scalarOrSlice[T any](isScalar bool, read func() ([]T, error)) (any, error) {
	vals, err := read()
	if err != nil {
		return nil, err
	}
	if isScalar && len(vals) == 1 {
		return vals[0], nil
	}
	return vals, nil
}
