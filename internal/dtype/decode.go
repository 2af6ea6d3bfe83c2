package dtype

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/h5kit/hdf5/internal/binary"
	"github.com/h5kit/hdf5/internal/heap"
	"github.com/h5kit/hdf5/internal/message"
)

// Decode converts n raw elements into *dest, which must point to a
// slice. The slice grows when shorter than n and is reused otherwise.
func Decode(dt *message.Datatype, raw []byte, n uint64, dest any) error {
	return DecodeWith(dt, raw, n, dest, nil)
}

// DecodeWith is Decode with file access for variable-length data, whose
// element bytes only reference the global heap.
func DecodeWith(dt *message.Datatype, raw []byte, n uint64, dest any, r *binary.Reader) error {
	if dt == nil {
		return fmt.Errorf("nil datatype")
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("decode destination must be a non-nil pointer, got %T", dest)
	}
	slice := dv.Elem()
	if slice.Kind() != reflect.Slice {
		return fmt.Errorf("decode destination must point to a slice, got %T", dest)
	}
	if err := checkLen(dt, raw, n); err != nil {
		return err
	}
	if slice.Len() < int(n) {
		slice.Set(reflect.MakeSlice(slice.Type(), int(n), int(n)))
	}

	switch dt.Class {
	case message.ClassFixedPoint:
		return decodeInts(dt, raw, int(n), slice)
	case message.ClassFloatPoint:
		return decodeFloats(dt, raw, int(n), slice)
	case message.ClassString:
		return decodeStrings(dt, raw, int(n), slice)
	case message.ClassVarLen:
		return decodeVarLen(dt, raw, int(n), slice, r)
	case message.ClassCompound:
		return decodeCompounds(dt, raw, int(n), slice, r)
	case message.ClassArray:
		return decodeArrays(dt, raw, int(n), slice, r)
	case message.ClassEnum:
		base := dt.BaseType
		if base == nil {
			base = &message.Datatype{Class: message.ClassFixedPoint, Size: dt.Size, Signed: true}
		}
		return decodeInts(base, raw, int(n), slice)
	case message.ClassBitfield:
		return decodeInts(dt, raw, int(n), slice)
	case message.ClassOpaque:
		return decodeOpaque(dt, raw, int(n), slice)
	default:
		return fmt.Errorf("cannot decode datatype class %d", dt.Class)
	}
}

// DecodeSlice decodes n elements into a fresh []T.
func DecodeSlice[T any](dt *message.Datatype, raw []byte, n uint64) ([]T, error) {
	out := make([]T, n)
	if err := Decode(dt, raw, n, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Scalar decodes a single element.
func Scalar[T any](dt *message.Datatype, raw []byte) (T, error) {
	out, err := DecodeSlice[T](dt, raw, 1)
	if err != nil {
		var zero T
		return zero, err
	}
	return out[0], nil
}

func checkLen(dt *message.Datatype, raw []byte, n uint64) error {
	if dt.Class == message.ClassVarLen {
		// Varlen elements are heap references whose width depends on
		// the file's offset size; decodeVarLen checks per element.
		return nil
	}
	size := uint64(dt.Size)
	if need := n * size; uint64(len(raw)) < need {
		return fmt.Errorf("raw data too short: %d elements of %d bytes need %d, have %d",
			n, size, need, len(raw))
	}
	return nil
}

func decodeInts(dt *message.Datatype, raw []byte, n int, dest reflect.Value) error {
	size := int(dt.Size)
	if directCopyOK(dt, dest.Type().Elem()) {
		directCopy(raw, n, size, dest)
		return nil
	}

	order := Order(dt)
	elem := dest.Type().Elem()
	for i := 0; i < n; i++ {
		b := raw[i*size : (i+1)*size]
		var u uint64
		switch size {
		case 1:
			u = uint64(b[0])
		case 2:
			u = uint64(order.Uint16(b))
		case 4:
			u = uint64(order.Uint32(b))
		case 8:
			u = order.Uint64(b)
		default:
			return fmt.Errorf("unsupported integer size %d", size)
		}
		v := dest.Index(i)
		if dt.Signed {
			v.Set(reflect.ValueOf(signExtend(u, size)).Convert(elem))
		} else {
			v.Set(reflect.ValueOf(u).Convert(elem))
		}
	}
	return nil
}

func signExtend(u uint64, size int) int64 {
	shift := 64 - 8*size
	return int64(u<<shift) >> shift
}

func decodeFloats(dt *message.Datatype, raw []byte, n int, dest reflect.Value) error {
	size := int(dt.Size)
	if directCopyOK(dt, dest.Type().Elem()) {
		directCopy(raw, n, size, dest)
		return nil
	}

	order := Order(dt)
	elem := dest.Type().Elem()
	for i := 0; i < n; i++ {
		b := raw[i*size : (i+1)*size]
		var f float64
		switch size {
		case 4:
			f = float64(math.Float32frombits(order.Uint32(b)))
		case 8:
			f = math.Float64frombits(order.Uint64(b))
		default:
			return fmt.Errorf("unsupported float size %d", size)
		}
		dest.Index(i).Set(reflect.ValueOf(f).Convert(elem))
	}
	return nil
}

func decodeStrings(dt *message.Datatype, raw []byte, n int, dest reflect.Value) error {
	if dest.Type().Elem().Kind() != reflect.String {
		return fmt.Errorf("string data needs a []string destination, got %s", dest.Type())
	}
	size := int(dt.Size)
	for i := 0; i < n; i++ {
		b := raw[i*size : (i+1)*size]
		dest.Index(i).SetString(trimString(b, dt.StringPadding))
	}
	return nil
}

func trimString(b []byte, pad message.StringPadding) string {
	end := len(b)
	for i, c := range b {
		if c == 0 {
			end = i
			break
		}
	}
	if pad == message.PadSpacePad {
		for end > 0 && b[end-1] == ' ' {
			end--
		}
	}
	return string(b[:end])
}

// decodeVarLen resolves variable-length elements. Each element is a
// 4-byte sequence length followed by a global heap ID.
func decodeVarLen(dt *message.Datatype, raw []byte, n int, dest reflect.Value, r *binary.Reader) error {
	if !dt.IsVarLenString {
		return fmt.Errorf("variable-length sequences of class %v are not supported",
			baseClass(dt))
	}
	if dest.Type().Elem().Kind() != reflect.String {
		return fmt.Errorf("variable-length strings need a []string destination, got %s", dest.Type())
	}

	offsetSize := 8
	if r != nil {
		offsetSize = r.OffsetSize()
	}
	refSize := 4 + offsetSize + 4

	heaps := make(map[uint64]*heap.GlobalHeap)
	for i := 0; i < n; i++ {
		ref := raw[i*refSize:]
		if len(ref) < refSize {
			return fmt.Errorf("variable-length reference %d truncated", i)
		}
		id, err := heap.ParseGlobalHeapID(ref[4:], offsetSize)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		if id.CollectionAddress == 0 {
			dest.Index(i).SetString("")
			continue
		}
		if r == nil {
			return fmt.Errorf("variable-length data needs file access for the global heap at %#x",
				id.CollectionAddress)
		}
		gh, ok := heaps[id.CollectionAddress]
		if !ok {
			if gh, err = heap.ReadGlobalHeap(r, id.CollectionAddress); err != nil {
				return fmt.Errorf("global heap at %#x: %w", id.CollectionAddress, err)
			}
			heaps[id.CollectionAddress] = gh
		}
		s, err := gh.GetString(uint16(id.ObjectIndex))
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		dest.Index(i).SetString(s)
	}
	return nil
}

func baseClass(dt *message.Datatype) message.DatatypeClass {
	if dt.VarLenType != nil {
		return dt.VarLenType.Class
	}
	return dt.Class
}

// decodeCompounds fills either []map[string]any or a slice of structs
// whose exported field names match the member names.
func decodeCompounds(dt *message.Datatype, raw []byte, n int, dest reflect.Value, r *binary.Reader) error {
	size := int(dt.Size)
	elem := dest.Type().Elem()

	switch elem.Kind() {
	case reflect.Map, reflect.Interface:
		for i := 0; i < n; i++ {
			m, err := compoundMap(dt, raw[i*size:(i+1)*size], r)
			if err != nil {
				return err
			}
			dest.Index(i).Set(reflect.ValueOf(m))
		}
		return nil
	case reflect.Struct:
		for i := 0; i < n; i++ {
			if err := compoundStruct(dt, raw[i*size:(i+1)*size], dest.Index(i), r); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("compound data needs a []map[string]any or struct slice destination, got %s", dest.Type())
	}
}

func compoundMap(dt *message.Datatype, elem []byte, r *binary.Reader) (map[string]any, error) {
	out := make(map[string]any, len(dt.Members))
	for _, m := range dt.Members {
		if m.Type == nil {
			continue
		}
		v, err := memberValue(m, elem, r)
		if err != nil {
			return nil, err
		}
		out[m.Name] = v
	}
	return out, nil
}

func compoundStruct(dt *message.Datatype, elem []byte, dest reflect.Value, r *binary.Reader) error {
	for _, m := range dt.Members {
		if m.Type == nil {
			continue
		}
		field := dest.FieldByName(fieldName(m.Name))
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		v, err := memberValue(m, elem, r)
		if err != nil {
			return err
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("member %q: cannot store %s into field of type %s",
				m.Name, rv.Type(), field.Type())
		}
		field.Set(rv.Convert(field.Type()))
	}
	return nil
}

// memberValue decodes one compound member out of an element's bytes.
// The member's declared size covers its stored form, including the heap
// reference form of variable-length members.
func memberValue(m message.CompoundMember, elem []byte, r *binary.Reader) (any, error) {
	start := int(m.ByteOffset)
	end := start + int(m.Type.Size)
	if end > len(elem) {
		return nil, fmt.Errorf("member %q overruns its element", m.Name)
	}
	b := elem[start:end]

	switch m.Type.Class {
	case message.ClassFixedPoint, message.ClassEnum, message.ClassBitfield:
		t, err := GoType(m.Type)
		if err != nil {
			return nil, err
		}
		out := reflect.MakeSlice(reflect.SliceOf(t), 1, 1)
		if err := decodeInts(intBase(m.Type), b, 1, out); err != nil {
			return nil, err
		}
		return out.Index(0).Interface(), nil
	case message.ClassFloatPoint:
		if m.Type.Size == 4 {
			return Scalar[float32](m.Type, b)
		}
		return Scalar[float64](m.Type, b)
	case message.ClassString:
		return trimString(b, m.Type.StringPadding), nil
	case message.ClassVarLen:
		out := make([]string, 1)
		sv := reflect.ValueOf(&out).Elem()
		if err := decodeVarLen(m.Type, b, 1, sv, r); err != nil {
			return nil, err
		}
		return out[0], nil
	case message.ClassCompound:
		return compoundMap(m.Type, b, r)
	default:
		return nil, fmt.Errorf("member %q: unsupported class %d", m.Name, m.Type.Class)
	}
}

func intBase(dt *message.Datatype) *message.Datatype {
	if dt.Class == message.ClassEnum && dt.BaseType != nil {
		return dt.BaseType
	}
	return dt
}

// decodeArrays expands fixed array elements into slices of the base
// type, one per dataset element.
func decodeArrays(dt *message.Datatype, raw []byte, n int, dest reflect.Value, r *binary.Reader) error {
	if dt.BaseType == nil || len(dt.ArrayDims) == 0 {
		return fmt.Errorf("array datatype missing base type or dimensions")
	}
	count := 1
	for _, d := range dt.ArrayDims {
		count *= int(d)
	}
	size := int(dt.Size)

	baseGo, err := GoType(dt.BaseType)
	if err != nil {
		return err
	}
	sliceType := reflect.SliceOf(baseGo)
	elem := dest.Type().Elem()
	if elem.Kind() != reflect.Interface && elem != sliceType {
		return fmt.Errorf("array data of %s needs %s or interface destination, got %s",
			baseGo, sliceType, dest.Type())
	}

	for i := 0; i < n; i++ {
		sub := reflect.MakeSlice(sliceType, count, count)
		inner := reflect.New(sliceType)
		inner.Elem().Set(sub)
		if err := DecodeWith(dt.BaseType, raw[i*size:(i+1)*size], uint64(count), inner.Interface(), r); err != nil {
			return err
		}
		dest.Index(i).Set(inner.Elem())
	}
	return nil
}

func decodeOpaque(dt *message.Datatype, raw []byte, n int, dest reflect.Value) error {
	if dest.Type().Elem() != reflect.TypeOf([]byte(nil)) {
		return fmt.Errorf("opaque data needs a [][]byte destination, got %s", dest.Type())
	}
	size := int(dt.Size)
	for i := 0; i < n; i++ {
		b := make([]byte, size)
		copy(b, raw[i*size:(i+1)*size])
		dest.Index(i).Set(reflect.ValueOf(b))
	}
	return nil
}

// directCopyOK reports whether raw bytes already match the destination
// element layout: little-endian source, same width, same kind family.
func directCopyOK(dt *message.Datatype, elem reflect.Type) bool {
	if intBase(dt).ByteOrder == message.OrderBE {
		return false
	}
	if uintptr(dt.Size) != elem.Size() {
		return false
	}
	switch intBase(dt).Class {
	case message.ClassFixedPoint:
		switch elem.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return intBase(dt).Signed
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return !intBase(dt).Signed
		}
	case message.ClassBitfield:
		switch elem.Kind() {
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		}
	case message.ClassFloatPoint:
		switch elem.Kind() {
		case reflect.Float32, reflect.Float64:
			return true
		}
	}
	return false
}

func directCopy(raw []byte, n, size int, dest reflect.Value) {
	if n == 0 {
		return
	}
	out := unsafe.Slice((*byte)(dest.Index(0).Addr().UnsafePointer()), n*size)
	copy(out, raw[:n*size])
}
